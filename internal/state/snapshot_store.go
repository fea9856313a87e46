// ./internal/state/snapshot_store.go
package state

import (
	"database/sql"
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog/log"

	"github.com/openvault-labs/vsm/internal/types"
)

// SaveOperationReceipt persists the outcome of one mutating vault operation.
func SaveOperationReceipt(receipt types.OperationReceipt) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO operation_receipts (
			operation_id, sequence, vault_id, operation_type,
			caller, receiver, owner_account,
			amount_in_denom, amount_in, amount_out_denom, amount_out,
			total_assets_after, total_shares_after,
			success, error_message, operation_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING receipt_id;
	`

	var receiptID int64
	err := DB.QueryRow(
		query,
		receipt.OperationID, receipt.Sequence, receipt.VaultID, string(receipt.Type),
		receipt.Caller, receipt.Receiver, nullableString(receipt.Owner),
		receipt.AmountIn.Denom, receipt.AmountIn.Amount.String(),
		receipt.AmountOut.Denom, receipt.AmountOut.Amount.String(),
		receipt.TotalAssetsAfter.String(), receipt.TotalSharesAfter.String(),
		receipt.Success, nullableString(receipt.ErrorMessage), receipt.Timestamp,
	).Scan(&receiptID)

	if err != nil {
		return 0, fmt.Errorf("failed to save operation receipt: %w", err)
	}

	log.Info().
		Int64("receipt_id", receiptID).
		Str("operation_id", receipt.OperationID).
		Uint64("vault_id", receipt.VaultID).
		Str("type", string(receipt.Type)).
		Bool("success", receipt.Success).
		Msg("Operation receipt saved to database")

	return receiptID, nil
}

// GetRecentOperations retrieves recent operation receipts for a vault with
// pagination.
func GetRecentOperations(vaultID uint64, limit int) ([]types.OperationReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 20 // Default limit
	}

	query := `
		SELECT
			receipt_id, operation_id, sequence, vault_id, operation_type,
			caller, receiver, owner_account,
			amount_in_denom, amount_in, amount_out_denom, amount_out,
			total_assets_after, total_shares_after,
			success, error_message, operation_timestamp
		FROM operation_receipts
		WHERE vault_id = $1
		ORDER BY operation_timestamp DESC
		LIMIT $2
	`

	rows, err := DB.Query(query, vaultID, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query recent operations")
		return nil, fmt.Errorf("failed to query recent operations: %w", err)
	}
	defer rows.Close()

	var receipts []types.OperationReceipt
	for rows.Next() {
		receipt, err := scanOperationReceipt(rows)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan operation receipt row")
			continue // Skip this row and continue with others
		}
		receipts = append(receipts, *receipt)
	}

	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error occurred during row iteration")
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	log.Debug().Int("count", len(receipts)).Uint64("vault_id", vaultID).Msg("Retrieved recent operations")
	return receipts, nil
}

// GetOperationByID retrieves one receipt by its operation UUID.
func GetOperationByID(operationID string) (*types.OperationReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT
			receipt_id, operation_id, sequence, vault_id, operation_type,
			caller, receiver, owner_account,
			amount_in_denom, amount_in, amount_out_denom, amount_out,
			total_assets_after, total_shares_after,
			success, error_message, operation_timestamp
		FROM operation_receipts
		WHERE operation_id = $1
	`

	rows, err := DB.Query(query, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation %s: %w", operationID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("operation '%s' not found", operationID)
	}
	return scanOperationReceipt(rows)
}

// SaveVaultSnapshot persists a periodic vault snapshot.
func SaveVaultSnapshot(snapshot types.VaultSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO vault_snapshots (
			vault_id, snapshot_timestamp,
			total_assets, total_shares, custody_balance,
			exchange_rate, assets_in, assets_out, conservation_ok
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err := DB.QueryRow(
		query,
		snapshot.VaultID, snapshot.Timestamp,
		snapshot.TotalAssets.String(), snapshot.TotalShares.String(), snapshot.CustodyBalance.String(),
		snapshot.ExchangeRate, snapshot.AssetsIn.String(), snapshot.AssetsOut.String(), snapshot.ConservationOK,
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save vault snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Uint64("vault_id", snapshot.VaultID).
		Str("total_assets", snapshot.TotalAssets.String()).
		Str("total_shares", snapshot.TotalShares.String()).
		Bool("conservation_ok", snapshot.ConservationOK).
		Msg("Vault snapshot saved to database")

	return snapshotID, nil
}

// GetRecentSnapshots retrieves recent snapshots for a vault.
func GetRecentSnapshots(vaultID uint64, limit int) ([]types.VaultSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT snapshot_id, vault_id, snapshot_timestamp,
		       total_assets, total_shares, custody_balance,
		       exchange_rate, assets_in, assets_out, conservation_ok
		FROM vault_snapshots
		WHERE vault_id = $1
		ORDER BY snapshot_timestamp DESC
		LIMIT $2
	`

	rows, err := DB.Query(query, vaultID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []types.VaultSnapshot
	for rows.Next() {
		var snapshot types.VaultSnapshot
		var totalAssets, totalShares, custodyBalance, assetsIn, assetsOut string

		err := rows.Scan(
			&snapshot.SnapshotID, &snapshot.VaultID, &snapshot.Timestamp,
			&totalAssets, &totalShares, &custodyBalance,
			&snapshot.ExchangeRate, &assetsIn, &assetsOut, &snapshot.ConservationOK,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan snapshot row")
			continue
		}

		if err := assignAmounts([]amountField{
			{totalAssets, &snapshot.TotalAssets},
			{totalShares, &snapshot.TotalShares},
			{custodyBalance, &snapshot.CustodyBalance},
			{assetsIn, &snapshot.AssetsIn},
			{assetsOut, &snapshot.AssetsOut},
		}); err != nil {
			log.Error().Err(err).Int64("snapshot_id", snapshot.SnapshotID).Msg("Failed to decode snapshot amounts")
			continue
		}

		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return snapshots, nil
}

// scanOperationReceipt scans one operation_receipts row.
func scanOperationReceipt(rows *sql.Rows) (*types.OperationReceipt, error) {
	receipt := &types.OperationReceipt{}
	var operationType string
	var owner, errorMessage sql.NullString
	var amountInDenom, amountIn, amountOutDenom, amountOut string
	var totalAssetsAfter, totalSharesAfter string

	err := rows.Scan(
		&receipt.ReceiptID, &receipt.OperationID, &receipt.Sequence, &receipt.VaultID, &operationType,
		&receipt.Caller, &receipt.Receiver, &owner,
		&amountInDenom, &amountIn, &amountOutDenom, &amountOut,
		&totalAssetsAfter, &totalSharesAfter,
		&receipt.Success, &errorMessage, &receipt.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	receipt.Type = types.OperationType(operationType)
	receipt.Owner = owner.String
	receipt.ErrorMessage = errorMessage.String

	var inAmount, outAmount sdkmath.Int
	if err := assignAmounts([]amountField{
		{amountIn, &inAmount},
		{amountOut, &outAmount},
		{totalAssetsAfter, &receipt.TotalAssetsAfter},
		{totalSharesAfter, &receipt.TotalSharesAfter},
	}); err != nil {
		return nil, err
	}
	receipt.AmountIn = sdktypes.NewCoin(amountInDenom, inAmount)
	receipt.AmountOut = sdktypes.NewCoin(amountOutDenom, outAmount)

	return receipt, nil
}

type amountField struct {
	value  string
	target *sdkmath.Int
}

// assignAmounts converts NUMERIC column strings into sdkmath.Int fields.
func assignAmounts(fields []amountField) error {
	for _, field := range fields {
		amount, ok := sdkmath.NewIntFromString(field.value)
		if !ok {
			return fmt.Errorf("invalid amount %q in database row", field.value)
		}
		*field.target = amount
	}
	return nil
}

func nullableString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
