package state

import (
	"database/sql"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/openvault-labs/vsm/internal/types"
)

// GetVaultSummary aggregates operation receipt statistics for one vault.
func GetVaultSummary(vaultID uint64) (*types.VaultSummary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE operation_type = 'DEPOSIT' AND success),
			COUNT(*) FILTER (WHERE operation_type = 'MINT' AND success),
			COUNT(*) FILTER (WHERE operation_type = 'WITHDRAW' AND success),
			COUNT(*) FILTER (WHERE operation_type = 'REDEEM' AND success),
			COUNT(*) FILTER (WHERE NOT success),
			MAX(operation_timestamp)
		FROM operation_receipts
		WHERE vault_id = $1;
	`

	summary := &types.VaultSummary{VaultID: vaultID}
	var lastOperation sql.NullTime
	err := DB.QueryRow(query, vaultID).Scan(
		&summary.OperationCount,
		&summary.DepositCount,
		&summary.MintCount,
		&summary.WithdrawCount,
		&summary.RedeemCount,
		&summary.FailedCount,
		&lastOperation,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate vault summary: %w", err)
	}
	if lastOperation.Valid {
		timestamp := lastOperation.Time
		summary.LastOperationAt = &timestamp
	}

	assetsIn, assetsOut, err := GetFlowTotals(vaultID, time.Time{})
	if err != nil {
		return nil, err
	}
	summary.AssetsIn = assetsIn
	summary.AssetsOut = assetsOut

	log.Debug().Uint64("vault_id", vaultID).Int("operations", summary.OperationCount).Msg("Computed vault summary")
	return summary, nil
}

// GetFlowTotals sums the asset amounts moved into and out of a vault by
// successful operations since the given time (zero time = all history).
// Deposits count amount_in, mints count amount_out (both asset-denominated);
// withdrawals count amount_in and redemptions amount_out.
func GetFlowTotals(vaultID uint64, since time.Time) (assetsIn, assetsOut sdkmath.Int, err error) {
	if DB == nil {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT
			COALESCE(SUM(amount_in) FILTER (WHERE operation_type = 'DEPOSIT'), 0)
				+ COALESCE(SUM(amount_out) FILTER (WHERE operation_type = 'MINT'), 0),
			COALESCE(SUM(amount_in) FILTER (WHERE operation_type = 'WITHDRAW'), 0)
				+ COALESCE(SUM(amount_out) FILTER (WHERE operation_type = 'REDEEM'), 0)
		FROM operation_receipts
		WHERE vault_id = $1 AND success AND operation_timestamp >= $2;
	`

	var inStr, outStr string
	if err := DB.QueryRow(query, vaultID, since).Scan(&inStr, &outStr); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("failed to sum vault flows: %w", err)
	}

	if err := assignAmounts([]amountField{
		{inStr, &assetsIn},
		{outStr, &assetsOut},
	}); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return assetsIn, assetsOut, nil
}
