// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/openvault-labs/vsm/internal/types"
)

// SaveVaultParameters saves a new version of vault parameters.
func SaveVaultParameters(params types.VaultParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE vault_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO vault_parameters (
            version, config_name, is_active, activated_at, created_at,
            accounting_mode, virtual_assets, virtual_shares, min_initial_deposit
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		string(params.AccountingMode),
		params.VirtualAssets.String(),
		params.VirtualShares.String(),
		params.MinInitialDeposit.String(),
	).Scan(&paramsID)

	if err != nil {
		return 0, fmt.Errorf("failed to insert vault parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved vault parameters")
	return paramsID, nil
}

// LoadActiveVaultParameters loads the currently active vault parameters.
func LoadActiveVaultParameters(configName string) (*types.VaultParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT params_id, version, config_name, is_active, activated_at,
               accounting_mode, virtual_assets, virtual_shares, min_initial_deposit
        FROM vault_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	row := DB.QueryRow(query, configName)
	params, err := scanVaultParameters(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active vault parameters found for config '%s'", configName)
		}
		return nil, fmt.Errorf("failed to scan active vault parameters for config '%s': %w", configName, err)
	}

	log.Info().Str("config", configName).Msg("Loaded active vault parameters")
	return params, nil
}

// LoadLatestVaultParameters loads the most recently activated vault parameters
// for a given config name, active or not.
func LoadLatestVaultParameters(configName string) (*types.VaultParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT params_id, version, config_name, is_active, activated_at,
               accounting_mode, virtual_assets, virtual_shares, min_initial_deposit
        FROM vault_parameters
        WHERE config_name = $1
        ORDER BY activated_at DESC, created_at DESC
        LIMIT 1;`

	row := DB.QueryRow(query, configName)
	params, err := scanVaultParameters(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no vault parameters found for config '%s'", configName)
		}
		return nil, fmt.Errorf("failed to scan latest vault parameters for config '%s': %w", configName, err)
	}

	log.Info().Str("config", configName).Msg("Loaded latest vault parameters")
	return params, nil
}

// scanVaultParameters scans one vault_parameters row, converting the NUMERIC
// amount columns back into sdkmath.Int via their decimal-string form.
func scanVaultParameters(row *sql.Row) (*types.VaultParameters, error) {
	p := &types.VaultParameters{}
	var mode string
	var virtualAssets, virtualShares, minInitialDeposit string

	err := row.Scan(
		&p.ParamsID, &p.Version, &p.ConfigName, &p.IsActive, &p.ActivatedAt,
		&mode, &virtualAssets, &virtualShares, &minInitialDeposit,
	)
	if err != nil {
		return nil, err
	}

	p.AccountingMode = types.AccountingMode(mode)
	for _, pair := range []struct {
		value  string
		target *sdkmath.Int
	}{
		{virtualAssets, &p.VirtualAssets},
		{virtualShares, &p.VirtualShares},
		{minInitialDeposit, &p.MinInitialDeposit},
	} {
		amount, ok := sdkmath.NewIntFromString(pair.value)
		if !ok {
			return nil, fmt.Errorf("invalid amount %q in vault_parameters row", pair.value)
		}
		*pair.target = amount
	}
	return p, nil
}
