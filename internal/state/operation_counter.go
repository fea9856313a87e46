/*

This file manages the persistent global operation counter for the vault
service. The counter is stored in the database to ensure every receipt gets a
monotonically increasing sequence number across restarts.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ensureOperationCounterTable creates the operation_counter table if it doesn't exist
func ensureOperationCounterTable() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS operation_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_sequence INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		-- Insert initial row if it doesn't exist
		INSERT INTO operation_counter (id, current_sequence)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`

	_, err := DB.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create operation_counter table: %w", err)
	}

	log.Debug().Msg("Ensured operation_counter table exists")
	return nil
}

// GetCurrentOperationSequence retrieves the current operation sequence from the database
func GetCurrentOperationSequence() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	// Ensure the table exists
	if err := ensureOperationCounterTable(); err != nil {
		return 0, err
	}

	query := `SELECT current_sequence FROM operation_counter WHERE id = 1;`

	var currentSequence int
	row := DB.QueryRow(query)
	err := row.Scan(&currentSequence)

	if err != nil {
		if err == sql.ErrNoRows {
			// This should not happen due to the INSERT in ensureOperationCounterTable
			log.Warn().Msg("No operation counter row found, initializing to 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current operation sequence: %w", err)
	}

	log.Debug().Int("currentSequence", currentSequence).Msg("Retrieved current operation sequence")
	return currentSequence, nil
}

// NextOperationSequence increments the operation counter and returns the new value
func NextOperationSequence() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	// Ensure the table exists
	if err := ensureOperationCounterTable(); err != nil {
		return 0, err
	}

	updateQuery := `
		UPDATE operation_counter
		SET current_sequence = current_sequence + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_sequence;`

	var newSequence int
	row := DB.QueryRow(updateQuery)
	err := row.Scan(&newSequence)

	if err != nil {
		return 0, fmt.Errorf("failed to advance operation sequence: %w", err)
	}

	log.Debug().Int("newSequence", newSequence).Msg("Advanced operation counter")
	return newSequence, nil
}

// ResetOperationSequence resets the operation counter to a specific value (for testing/maintenance)
func ResetOperationSequence(sequence int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	// Ensure the table exists
	if err := ensureOperationCounterTable(); err != nil {
		return err
	}

	if sequence < 0 {
		return fmt.Errorf("operation sequence cannot be negative: %d", sequence)
	}

	updateQuery := `
		UPDATE operation_counter
		SET current_sequence = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1;`

	result, err := DB.Exec(updateQuery, sequence)
	if err != nil {
		return fmt.Errorf("failed to reset operation sequence to %d: %w", sequence, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no rows updated when resetting operation sequence")
	}

	log.Warn().Int("sequence", sequence).Msg("Reset operation counter")
	return nil
}
