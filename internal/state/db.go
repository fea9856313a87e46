// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// TestDBConnection verifies the database is reachable.
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return DB.PingContext(ctx)
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
//
// Integer amounts are stored as NUMERIC(80, 0): wide enough for the full
// 256-bit range, scanned in and out as decimal strings.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS vault_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			accounting_mode VARCHAR(16) NOT NULL,
			virtual_assets NUMERIC(80, 0) NOT NULL,
			virtual_shares NUMERIC(80, 0) NOT NULL,
			min_initial_deposit NUMERIC(80, 0) NOT NULL,
			CONSTRAINT uq_vault_parameters_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_vault_parameters_config_active_timestamp ON vault_parameters(config_name, is_active, activated_at DESC);

		CREATE TABLE IF NOT EXISTS operation_receipts (
			receipt_id SERIAL PRIMARY KEY,
			operation_id VARCHAR(36) NOT NULL,
			sequence INTEGER NOT NULL,
			vault_id BIGINT NOT NULL,
			operation_type VARCHAR(16) NOT NULL,
			caller VARCHAR(255) NOT NULL,
			receiver VARCHAR(255) NOT NULL,
			owner_account VARCHAR(255),
			amount_in_denom VARCHAR(128) NOT NULL,
			amount_in NUMERIC(80, 0) NOT NULL,
			amount_out_denom VARCHAR(128) NOT NULL,
			amount_out NUMERIC(80, 0) NOT NULL,
			total_assets_after NUMERIC(80, 0) NOT NULL,
			total_shares_after NUMERIC(80, 0) NOT NULL,
			success BOOLEAN NOT NULL,
			error_message TEXT,
			operation_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_operation_receipts_operation_id ON operation_receipts(operation_id);
		CREATE INDEX IF NOT EXISTS idx_operation_receipts_vault_timestamp ON operation_receipts(vault_id, operation_timestamp DESC);

		CREATE TABLE IF NOT EXISTS vault_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			vault_id BIGINT NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			total_assets NUMERIC(80, 0) NOT NULL,
			total_shares NUMERIC(80, 0) NOT NULL,
			custody_balance NUMERIC(80, 0) NOT NULL,
			exchange_rate DOUBLE PRECISION NOT NULL,
			assets_in NUMERIC(80, 0) NOT NULL,
			assets_out NUMERIC(80, 0) NOT NULL,
			conservation_ok BOOLEAN NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_vault_snapshots_vault_timestamp ON vault_snapshots(vault_id, snapshot_timestamp DESC);
	`

	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	log.Info().Msg("Database schema ensured")
	return nil
}
