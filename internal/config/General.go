package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// VaultID is the ID of the vault this instance serves by default.
	VaultID uint64

	// AssetDenom is the underlying asset denom of the default vault.
	AssetDenom string
	// ShareDenom is the share denom issued by the default vault.
	ShareDenom string
	// AssetDecimals is the display precision of the underlying asset.
	AssetDecimals int

	// SnapshotInterval is how often the service persists vault snapshots.
	SnapshotInterval time.Duration
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	VaultID, err = getEnvAsUint64("VSM_VAULT_ID")
	if err != nil {
		return err
	}

	AssetDenom, err = getEnv("VSM_ASSET_DENOM")
	if err != nil {
		return err
	}

	ShareDenom, err = getEnv("VSM_SHARE_DENOM")
	if err != nil {
		return err
	}

	AssetDecimals, err = getEnvAsInt("VSM_ASSET_DECIMALS")
	if err != nil {
		return err
	}

	intervalSeconds, err := getEnvAsUint64("VSM_SNAPSHOT_INTERVAL_SECONDS")
	if err != nil {
		return err
	}
	SnapshotInterval = time.Duration(intervalSeconds) * time.Second

	log.Debug().
		Uint64("VaultID", VaultID).
		Str("AssetDenom", AssetDenom).
		Str("ShareDenom", ShareDenom).
		Dur("SnapshotInterval", SnapshotInterval).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}
