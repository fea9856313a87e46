package main

import (
	"context"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/openvault-labs/vsm/internal/config"
	"github.com/openvault-labs/vsm/internal/ledger"
	"github.com/openvault-labs/vsm/internal/logger"
	"github.com/openvault-labs/vsm/internal/service"
	"github.com/openvault-labs/vsm/internal/state"
	"github.com/openvault-labs/vsm/internal/vault"
	"github.com/openvault-labs/vsm/internal/web"
)

// main is the entry point for the VSM system.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("VSM Core Logic Starting...")

	// Initialize Database Connection (receipts, snapshots, parameters)
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load Vault Parameters
	vaultParams, err := state.LoadActiveVaultParameters(service.DEFAULT_VAULT_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active vault parameters, using defaults and saving.")
		defaultParams := config.DefaultVaultParameters
		if _, err := state.SaveVaultParameters(defaultParams, service.DEFAULT_VAULT_CONFIG_NAME, service.DEFAULT_VAULT_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default vault parameters.")
		}
		vaultParams = &defaultParams
	}
	log.Info().
		Str("accountingMode", string(vaultParams.AccountingMode)).
		Str("minInitialDeposit", vaultParams.MinInitialDeposit.String()).
		Msg("Vault parameters loaded successfully.")

	// --- 2. Ledger and Vault Initialization ---
	assetBook := ledger.NewBook(config.AssetDenom)
	shareBook := ledger.NewBook(config.ShareDenom)
	custody := ledger.NewCustody(assetBook, "vault-"+strconv.FormatUint(config.VaultID, 10)+"-custody")

	v, err := vault.New(config.VaultID, custody, shareBook, *vaultParams)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize vault")
	}
	log.Info().Uint64("vaultId", v.ID()).Msg("Vault initialized")

	// --- 3. Create Service Instance with Dependency Injection ---
	svc, err := service.NewService(service.Config{
		ConfigName:    service.DEFAULT_VAULT_CONFIG_NAME,
		ConfigVersion: service.DEFAULT_VAULT_CONFIG_VERSION,
		Persist:       true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create service instance")
	}
	if err := svc.RegisterVault(v); err != nil {
		log.Fatal().Err(err).Msg("Failed to register vault")
	}

	// --- 4. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, svc)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting VSM web dashboard")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Start Snapshot Loop ---
	log.Info().Str("interval", config.SnapshotInterval.String()).Msg("Starting snapshot loop")

	ctx := context.Background()

	// Runs indefinitely
	svc.RunLoop(ctx, config.SnapshotInterval)
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
