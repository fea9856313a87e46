package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openvault-labs/vsm/internal/audit"
	"github.com/openvault-labs/vsm/internal/logger"
	"github.com/openvault-labs/vsm/internal/state"
	"github.com/openvault-labs/vsm/internal/types"
	"github.com/openvault-labs/vsm/internal/vault"
)

const (
	// Export constants for use in main.go
	DEFAULT_VAULT_CONFIG_NAME    = "default_vault_parameters"
	DEFAULT_VAULT_CONFIG_VERSION = 1
)

// Error definitions for zero-tolerance error handling
var (
	ErrVaultNotFound    = errors.New("vault not found")
	ErrVaultExists      = errors.New("vault already registered")
	ErrInvalidOperation = errors.New("operation request is invalid")
)

// Service is the share-management service: it owns the vault registry,
// executes the four mutating operations with receipt persistence, and runs
// the periodic snapshot loop.
type Service struct {
	logger zerolog.Logger

	mu     sync.RWMutex
	vaults map[uint64]*vault.Vault

	configName    string
	configVersion int

	// persist gates all database writes so the service can run against an
	// in-memory setup (simulations, tests) without a Postgres instance.
	persist bool
}

// Config holds the configuration for creating a new Service instance
type Config struct {
	ConfigName    string
	ConfigVersion int
	Persist       bool
}

// NewService creates a new Service instance
func NewService(cfg Config) (*Service, error) {
	if cfg.ConfigName == "" {
		return nil, fmt.Errorf("%w: config name cannot be empty", ErrInvalidOperation)
	}
	if cfg.ConfigVersion <= 0 {
		return nil, fmt.Errorf("%w: config version must be positive", ErrInvalidOperation)
	}

	svc := &Service{
		logger:        logger.GetForComponent("vault_service"),
		vaults:        make(map[uint64]*vault.Vault),
		configName:    cfg.ConfigName,
		configVersion: cfg.ConfigVersion,
		persist:       cfg.Persist,
	}

	svc.logger.Info().
		Str("configName", svc.configName).
		Int("configVersion", svc.configVersion).
		Bool("persist", svc.persist).
		Msg("Vault service created")

	return svc, nil
}

// RegisterVault adds a vault to the registry.
func (s *Service) RegisterVault(v *vault.Vault) error {
	if v == nil {
		return fmt.Errorf("%w: nil vault", ErrInvalidOperation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vaults[v.ID()]; exists {
		return fmt.Errorf("%w: id %d", ErrVaultExists, v.ID())
	}
	s.vaults[v.ID()] = v
	s.logger.Info().Uint64("vaultId", v.ID()).Str("assetDenom", v.AssetDenom()).Msg("Vault registered")
	return nil
}

// GetVault returns the vault with the given ID.
func (s *Service) GetVault(id uint64) (*vault.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vaults[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrVaultNotFound, id)
	}
	return v, nil
}

// ListVaults returns a snapshot of every registered vault's state.
func (s *Service) ListVaults() []types.VaultInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]types.VaultInfo, 0, len(s.vaults))
	for _, v := range s.vaults {
		infos = append(infos, v.Info())
	}
	return infos
}

// Deposit executes a deposit on the given vault and records a receipt.
func (s *Service) Deposit(vaultID uint64, caller, receiver string, assets sdkmath.Int) (*types.OperationReceipt, error) {
	v, err := s.GetVault(vaultID)
	if err != nil {
		return nil, err
	}
	shares, opErr := v.Deposit(caller, receiver, assets)
	return s.recordOperation(v, types.OpDeposit, caller, receiver, "",
		coinOrZero(v.AssetDenom(), assets),
		coinOrZero(v.ShareDenom(), shares), opErr)
}

// Mint executes a mint on the given vault and records a receipt.
func (s *Service) Mint(vaultID uint64, caller, receiver string, shares sdkmath.Int) (*types.OperationReceipt, error) {
	v, err := s.GetVault(vaultID)
	if err != nil {
		return nil, err
	}
	assets, opErr := v.Mint(caller, receiver, shares)
	return s.recordOperation(v, types.OpMint, caller, receiver, "",
		coinOrZero(v.ShareDenom(), shares),
		coinOrZero(v.AssetDenom(), assets), opErr)
}

// Withdraw executes a withdrawal on the given vault and records a receipt.
func (s *Service) Withdraw(vaultID uint64, caller, receiver, owner string, assets sdkmath.Int) (*types.OperationReceipt, error) {
	v, err := s.GetVault(vaultID)
	if err != nil {
		return nil, err
	}
	shares, opErr := v.Withdraw(caller, receiver, owner, assets)
	return s.recordOperation(v, types.OpWithdraw, caller, receiver, owner,
		coinOrZero(v.AssetDenom(), assets),
		coinOrZero(v.ShareDenom(), shares), opErr)
}

// Redeem executes a redemption on the given vault and records a receipt.
func (s *Service) Redeem(vaultID uint64, caller, receiver, owner string, shares sdkmath.Int) (*types.OperationReceipt, error) {
	v, err := s.GetVault(vaultID)
	if err != nil {
		return nil, err
	}
	assets, opErr := v.Redeem(caller, receiver, owner, shares)
	return s.recordOperation(v, types.OpRedeem, caller, receiver, owner,
		coinOrZero(v.ShareDenom(), shares),
		coinOrZero(v.AssetDenom(), assets), opErr)
}

// recordOperation builds the receipt for a completed (or failed) operation,
// persists it when persistence is enabled, and returns it alongside the
// operation's own error.
func (s *Service) recordOperation(v *vault.Vault, opType types.OperationType, caller, receiver, owner string, amountIn, amountOut sdktypes.Coin, opErr error) (*types.OperationReceipt, error) {
	operationID := uuid.New().String()
	opLogger := s.logger.With().
		Str("operation_id", operationID).
		Str("type", string(opType)).
		Uint64("vaultId", v.ID()).
		Logger()

	totals := v.Totals()
	receipt := &types.OperationReceipt{
		OperationID:      operationID,
		Sequence:         s.nextSequence(opLogger),
		VaultID:          v.ID(),
		Type:             opType,
		Caller:           caller,
		Receiver:         receiver,
		Owner:            owner,
		AmountIn:         amountIn,
		AmountOut:        amountOut,
		TotalAssetsAfter: totals.TotalAssets,
		TotalSharesAfter: totals.TotalShares,
		Success:          opErr == nil,
		Timestamp:        time.Now().UTC(),
	}
	if opErr != nil {
		receipt.ErrorMessage = opErr.Error()
		opLogger.Warn().Err(opErr).
			Str("caller", caller).
			Str("amountIn", amountIn.String()).
			Msg("Vault operation failed")
	} else {
		opLogger.Info().
			Str("caller", caller).
			Str("amountIn", amountIn.String()).
			Str("amountOut", amountOut.String()).
			Msg("Vault operation executed")
	}

	if s.persist {
		receiptID, err := state.SaveOperationReceipt(*receipt)
		if err != nil {
			opLogger.Error().Err(err).Msg("Failed to save operation receipt")
		} else {
			receipt.ReceiptID = receiptID
		}
	}

	return receipt, opErr
}

// nextSequence advances the persistent operation counter. When persistence
// is off, or the database fails, a timestamp stands in so receipts still
// order roughly.
func (s *Service) nextSequence(opLogger zerolog.Logger) int {
	if !s.persist {
		return int(time.Now().UnixNano() % 1_000_000_000)
	}
	sequence, err := state.NextOperationSequence()
	if err != nil {
		opLogger.Error().Err(err).Msg("Failed to advance operation sequence, using fallback")
		return int(time.Now().Unix() % 1_000_000)
	}
	return sequence
}

// RunLoop starts the periodic snapshot loop with the specified interval.
func (s *Service) RunLoop(ctx context.Context, interval time.Duration) {
	s.logger.Info().
		Dur("interval", interval).
		Msg("Starting snapshot loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Take the first snapshot immediately
	s.SnapshotVaults()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Snapshot loop stopped due to context cancellation")
			return
		case <-ticker.C:
			s.SnapshotVaults()
		}
	}
}

// SnapshotVaults records one snapshot per registered vault, including the
// conservation audit against lifetime receipt flows.
func (s *Service) SnapshotVaults() {
	for _, info := range s.ListVaults() {
		snapshot, err := s.buildSnapshot(info)
		if err != nil {
			s.logger.Error().Err(err).Uint64("vaultId", info.VaultID).Msg("Failed to build vault snapshot")
			continue
		}

		if !snapshot.ConservationOK {
			s.logger.Warn().
				Uint64("vaultId", info.VaultID).
				Str("totalAssets", snapshot.TotalAssets.String()).
				Str("assetsIn", snapshot.AssetsIn.String()).
				Str("assetsOut", snapshot.AssetsOut.String()).
				Msg("Conservation check failed for vault")
		}

		if s.persist {
			snapshotID, err := state.SaveVaultSnapshot(*snapshot)
			if err != nil {
				s.logger.Error().Err(err).Uint64("vaultId", info.VaultID).Msg("Failed to save vault snapshot")
				continue
			}
			s.logger.Info().
				Int64("snapshot_id", snapshotID).
				Uint64("vaultId", info.VaultID).
				Float64("exchangeRate", snapshot.ExchangeRate).
				Msg("Vault snapshot saved")
		}
	}
}

func (s *Service) buildSnapshot(info types.VaultInfo) (*types.VaultSnapshot, error) {
	assetsIn := sdkmath.ZeroInt()
	assetsOut := sdkmath.ZeroInt()
	if s.persist {
		var err error
		assetsIn, assetsOut, err = state.GetFlowTotals(info.VaultID, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("failed to load flow totals: %w", err)
		}
	}

	report, err := audit.BuildReport(info, assetsIn, assetsOut)
	if err != nil {
		return nil, fmt.Errorf("failed to build conservation report: %w", err)
	}

	return &types.VaultSnapshot{
		VaultID:        info.VaultID,
		Timestamp:      time.Now().UTC(),
		TotalAssets:    report.TotalAssets,
		TotalShares:    report.TotalShares,
		CustodyBalance: report.CustodyBalance,
		ExchangeRate:   report.ExchangeRate,
		AssetsIn:       report.AssetsIn,
		AssetsOut:      report.AssetsOut,
		ConservationOK: report.Conserved,
	}, nil
}

// coinOrZero guards against nil amounts from failed operations so receipts
// always carry a valid coin.
func coinOrZero(denom string, amount sdkmath.Int) sdktypes.Coin {
	if amount.IsNil() {
		amount = sdkmath.ZeroInt()
	}
	return sdktypes.Coin{Denom: denom, Amount: amount}
}
