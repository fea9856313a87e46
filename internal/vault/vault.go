package vault

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/openvault-labs/vsm/internal/logger"
	"github.com/openvault-labs/vsm/internal/shares"
	"github.com/openvault-labs/vsm/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidVaultID      = errors.New("vault ID is invalid")
	ErrInvalidParameters   = errors.New("vault parameters are invalid")
	ErrNilCollaborator     = errors.New("collaborator is nil")
	ErrZeroShares          = errors.New("operation would mint or burn zero shares")
	ErrZeroAssets          = errors.New("operation would move zero assets")
	ErrBelowMinimumDeposit = errors.New("first deposit below vault minimum")
	ErrTransferFailed      = errors.New("asset custody transfer failed")
	ErrShareLedgerFailed   = errors.New("share ledger update failed")
)

// Vault owns the share accounting state of one pool. Every operation runs
// read-compute-mutate as a single critical section under the vault mutex;
// separate vaults are fully independent.
//
// Total assets are derived according to the configured accounting mode:
// cached keeps an explicit counter mutated only by the four operations, live
// reads the custody balance on every conversion (and therefore absorbs
// direct donations into the exchange rate).
type Vault struct {
	mu sync.Mutex

	id      uint64
	custody AssetCustody
	shares  ShareLedger
	conv    shares.Converter

	mode              types.AccountingMode
	minInitialDeposit sdkmath.Int
	cachedAssets      sdkmath.Int

	logger zerolog.Logger
}

// New creates a vault over the given collaborators with the given parameters.
func New(id uint64, custody AssetCustody, shareLedger ShareLedger, params types.VaultParameters) (*Vault, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: 0", ErrInvalidVaultID)
	}
	if custody == nil {
		return nil, fmt.Errorf("%w: asset custody", ErrNilCollaborator)
	}
	if shareLedger == nil {
		return nil, fmt.Errorf("%w: share ledger", ErrNilCollaborator)
	}
	normalized, err := normalizeParameters(params)
	if err != nil {
		return nil, err
	}

	v := &Vault{
		id:                id,
		custody:           custody,
		shares:            shareLedger,
		conv:              shares.NewOffsetConverter(normalized.VirtualAssets, normalized.VirtualShares),
		mode:              normalized.AccountingMode,
		minInitialDeposit: normalized.MinInitialDeposit,
		cachedAssets:      sdkmath.ZeroInt(),
		logger:            logger.GetForComponent("vault").With().Uint64("vault_id", id).Logger(),
	}

	v.logger.Info().
		Str("asset_denom", custody.Denom()).
		Str("share_denom", shareLedger.Denom()).
		Str("accounting_mode", string(normalized.AccountingMode)).
		Str("virtual_assets", normalized.VirtualAssets.String()).
		Str("virtual_shares", normalized.VirtualShares.String()).
		Str("min_initial_deposit", normalized.MinInitialDeposit.String()).
		Msg("Vault created")

	return v, nil
}

// normalizeParameters fills defaults and rejects inconsistent parameters.
func normalizeParameters(params types.VaultParameters) (types.VaultParameters, error) {
	if params.AccountingMode == "" {
		params.AccountingMode = types.AccountingCached
	}
	if params.AccountingMode != types.AccountingCached && params.AccountingMode != types.AccountingLive {
		return params, fmt.Errorf("%w: unknown accounting mode %q", ErrInvalidParameters, params.AccountingMode)
	}
	for name, field := range map[string]*sdkmath.Int{
		"virtual_assets":      &params.VirtualAssets,
		"virtual_shares":      &params.VirtualShares,
		"min_initial_deposit": &params.MinInitialDeposit,
	} {
		if field.IsNil() {
			*field = sdkmath.ZeroInt()
		}
		if field.IsNegative() {
			return params, fmt.Errorf("%w: %s is negative (%s)", ErrInvalidParameters, name, field)
		}
	}
	// A one-sided offset skews the bootstrap rate instead of protecting it.
	if params.VirtualAssets.IsZero() != params.VirtualShares.IsZero() {
		return params, fmt.Errorf("%w: virtual offsets must be set together", ErrInvalidParameters)
	}
	return params, nil
}

// ID returns the vault identifier.
func (v *Vault) ID() uint64 {
	return v.id
}

// totalsLocked reads a consistent totals pair. Callers must hold v.mu.
func (v *Vault) totalsLocked() types.PoolTotals {
	totalAssets := v.cachedAssets
	if v.mode == types.AccountingLive {
		totalAssets = v.custody.Balance()
	}
	return types.PoolTotals{
		TotalAssets: totalAssets,
		TotalShares: v.shares.TotalSupply(),
	}
}

// Totals returns the current totals pair under the vault lock.
func (v *Vault) Totals() types.PoolTotals {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.totalsLocked()
}

// Info returns the externally visible state of the vault.
func (v *Vault) Info() types.VaultInfo {
	v.mu.Lock()
	defer v.mu.Unlock()
	totals := v.totalsLocked()
	return types.VaultInfo{
		VaultID:        v.id,
		AssetDenom:     v.custody.Denom(),
		ShareDenom:     v.shares.Denom(),
		TotalAssets:    totals.TotalAssets,
		TotalShares:    totals.TotalShares,
		CustodyBalance: v.custody.Balance(),
		AccountingMode: v.mode,
	}
}

// AssetDenom returns the underlying asset denom.
func (v *Vault) AssetDenom() string {
	return v.custody.Denom()
}

// ShareDenom returns the share denom.
func (v *Vault) ShareDenom() string {
	return v.shares.Denom()
}

// ConvertToShares converts an asset amount to shares at the current rate,
// rounded down.
func (v *Vault) ConvertToShares(assets sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conv.ConvertToShares(assets, v.totalsLocked())
}

// ConvertToAssets converts a share amount to assets at the current rate,
// rounded down.
func (v *Vault) ConvertToAssets(sharesIn sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conv.ConvertToAssets(sharesIn, v.totalsLocked())
}

// Convert dispatches an explicit conversion request at the current rate.
func (v *Vault) Convert(req types.ConversionRequest) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conv.Convert(req, v.totalsLocked())
}

// PreviewDeposit returns exactly the shares Deposit would mint for `assets`.
func (v *Vault) PreviewDeposit(assets sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conv.PreviewDeposit(assets, v.totalsLocked())
}

// PreviewMint returns exactly the assets Mint would charge for `sharesOut`.
func (v *Vault) PreviewMint(sharesOut sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conv.PreviewMint(sharesOut, v.totalsLocked())
}

// PreviewWithdraw returns exactly the shares Withdraw would burn for `assets`.
func (v *Vault) PreviewWithdraw(assets sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conv.PreviewWithdraw(assets, v.totalsLocked())
}

// PreviewRedeem returns exactly the assets Redeem would pay for `sharesIn`.
func (v *Vault) PreviewRedeem(sharesIn sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conv.PreviewRedeem(sharesIn, v.totalsLocked())
}

// Deposit pulls `assets` from the caller and mints the rounded-down share
// counterpart to the receiver. Returns the minted shares.
func (v *Vault) Deposit(caller, receiver string, assets sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	totals := v.totalsLocked()
	sharesOut, err := v.conv.PreviewDeposit(assets, totals)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if err := v.checkFirstDepositLocked(totals, assets); err != nil {
		return sdkmath.Int{}, err
	}
	// A deposit that mints nothing would move assets for free.
	if sharesOut.IsZero() {
		return sdkmath.Int{}, fmt.Errorf("%w: deposit of %s %s", ErrZeroShares, assets, v.custody.Denom())
	}

	if err := v.custody.TransferIn(caller, assets); err != nil {
		return sdkmath.Int{}, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if err := v.shares.Issue(receiver, sharesOut); err != nil {
		// Undo the pull so the failed operation leaves no trace.
		if undoErr := v.custody.TransferOut(caller, assets); undoErr != nil {
			v.logger.Error().Err(undoErr).Msg("Failed to return assets after share issuance failure")
		}
		return sdkmath.Int{}, fmt.Errorf("%w: %w", ErrShareLedgerFailed, err)
	}
	v.creditAssetsLocked(assets)

	v.logger.Debug().
		Str("caller", caller).
		Str("receiver", receiver).
		Str("assets", assets.String()).
		Str("shares", sharesOut.String()).
		Msg("Deposit executed")

	return sharesOut, nil
}

// Mint pulls the rounded-up asset cost from the caller and issues exactly
// `sharesOut` shares to the receiver. Returns the assets charged.
func (v *Vault) Mint(caller, receiver string, sharesOut sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	totals := v.totalsLocked()
	assets, err := v.conv.PreviewMint(sharesOut, totals)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if sharesOut.IsZero() {
		return sdkmath.Int{}, fmt.Errorf("%w: mint of zero shares", ErrZeroShares)
	}
	// Free shares would dilute every existing holder.
	if assets.IsZero() {
		return sdkmath.Int{}, fmt.Errorf("%w: mint of %s shares costs nothing", ErrZeroAssets, sharesOut)
	}
	if err := v.checkFirstDepositLocked(totals, assets); err != nil {
		return sdkmath.Int{}, err
	}

	if err := v.custody.TransferIn(caller, assets); err != nil {
		return sdkmath.Int{}, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if err := v.shares.Issue(receiver, sharesOut); err != nil {
		if undoErr := v.custody.TransferOut(caller, assets); undoErr != nil {
			v.logger.Error().Err(undoErr).Msg("Failed to return assets after share issuance failure")
		}
		return sdkmath.Int{}, fmt.Errorf("%w: %w", ErrShareLedgerFailed, err)
	}
	v.creditAssetsLocked(assets)

	v.logger.Debug().
		Str("caller", caller).
		Str("receiver", receiver).
		Str("shares", sharesOut.String()).
		Str("assets", assets.String()).
		Msg("Mint executed")

	return assets, nil
}

// Withdraw burns the rounded-up share counterpart from the owner and pays
// exactly `assets` to the receiver. Returns the shares burned.
//
// The share burn happens before the asset transfer so a re-entering receiver
// can never observe an inconsistent totals pair.
func (v *Vault) Withdraw(caller, receiver, owner string, assets sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	totals := v.totalsLocked()
	sharesBurned, err := v.conv.PreviewWithdraw(assets, totals)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if sharesBurned.IsZero() {
		return sdkmath.Int{}, fmt.Errorf("%w: withdraw of %s %s", ErrZeroShares, assets, v.custody.Denom())
	}

	if err := v.burnFromLocked(caller, owner, sharesBurned); err != nil {
		return sdkmath.Int{}, err
	}
	if err := v.custody.TransferOut(receiver, assets); err != nil {
		v.restoreSharesLocked(caller, owner, sharesBurned)
		return sdkmath.Int{}, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	v.debitAssetsLocked(assets)

	v.logger.Debug().
		Str("caller", caller).
		Str("receiver", receiver).
		Str("owner", owner).
		Str("assets", assets.String()).
		Str("shares_burned", sharesBurned.String()).
		Msg("Withdraw executed")

	return sharesBurned, nil
}

// Redeem burns exactly `sharesIn` from the owner and pays the rounded-down
// asset counterpart to the receiver. Returns the assets paid out.
func (v *Vault) Redeem(caller, receiver, owner string, sharesIn sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	totals := v.totalsLocked()
	assets, err := v.conv.PreviewRedeem(sharesIn, totals)
	if err != nil {
		return sdkmath.Int{}, err
	}
	// Burning shares for nothing destroys the owner's value.
	if assets.IsZero() {
		return sdkmath.Int{}, fmt.Errorf("%w: redeem of %s %s", ErrZeroAssets, sharesIn, v.shares.Denom())
	}

	if err := v.burnFromLocked(caller, owner, sharesIn); err != nil {
		return sdkmath.Int{}, err
	}
	if err := v.custody.TransferOut(receiver, assets); err != nil {
		v.restoreSharesLocked(caller, owner, sharesIn)
		return sdkmath.Int{}, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	v.debitAssetsLocked(assets)

	v.logger.Debug().
		Str("caller", caller).
		Str("receiver", receiver).
		Str("owner", owner).
		Str("shares", sharesIn.String()).
		Str("assets", assets.String()).
		Msg("Redeem executed")

	return assets, nil
}

// checkFirstDepositLocked enforces the minimum-first-deposit mitigation when
// the pool has no outstanding shares.
func (v *Vault) checkFirstDepositLocked(totals types.PoolTotals, assets sdkmath.Int) error {
	if v.minInitialDeposit.IsZero() || !totals.TotalShares.IsZero() {
		return nil
	}
	if assets.LT(v.minInitialDeposit) {
		return fmt.Errorf("%w: %s < %s %s", ErrBelowMinimumDeposit, assets, v.minInitialDeposit, v.custody.Denom())
	}
	return nil
}

// burnFromLocked performs the authorization check and the share burn, in
// that order, with allowance restored if the burn itself fails.
func (v *Vault) burnFromLocked(caller, owner string, amount sdkmath.Int) error {
	spentAllowance := false
	if caller != owner {
		if err := v.shares.SpendAllowance(owner, caller, amount); err != nil {
			return err
		}
		spentAllowance = true
	}
	if err := v.shares.Burn(owner, amount); err != nil {
		if spentAllowance {
			restored := v.shares.Allowance(owner, caller).Add(amount)
			if undoErr := v.shares.Approve(owner, caller, restored); undoErr != nil {
				v.logger.Error().Err(undoErr).Msg("Failed to restore allowance after burn failure")
			}
		}
		return fmt.Errorf("%w: %w", ErrShareLedgerFailed, err)
	}
	return nil
}

// restoreSharesLocked re-issues shares burned by an operation whose asset
// transfer failed, keeping the operation all-or-nothing.
func (v *Vault) restoreSharesLocked(caller, owner string, amount sdkmath.Int) {
	if err := v.shares.Issue(owner, amount); err != nil {
		v.logger.Error().Err(err).Msg("Failed to re-issue shares after transfer failure")
		return
	}
	if caller != owner {
		restored := v.shares.Allowance(owner, caller).Add(amount)
		if err := v.shares.Approve(owner, caller, restored); err != nil {
			v.logger.Error().Err(err).Msg("Failed to restore allowance after transfer failure")
		}
	}
}

func (v *Vault) creditAssetsLocked(assets sdkmath.Int) {
	if v.mode == types.AccountingCached {
		v.cachedAssets = v.cachedAssets.Add(assets)
	}
}

func (v *Vault) debitAssetsLocked(assets sdkmath.Int) {
	if v.mode == types.AccountingCached {
		v.cachedAssets = v.cachedAssets.Sub(assets)
	}
}
