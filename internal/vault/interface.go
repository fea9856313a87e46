package vault

import (
	sdkmath "cosmossdk.io/math"
)

// AssetCustody defines the vault's interface to the underlying asset ledger.
// This interface abstracts away where the asset token actually lives (an
// in-memory book, a database-backed ledger, a bridge to a chain), allowing
// the accounting core to stay independent of it.
type AssetCustody interface {
	// TransferIn pulls `amount` of the underlying asset from `from` into
	// pool custody. A failure aborts the surrounding operation.
	TransferIn(from string, amount sdkmath.Int) error

	// TransferOut pays `amount` of the underlying asset out of custody to `to`.
	TransferOut(to string, amount sdkmath.Int) error

	// Balance returns the live custody balance, including any assets sent
	// directly to custody without a deposit.
	Balance() sdkmath.Int

	// Denom returns the underlying asset denom.
	Denom() string
}

// ShareLedger defines the vault's interface to the share token ledger. Share
// issuance and burning go exclusively through the vault operations; balances
// and allowances are owned by the ledger.
type ShareLedger interface {
	// Issue mints `amount` shares to `to`.
	Issue(to string, amount sdkmath.Int) error

	// Burn destroys `amount` shares held by `from`.
	Burn(from string, amount sdkmath.Int) error

	// BalanceOf returns the share balance of `owner`.
	BalanceOf(owner string) sdkmath.Int

	// Allowance returns how many of `owner`'s shares `spender` may burn.
	Allowance(owner, spender string) sdkmath.Int

	// SpendAllowance consumes `amount` of the spender's allowance.
	SpendAllowance(owner, spender string, amount sdkmath.Int) error

	// Approve sets the allowance of `spender` over `owner`'s shares.
	Approve(owner, spender string, amount sdkmath.Int) error

	// TotalSupply returns all outstanding shares.
	TotalSupply() sdkmath.Int

	// Denom returns the share denom.
	Denom() string
}
