package ledger

import (
	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
)

// Custody is a vault's view of its own account in the asset book. Transfers
// in and out move the underlying token between user accounts and the vault's
// custody account; Balance is the live custody holding, including any direct
// donations that bypassed the vault operations.
type Custody struct {
	book    *Book
	account string
}

// NewCustody binds a custody account in the given asset book.
func NewCustody(book *Book, account string) *Custody {
	return &Custody{book: book, account: account}
}

// Account returns the custody account address.
func (c *Custody) Account() string {
	return c.account
}

// Denom returns the underlying asset denom.
func (c *Custody) Denom() string {
	return c.book.Denom()
}

// TransferIn pulls `amount` of the underlying asset from `from` into custody.
func (c *Custody) TransferIn(from string, amount sdkmath.Int) error {
	return c.book.Transfer(from, c.account, amount)
}

// TransferOut pays `amount` of the underlying asset out of custody to `to`.
func (c *Custody) TransferOut(to string, amount sdkmath.Int) error {
	return c.book.Transfer(c.account, to, amount)
}

// Balance returns the live custody balance.
func (c *Custody) Balance() sdkmath.Int {
	return c.book.BalanceOf(c.account)
}

// Coin returns the live custody balance as a denominated coin.
func (c *Custody) Coin() sdktypes.Coin {
	return c.book.CoinOf(c.account)
}
