/*

This file contains an in-memory fungible-token book used for both the
underlying asset token and the vault share token. It plays the role of the
external asset/share ledgers the vault operations collaborate with: balances,
allowances, and total supply, nothing more.

*/

package ledger

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidAmount         = errors.New("amount is invalid")
	ErrInvalidAccount        = errors.New("account is invalid")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Book is a single-denom balance and allowance ledger. All methods are safe
// for concurrent use.
type Book struct {
	mu         sync.RWMutex
	denom      string
	balances   map[string]sdkmath.Int
	allowances map[string]map[string]sdkmath.Int
	supply     sdkmath.Int
}

// NewBook creates an empty ledger for the given denom.
func NewBook(denom string) *Book {
	return &Book{
		denom:      denom,
		balances:   make(map[string]sdkmath.Int),
		allowances: make(map[string]map[string]sdkmath.Int),
		supply:     sdkmath.ZeroInt(),
	}
}

// Denom returns the denom this book accounts for.
func (b *Book) Denom() string {
	return b.denom
}

// Issue credits `to` and grows total supply.
func (b *Book) Issue(to string, amount sdkmath.Int) error {
	if err := validate(to, amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.balances[to] = b.balanceLocked(to).Add(amount)
	b.supply = b.supply.Add(amount)
	return nil
}

// Burn debits `from` and shrinks total supply.
func (b *Book) Burn(from string, amount sdkmath.Int) error {
	if err := validate(from, amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	balance := b.balanceLocked(from)
	if balance.LT(amount) {
		return fmt.Errorf("%w: burn %s %s from %s holding %s", ErrInsufficientBalance, amount, b.denom, from, balance)
	}
	b.balances[from] = balance.Sub(amount)
	b.supply = b.supply.Sub(amount)
	return nil
}

// Transfer moves `amount` from one account to another.
func (b *Book) Transfer(from, to string, amount sdkmath.Int) error {
	if err := validate(from, amount); err != nil {
		return err
	}
	if to == "" {
		return fmt.Errorf("%w: empty recipient", ErrInvalidAccount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	balance := b.balanceLocked(from)
	if balance.LT(amount) {
		return fmt.Errorf("%w: transfer %s %s from %s holding %s", ErrInsufficientBalance, amount, b.denom, from, balance)
	}
	b.balances[from] = balance.Sub(amount)
	b.balances[to] = b.balanceLocked(to).Add(amount)
	return nil
}

// Approve sets the allowance of `spender` over `owner`'s balance.
func (b *Book) Approve(owner, spender string, amount sdkmath.Int) error {
	if err := validate(owner, amount); err != nil {
		return err
	}
	if spender == "" {
		return fmt.Errorf("%w: empty spender", ErrInvalidAccount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.allowances[owner] == nil {
		b.allowances[owner] = make(map[string]sdkmath.Int)
	}
	b.allowances[owner][spender] = amount
	return nil
}

// Allowance returns the remaining allowance of `spender` over `owner`.
func (b *Book) Allowance(owner, spender string) sdkmath.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if granted, ok := b.allowances[owner][spender]; ok {
		return granted
	}
	return sdkmath.ZeroInt()
}

// SpendAllowance consumes `amount` of the spender's allowance over owner.
func (b *Book) SpendAllowance(owner, spender string, amount sdkmath.Int) error {
	if err := validate(owner, amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	granted, ok := b.allowances[owner][spender]
	if !ok || granted.LT(amount) {
		current := sdkmath.ZeroInt()
		if ok {
			current = granted
		}
		return fmt.Errorf("%w: %s spending %s %s of %s, allowance %s", ErrInsufficientAllowance, spender, amount, b.denom, owner, current)
	}
	b.allowances[owner][spender] = granted.Sub(amount)
	return nil
}

// BalanceOf returns the balance of `owner`.
func (b *Book) BalanceOf(owner string) sdkmath.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balanceLocked(owner)
}

// CoinOf returns the balance of `owner` as a denominated coin.
func (b *Book) CoinOf(owner string) sdktypes.Coin {
	return sdktypes.NewCoin(b.denom, b.BalanceOf(owner))
}

// TotalSupply returns the sum of all balances ever minted minus burned.
func (b *Book) TotalSupply() sdkmath.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.supply
}

func (b *Book) balanceLocked(account string) sdkmath.Int {
	if balance, ok := b.balances[account]; ok {
		return balance
	}
	return sdkmath.ZeroInt()
}

func validate(account string, amount sdkmath.Int) error {
	if account == "" {
		return fmt.Errorf("%w: empty account", ErrInvalidAccount)
	}
	if amount.IsNil() {
		return fmt.Errorf("%w: nil amount", ErrInvalidAmount)
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, amount)
	}
	return nil
}
