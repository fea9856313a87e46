/*

This file contains the persisted record types: one receipt per mutating vault
operation and periodic per-vault snapshots written by the service loop.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
)

// OperationType identifies one of the four mutating vault operations.
type OperationType string

const (
	OpDeposit  OperationType = "DEPOSIT"
	OpMint     OperationType = "MINT"
	OpWithdraw OperationType = "WITHDRAW"
	OpRedeem   OperationType = "REDEEM"
)

// OperationReceipt records the outcome of a single mutating operation.
// AmountIn is the caller-specified quantity; AmountOut is the computed
// dependent quantity (shares for deposit/withdraw, assets for mint/redeem).
type OperationReceipt struct {
	ReceiptID   int64         `json:"receipt_id,omitempty"` // Auto-incremented by DB
	OperationID string        `json:"operation_id"`         // UUID for tracing logs
	Sequence    int           `json:"sequence"`             // Global operation counter
	VaultID     uint64        `json:"vault_id"`
	Type        OperationType `json:"type"`

	Caller   string `json:"caller"`
	Receiver string `json:"receiver"`
	Owner    string `json:"owner,omitempty"` // Withdraw/redeem only

	AmountIn  sdktypes.Coin `json:"amount_in"`
	AmountOut sdktypes.Coin `json:"amount_out"`

	TotalAssetsAfter sdkmath.Int `json:"total_assets_after"`
	TotalSharesAfter sdkmath.Int `json:"total_shares_after"`

	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// VaultSnapshot is a periodic record of one vault's state, written by the
// service snapshot loop and used by the dashboard and the conservation audit.
type VaultSnapshot struct {
	SnapshotID int64     `json:"snapshot_id,omitempty"`
	VaultID    uint64    `json:"vault_id"`
	Timestamp  time.Time `json:"timestamp"`

	TotalAssets    sdkmath.Int `json:"total_assets"`
	TotalShares    sdkmath.Int `json:"total_shares"`
	CustodyBalance sdkmath.Int `json:"custody_balance"`

	// ExchangeRate is assets-per-share for display only; all accounting is
	// integer.
	ExchangeRate float64 `json:"exchange_rate"`

	// Lifetime flows recomputed from receipts at snapshot time.
	AssetsIn  sdkmath.Int `json:"assets_in"`
	AssetsOut sdkmath.Int `json:"assets_out"`

	ConservationOK bool `json:"conservation_ok"`
}

// VaultSummary aggregates receipt statistics for one vault, served by the
// web layer.
type VaultSummary struct {
	VaultID         uint64      `json:"vault_id"`
	OperationCount  int         `json:"operation_count"`
	DepositCount    int         `json:"deposit_count"`
	MintCount       int         `json:"mint_count"`
	WithdrawCount   int         `json:"withdraw_count"`
	RedeemCount     int         `json:"redeem_count"`
	FailedCount     int         `json:"failed_count"`
	AssetsIn        sdkmath.Int `json:"assets_in"`
	AssetsOut       sdkmath.Int `json:"assets_out"`
	LastOperationAt *time.Time  `json:"last_operation_at,omitempty"`
}
