/*

This file contains the core vault accounting types: pool totals, conversion
requests, and the per-vault parameter set that controls accounting mode and
inflation-attack mitigations.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// Direction selects which way a conversion runs.
type Direction string

const (
	AssetsToShares Direction = "ASSETS_TO_SHARES"
	SharesToAssets Direction = "SHARES_TO_ASSETS"
)

// Rounding selects the rounding mode of the dependent quantity.
type Rounding string

const (
	RoundDown Rounding = "DOWN"
	RoundUp   Rounding = "UP"
)

// ConversionRequest is an ephemeral value object describing a single
// conversion. It is never persisted.
type ConversionRequest struct {
	AmountIn  sdkmath.Int `json:"amount_in"`
	Direction Direction   `json:"direction"`
	Rounding  Rounding    `json:"rounding"`
}

// PoolTotals is a consistent read of a vault's aggregate state, taken inside
// the vault's critical section.
type PoolTotals struct {
	TotalAssets sdkmath.Int `json:"total_assets"`
	TotalShares sdkmath.Int `json:"total_shares"`
}

// AccountingMode controls how a vault derives its total assets.
//
// AccountingCached keeps an explicit counter mutated only by the four vault
// operations; direct donations to custody are ignored by conversions.
// AccountingLive queries the custody balance on every conversion, which
// silently absorbs donations and is the variant vulnerable to the
// donation-based inflation attack.
type AccountingMode string

const (
	AccountingCached AccountingMode = "cached"
	AccountingLive   AccountingMode = "live"
)

// VaultParameters is the versioned, persisted configuration of one vault.
// VirtualAssets/VirtualShares are offsets added to the pool totals in every
// conversion; both zero disables the mitigation. MinInitialDeposit guards the
// 1:1 bootstrap; zero disables it.
type VaultParameters struct {
	ParamsID    int64     `json:"params_id,omitempty"`
	Version     int       `json:"version"`
	ConfigName  string    `json:"config_name"`
	IsActive    bool      `json:"is_active"`
	ActivatedAt time.Time `json:"activated_at,omitempty"`

	AccountingMode    AccountingMode `json:"accounting_mode"`
	VirtualAssets     sdkmath.Int    `json:"virtual_assets"`
	VirtualShares     sdkmath.Int    `json:"virtual_shares"`
	MinInitialDeposit sdkmath.Int    `json:"min_initial_deposit"`
}

// VaultInfo is the externally visible description of a vault, served by the
// web layer and embedded in snapshots.
type VaultInfo struct {
	VaultID        uint64         `json:"vault_id"`
	AssetDenom     string         `json:"asset_denom"`
	ShareDenom     string         `json:"share_denom"`
	TotalAssets    sdkmath.Int    `json:"total_assets"`
	TotalShares    sdkmath.Int    `json:"total_shares"`
	CustodyBalance sdkmath.Int    `json:"custody_balance"`
	AccountingMode AccountingMode `json:"accounting_mode"`
}
