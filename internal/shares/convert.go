/*

This file contains the share/asset conversion layer. Every conversion applies
the single governing rounding rule: the dependent quantity rounds in the
direction that minimizes value leaving the pool. Preview functions use the
same code paths as the mutating operations, so preview and actual results
match exactly.

*/

package shares

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/openvault-labs/vsm/internal/types"
	"github.com/openvault-labs/vsm/internal/vaultmath"
)

// Converter translates between asset-space and share-space quantities at the
// exchange rate implied by a pool's totals.
//
// VirtualAssets and VirtualShares are offsets added to the pool totals in
// every formula. Both zero gives the plain pro-rata behavior with a 1:1
// bootstrap, which is exploitable by the donation-based inflation attack;
// non-zero offsets harden the rate against it.
type Converter struct {
	VirtualAssets sdkmath.Int
	VirtualShares sdkmath.Int
}

// NewConverter returns a converter with no virtual offsets.
func NewConverter() Converter {
	return Converter{
		VirtualAssets: sdkmath.ZeroInt(),
		VirtualShares: sdkmath.ZeroInt(),
	}
}

// NewOffsetConverter returns a converter with the given virtual offsets.
func NewOffsetConverter(virtualAssets, virtualShares sdkmath.Int) Converter {
	return Converter{
		VirtualAssets: virtualAssets,
		VirtualShares: virtualShares,
	}
}

// effectiveTotals applies the virtual offsets to a consistent totals read.
func (c Converter) effectiveTotals(totals types.PoolTotals) (totalAssets, totalShares sdkmath.Int, err error) {
	if totals.TotalAssets.IsNil() || totals.TotalShares.IsNil() {
		return sdkmath.Int{}, sdkmath.Int{}, vaultmath.ErrNilInput
	}
	if totals.TotalAssets.IsNegative() || totals.TotalShares.IsNegative() {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("%w: totals %s/%s", vaultmath.ErrNegativeInput, totals.TotalAssets, totals.TotalShares)
	}
	totalAssets = totals.TotalAssets
	totalShares = totals.TotalShares
	if !c.VirtualAssets.IsNil() && !c.VirtualAssets.IsZero() {
		totalAssets = totalAssets.Add(c.VirtualAssets)
	}
	if !c.VirtualShares.IsNil() && !c.VirtualShares.IsZero() {
		totalShares = totalShares.Add(c.VirtualShares)
	}
	return totalAssets, totalShares, nil
}

// ConvertToShares returns the number of shares worth `assets` at the current
// rate, rounded DOWN.
//
// On an empty pool (effective total shares zero) the first depositor
// establishes a 1:1 rate and receives `assets` shares unchanged. A pool with
// outstanding shares but zero assets is anomalous and surfaces
// ErrDivisionByZero from the primitive.
func (c Converter) ConvertToShares(assets sdkmath.Int, totals types.PoolTotals) (sdkmath.Int, error) {
	if err := validateAmount(assets); err != nil {
		return sdkmath.Int{}, err
	}
	totalAssets, totalShares, err := c.effectiveTotals(totals)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if totalShares.IsZero() {
		return assets, nil
	}
	return vaultmath.MulDivDown(assets, totalShares, totalAssets)
}

// ConvertToAssets returns the asset value of `shares` at the current rate,
// rounded DOWN. Shares against an empty pool have no value and convert to
// zero.
func (c Converter) ConvertToAssets(sharesIn sdkmath.Int, totals types.PoolTotals) (sdkmath.Int, error) {
	if err := validateAmount(sharesIn); err != nil {
		return sdkmath.Int{}, err
	}
	totalAssets, totalShares, err := c.effectiveTotals(totals)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if totalShares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	return vaultmath.MulDivDown(sharesIn, totalAssets, totalShares)
}

// PreviewDeposit returns the shares Deposit would mint for `assets`.
// Rounds DOWN.
func (c Converter) PreviewDeposit(assets sdkmath.Int, totals types.PoolTotals) (sdkmath.Int, error) {
	return c.ConvertToShares(assets, totals)
}

// PreviewMint returns the assets Mint would charge for `sharesOut`.
// Rounds UP, except on the 1:1 bootstrap where shares and assets are equal.
func (c Converter) PreviewMint(sharesOut sdkmath.Int, totals types.PoolTotals) (sdkmath.Int, error) {
	if err := validateAmount(sharesOut); err != nil {
		return sdkmath.Int{}, err
	}
	totalAssets, totalShares, err := c.effectiveTotals(totals)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if totalShares.IsZero() {
		return sharesOut, nil
	}
	return vaultmath.MulDivUp(sharesOut, totalAssets, totalShares)
}

// PreviewWithdraw returns the shares Withdraw would burn to pay out `assets`.
// Rounds UP. With no shares outstanding there is nothing to burn.
func (c Converter) PreviewWithdraw(assets sdkmath.Int, totals types.PoolTotals) (sdkmath.Int, error) {
	if err := validateAmount(assets); err != nil {
		return sdkmath.Int{}, err
	}
	totalAssets, totalShares, err := c.effectiveTotals(totals)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if totalShares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	return vaultmath.MulDivUp(assets, totalShares, totalAssets)
}

// PreviewRedeem returns the assets Redeem would pay out for `sharesIn`.
// Rounds DOWN.
func (c Converter) PreviewRedeem(sharesIn sdkmath.Int, totals types.PoolTotals) (sdkmath.Int, error) {
	return c.ConvertToAssets(sharesIn, totals)
}

// Convert dispatches a ConversionRequest against the given totals. It exists
// for callers (the web convert endpoint) that express conversions as data.
func (c Converter) Convert(req types.ConversionRequest, totals types.PoolTotals) (sdkmath.Int, error) {
	switch {
	case req.Direction == types.AssetsToShares && req.Rounding == types.RoundDown:
		return c.ConvertToShares(req.AmountIn, totals)
	case req.Direction == types.AssetsToShares && req.Rounding == types.RoundUp:
		return c.PreviewWithdraw(req.AmountIn, totals)
	case req.Direction == types.SharesToAssets && req.Rounding == types.RoundDown:
		return c.ConvertToAssets(req.AmountIn, totals)
	case req.Direction == types.SharesToAssets && req.Rounding == types.RoundUp:
		return c.PreviewMint(req.AmountIn, totals)
	default:
		return sdkmath.Int{}, fmt.Errorf("invalid conversion request: direction=%q rounding=%q", req.Direction, req.Rounding)
	}
}

func validateAmount(amount sdkmath.Int) error {
	if amount.IsNil() {
		return vaultmath.ErrNilInput
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount %s", vaultmath.ErrNegativeInput, amount)
	}
	return nil
}
