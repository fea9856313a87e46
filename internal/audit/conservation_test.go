package audit

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openvault-labs/vsm/internal/types"
)

func info(totalAssets, totalShares, custody int64) types.VaultInfo {
	return types.VaultInfo{
		VaultID:        1,
		AssetDenom:     "uasset",
		ShareDenom:     "uvshare",
		TotalAssets:    sdkmath.NewInt(totalAssets),
		TotalShares:    sdkmath.NewInt(totalShares),
		CustodyBalance: sdkmath.NewInt(custody),
		AccountingMode: types.AccountingCached,
	}
}

func TestBuildReport(t *testing.T) {
	t.Run("balanced vault conserves", func(t *testing.T) {
		report, err := BuildReport(info(6_000, 6_000, 6_000), sdkmath.NewInt(10_000), sdkmath.NewInt(4_000))
		require.NoError(t, err)
		require.True(t, report.Conserved)
		require.Equal(t, sdkmath.NewInt(6_000), report.ExpectedAssets)
		require.True(t, report.DonationDrift.IsZero())
		require.InDelta(t, 1.0, report.ExchangeRate, 1e-9)
	})

	t.Run("assets above flows without drift fails conservation", func(t *testing.T) {
		report, err := BuildReport(info(6_001, 6_000, 6_000), sdkmath.NewInt(10_000), sdkmath.NewInt(4_000))
		require.NoError(t, err)
		require.False(t, report.Conserved)
	})

	t.Run("donation drift explains the excess", func(t *testing.T) {
		// Live-accounting vault after a 500 donation: custody and totals both
		// exceed the flows, but only by the drift.
		report, err := BuildReport(info(6_500, 6_000, 6_500), sdkmath.NewInt(10_000), sdkmath.NewInt(4_000))
		require.NoError(t, err)
		require.True(t, report.Conserved)
		require.Equal(t, sdkmath.NewInt(500), report.DonationDrift)
	})

	t.Run("negative total assets never conserve", func(t *testing.T) {
		report, err := BuildReport(info(-1, 6_000, 6_000), sdkmath.NewInt(10_000), sdkmath.NewInt(4_000))
		require.NoError(t, err)
		require.False(t, report.Conserved)
	})

	t.Run("empty vault has zero rate", func(t *testing.T) {
		report, err := BuildReport(info(0, 0, 0), sdkmath.ZeroInt(), sdkmath.ZeroInt())
		require.NoError(t, err)
		require.True(t, report.Conserved)
		require.Zero(t, report.ExchangeRate)
	})

	t.Run("nil flows rejected", func(t *testing.T) {
		_, err := BuildReport(info(0, 0, 0), sdkmath.Int{}, sdkmath.ZeroInt())
		require.ErrorIs(t, err, ErrInvalidFlow)
	})

	t.Run("negative flows rejected", func(t *testing.T) {
		_, err := BuildReport(info(0, 0, 0), sdkmath.NewInt(-1), sdkmath.ZeroInt())
		require.ErrorIs(t, err, ErrInvalidFlow)
	})
}
