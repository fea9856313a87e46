package simulations

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openvault-labs/vsm/internal/config"
	"github.com/openvault-labs/vsm/internal/types"
)

// classicScenario is the textbook first-depositor attack: seed one unit,
// donate heavily, wait for a victim depositing less than the donation.
func classicScenario(params types.VaultParameters) InflationScenario {
	return InflationScenario{
		Params:        params,
		AttackerSeed:  sdkmath.NewInt(1),
		Donation:      sdkmath.NewInt(10_000),
		VictimDeposit: sdkmath.NewInt(9_999),
	}
}

func TestInflationAttackUnmitigated(t *testing.T) {
	result, err := RunInflationAttack(classicScenario(config.UnmitigatedVaultParameters))
	require.NoError(t, err)

	// The victim's whole deposit rounds to zero shares against the skewed
	// rate; the vault rejects it, so the direct theft variant is blocked.
	require.True(t, result.VictimRejected)
	require.True(t, result.VictimShares.IsZero())

	// The attacker recovers their own seed and donation but nothing more.
	require.False(t, result.Exploitable)
	require.True(t, result.AttackerProfit.LTE(sdkmath.ZeroInt()))
}

func TestInflationAttackRoundingCapture(t *testing.T) {
	// A victim deposit large enough to mint one share still loses everything
	// above the single share's value to the attacker on an unmitigated vault.
	scenario := InflationScenario{
		Params:        config.UnmitigatedVaultParameters,
		AttackerSeed:  sdkmath.NewInt(1),
		Donation:      sdkmath.NewInt(10_000),
		VictimDeposit: sdkmath.NewInt(15_000),
	}

	result, err := RunInflationAttack(scenario)
	require.NoError(t, err)

	require.False(t, result.VictimRejected)
	require.Equal(t, sdkmath.NewInt(1), result.VictimShares)
	require.True(t, result.VictimLoss.IsPositive(),
		"victim loss: %s", result.VictimLoss)
	require.True(t, result.AttackerProfit.IsPositive(),
		"attacker profit: %s", result.AttackerProfit)
	require.True(t, result.Exploitable)
}

func TestInflationAttackBlockedByMinimumDeposit(t *testing.T) {
	params := config.UnmitigatedVaultParameters
	params.MinInitialDeposit = sdkmath.NewInt(1_000)

	result, err := RunInflationAttack(classicScenario(params))
	require.NoError(t, err)

	// The dust seed never lands, so there is no rate to inflate.
	require.True(t, result.AttackerShares.IsZero())
	require.False(t, result.Exploitable)
}

func TestInflationAttackBlockedByVirtualOffsets(t *testing.T) {
	params := config.UnmitigatedVaultParameters
	params.VirtualAssets = sdkmath.NewInt(1)
	params.VirtualShares = sdkmath.NewInt(1_000_000)

	scenario := InflationScenario{
		Params:        params,
		AttackerSeed:  sdkmath.NewInt(1),
		Donation:      sdkmath.NewInt(10_000),
		VictimDeposit: sdkmath.NewInt(15_000),
	}

	result, err := RunInflationAttack(scenario)
	require.NoError(t, err)

	// The virtual share reserve keeps the rate fine-grained, so the victim
	// mints real shares and the attacker cannot recover their donation.
	require.False(t, result.VictimRejected)
	require.True(t, result.VictimShares.IsPositive())
	require.True(t, result.AttackerProfit.IsNegative(),
		"attacker profit: %s", result.AttackerProfit)
	require.False(t, result.Exploitable)
}

func TestInflationAttackBlockedByCachedAccounting(t *testing.T) {
	params := config.UnmitigatedVaultParameters
	params.AccountingMode = types.AccountingCached

	result, err := RunInflationAttack(classicScenario(params))
	require.NoError(t, err)

	// Cached accounting never sees the donation, so the rate stays 1:1: the
	// victim keeps full value and the attacker forfeits the donation.
	require.False(t, result.VictimRejected)
	require.Equal(t, sdkmath.NewInt(9_999), result.VictimShares)
	require.True(t, result.VictimLoss.IsZero())
	require.True(t, result.AttackerProfit.IsNegative())
	require.False(t, result.Exploitable)
}

func TestScenarioValidation(t *testing.T) {
	t.Run("nil amount", func(t *testing.T) {
		scenario := classicScenario(config.UnmitigatedVaultParameters)
		scenario.Donation = sdkmath.Int{}
		_, err := RunInflationAttack(scenario)
		require.ErrorIs(t, err, ErrInvalidScenario)
	})

	t.Run("negative amount", func(t *testing.T) {
		scenario := classicScenario(config.UnmitigatedVaultParameters)
		scenario.Donation = sdkmath.NewInt(-1)
		_, err := RunInflationAttack(scenario)
		require.ErrorIs(t, err, ErrInvalidScenario)
	})

	t.Run("zero seed", func(t *testing.T) {
		scenario := classicScenario(config.UnmitigatedVaultParameters)
		scenario.AttackerSeed = sdkmath.ZeroInt()
		_, err := RunInflationAttack(scenario)
		require.ErrorIs(t, err, ErrInvalidScenario)
	})
}
