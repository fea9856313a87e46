/*

This file contains the default vault parameters.

These defaults are the security-relevant knobs of the share accounting: how
total assets are derived and which inflation-attack mitigations are active.
Each value has been chosen deliberately; see the rationale next to each field.

*/

package config

import (
	sdkmath "cosmossdk.io/math"

	"github.com/openvault-labs/vsm/internal/types"
)

// DefaultVaultParameters provides the baseline parameter set for a vault.
// These values are used if no active parameters are found in the database
// during initialization.
var DefaultVaultParameters = types.VaultParameters{
	AccountingMode: types.AccountingCached,
	// Rationale: cached accounting counts only assets moved by the four vault
	// operations, so a direct donation to custody cannot skew the exchange
	// rate. The live variant (custody balance queried per conversion) absorbs
	// donations and is the one vulnerable to the first-depositor inflation
	// attack; it stays available per-vault for yield-bearing custody setups
	// that need it.

	VirtualAssets: sdkmath.NewInt(1),
	VirtualShares: sdkmath.NewInt(1_000_000),
	// Rationale: virtual offsets added to both totals in every conversion.
	// One virtual asset unit against 1e6 virtual shares makes the bootstrap
	// rate 1:1e6, so pushing the rate to where a victim's deposit rounds to
	// zero shares costs the attacker far more than the victim can lose.

	MinInitialDeposit: sdkmath.NewInt(1_000),
	// Rationale: a floor on the very first deposit denies the 1-unit
	// bootstrap that seeds the inflation attack. 1000 base units is small
	// enough not to exclude real depositors.
}

// UnmitigatedVaultParameters is the plain pro-rata configuration: 1:1
// bootstrap, no offsets, no minimum. It exists for compatibility testing and
// for the attack simulations; production vaults should not run it with live
// accounting.
var UnmitigatedVaultParameters = types.VaultParameters{
	AccountingMode:    types.AccountingLive,
	VirtualAssets:     sdkmath.ZeroInt(),
	VirtualShares:     sdkmath.ZeroInt(),
	MinInitialDeposit: sdkmath.ZeroInt(),
}
