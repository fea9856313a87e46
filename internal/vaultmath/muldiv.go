/*

This file contains the fixed-point rounding primitives used by all share/asset
conversions. Products are computed in an unbounded big.Int intermediate before
dividing, so overflow can only occur if the final quotient itself exceeds the
256-bit range of sdkmath.Int.

*/

package vaultmath

import (
	"errors"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrOverflow       = errors.New("result exceeds 256-bit range")
	ErrNegativeInput  = errors.New("input is negative")
	ErrNilInput       = errors.New("input is nil")
)

// maxUint256 is the largest value representable by sdkmath.Int (2^256 - 1).
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// MulDivDown computes floor((x * y) / denominator).
//
// The multiplication uses an unbounded intermediate, so the only overflow
// condition is the quotient itself not fitting in 256 bits.
func MulDivDown(x, y, denominator sdkmath.Int) (sdkmath.Int, error) {
	if err := validateInputs(x, y, denominator); err != nil {
		return sdkmath.Int{}, err
	}
	if denominator.IsZero() {
		return sdkmath.Int{}, ErrDivisionByZero
	}

	product := new(big.Int).Mul(x.BigInt(), y.BigInt())
	quotient := product.Quo(product, denominator.BigInt())

	if quotient.Cmp(maxUint256) > 0 {
		return sdkmath.Int{}, fmt.Errorf("%w: %s * %s / %s", ErrOverflow, x, y, denominator)
	}
	return sdkmath.NewIntFromBigInt(quotient), nil
}

// MulDivUp computes ceil((x * y) / denominator).
//
// If x*y is an exact multiple of the denominator the result equals
// MulDivDown; otherwise it is MulDivDown plus one.
func MulDivUp(x, y, denominator sdkmath.Int) (sdkmath.Int, error) {
	if err := validateInputs(x, y, denominator); err != nil {
		return sdkmath.Int{}, err
	}
	if denominator.IsZero() {
		return sdkmath.Int{}, ErrDivisionByZero
	}

	product := new(big.Int).Mul(x.BigInt(), y.BigInt())
	quotient, remainder := new(big.Int).QuoRem(product, denominator.BigInt(), new(big.Int))
	if remainder.Sign() != 0 {
		quotient.Add(quotient, big.NewInt(1))
	}

	if quotient.Cmp(maxUint256) > 0 {
		return sdkmath.Int{}, fmt.Errorf("%w: ceil(%s * %s / %s)", ErrOverflow, x, y, denominator)
	}
	return sdkmath.NewIntFromBigInt(quotient), nil
}

// validateInputs rejects nil and negative operands. All vault quantities are
// unsigned; a negative value here means a caller bug, not a user error.
func validateInputs(x, y, denominator sdkmath.Int) error {
	if x.IsNil() || y.IsNil() || denominator.IsNil() {
		return ErrNilInput
	}
	if x.IsNegative() || y.IsNegative() || denominator.IsNegative() {
		return fmt.Errorf("%w: x=%s y=%s denominator=%s", ErrNegativeInput, x, y, denominator)
	}
	return nil
}
