/*
This file contains common utility functions for converting between different types,
particularly for SDK math operations and precision handling. All accounting is
integer; these helpers exist only for display and input parsing.
*/

package utils

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrInvalidAmount    = errors.New("amount is invalid")
)

// SDKIntToFloat64 converts an SDK Int to float64 with proper precision handling
func SDKIntToFloat64(amount sdkmath.Int, precision int) (float64, error) {
	if precision < 0 || precision > 18 {
		return 0, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	decAmount := sdkmath.LegacyNewDecFromInt(amount)
	factor := sdkmath.LegacyNewDec(10).Power(uint64(precision))

	result := decAmount.Quo(factor)
	resultFloat, err := result.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}

	if math.IsNaN(resultFloat) || math.IsInf(resultFloat, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, resultFloat)
	}

	return resultFloat, nil
}

// RatioToFloat64 returns numerator/denominator as a float64 for display
// purposes (e.g. an assets-per-share exchange rate). A zero denominator
// yields 0 rather than an error, matching the undefined-rate case of an
// empty pool.
func RatioToFloat64(numerator, denominator sdkmath.Int) (float64, error) {
	if numerator.IsNil() || denominator.IsNil() {
		return 0, ErrAmountNil
	}
	if numerator.IsNegative() || denominator.IsNegative() {
		return 0, ErrAmountNegative
	}
	if denominator.IsZero() {
		return 0, nil
	}

	ratio := sdkmath.LegacyNewDecFromInt(numerator).Quo(sdkmath.LegacyNewDecFromInt(denominator))
	ratioFloat, err := ratio.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if math.IsNaN(ratioFloat) || math.IsInf(ratioFloat, 0) {
		return 0, fmt.Errorf("%w: ratio is %f", ErrNotFinite, ratioFloat)
	}
	return ratioFloat, nil
}

// ParseAmount parses a decimal-string amount into a non-negative sdkmath.Int.
// Used at the web boundary; amounts travel as strings to avoid float64
// truncation of large integers.
func ParseAmount(value string) (sdkmath.Int, error) {
	if value == "" {
		return sdkmath.Int{}, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	amount, ok := sdkmath.NewIntFromString(value)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %q is not an integer", ErrInvalidAmount, value)
	}
	if amount.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("%w: %q is negative", ErrAmountNegative, value)
	}
	return amount, nil
}
