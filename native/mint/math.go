package mint

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

var errSubUnderflow = errors.New("mint: subtraction underflow")

var decimalOne = decimal.NewFromInt(1)

// mulTruncate multiplies an integer amount by a decimal factor and truncates
// toward zero, matching the integer flooring the ledger uses everywhere a
// price-derived conversion produces an amount.
func mulTruncate(amount *big.Int, factor decimal.Decimal) *big.Int {
	if amount == nil || amount.Sign() == 0 || factor.IsZero() {
		return big.NewInt(0)
	}
	product := decimal.NewFromBigInt(amount, 0).Mul(factor)
	return product.BigInt()
}

// decimalRatio returns a/b. Division precision follows the package default,
// which is ample for price ratios. A non-positive divisor is a corrupt quote,
// never a legitimate price, and is rejected instead of reaching Div.
func decimalRatio(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.Sign() <= 0 {
		return decimal.Decimal{}, ErrInvalidQuote
	}
	return a.Div(b), nil
}

// reciprocal returns 1/d, rejecting non-positive input.
func reciprocal(d decimal.Decimal) (decimal.Decimal, error) {
	if d.Sign() <= 0 {
		return decimal.Decimal{}, ErrInvalidQuote
	}
	return decimalOne.Div(d), nil
}

// oneMinus returns 1-d and fails on underflow rather than producing a
// negative factor.
func oneMinus(d decimal.Decimal) (decimal.Decimal, error) {
	if d.GreaterThan(decimalOne) {
		return decimal.Decimal{}, errSubUnderflow
	}
	return decimalOne.Sub(d), nil
}

// checkedSub returns a-b and fails on underflow.
func checkedSub(a, b *big.Int) (*big.Int, error) {
	if a == nil || b == nil || a.Cmp(b) < 0 {
		return nil, errSubUnderflow
	}
	return new(big.Int).Sub(a, b), nil
}

// minBig returns the smaller of two integers as a fresh value.
func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
