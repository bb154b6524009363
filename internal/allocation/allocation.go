// Package allocation holds the pure arithmetic behind split calculation:
// percentage commission, proportional deduction, emission-time rounding,
// sum normalization and validation over share lists.
//
// All amounts are shopspring decimals. Rounding is half away from zero and
// happens only at emission time; intermediate results keep full precision
// so rounding error does not compound.
package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/splitpay/order-split-service/internal/model"
)

// Tolerance is the maximum accepted gap between the sum of a share list and
// the order total: one cent.
var Tolerance = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// Commission returns value * pct / 100, unrounded.
func Commission(value, pct decimal.Decimal) decimal.Decimal {
	return value.Mul(pct).Div(hundred)
}

// DeductProportionally subtracts deduction from the given amounts in
// proportion to each amount's weight, clamping every result at zero. When
// the amounts sum to zero or less the deduction is a no-op and the input
// amounts are returned unchanged.
func DeductProportionally(amounts []decimal.Decimal, deduction decimal.Decimal) []decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	if !total.IsPositive() {
		return amounts
	}

	updated := make([]decimal.Decimal, len(amounts))
	for i, a := range amounts {
		next := a.Sub(deduction.Mul(a).Div(total))
		if next.IsNegative() {
			next = decimal.Zero
		}
		updated[i] = next
	}
	return updated
}

// RoundShares rounds every share amount to two decimal places.
func RoundShares(shares model.ShareList) model.ShareList {
	rounded := make(model.ShareList, len(shares))
	for i, s := range shares {
		s.Amount = model.NewMoney(s.Amount.Round(2))
		rounded[i] = s
	}
	return rounded
}

// Normalize reconciles a rounded share list with the order total. A gap of
// at most one cent lands entirely on the first share; a larger gap is
// spread across all shares in proportion to their current amounts,
// re-rounded, with each adjusted share clamped at zero.
func Normalize(shares model.ShareList, total decimal.Decimal) model.ShareList {
	if len(shares) == 0 {
		return shares
	}

	current := shares.Total()
	diff := total.Sub(current)
	if diff.IsZero() {
		return shares
	}

	if diff.Abs().LessThanOrEqual(Tolerance) {
		shares[0].Amount = model.NewMoney(shares[0].Amount.Add(diff).Round(2))
		return shares
	}

	for i := range shares {
		adjusted := shares[i].Amount.Add(diff.Mul(shares[i].Amount.Decimal).Div(current)).Round(2)
		if adjusted.IsNegative() {
			adjusted = decimal.Zero
		}
		shares[i].Amount = model.NewMoney(adjusted)
	}
	return shares
}

// Validate checks the invariants every emitted share list must hold: each
// share names a wallet and carries a strictly positive amount, and the
// amounts sum to the order total within Tolerance.
func Validate(shares model.ShareList, total decimal.Decimal) error {
	sum := decimal.Zero
	for i, s := range shares {
		if s.WalletID == "" {
			return fmt.Errorf("share %d has no wallet id", i)
		}
		if !s.Amount.IsPositive() {
			return fmt.Errorf("invalid amount %s for wallet %s", s.Amount.StringFixed(2), s.WalletID)
		}
		sum = sum.Add(s.Amount.Decimal)
	}

	if sum.Sub(total).Abs().GreaterThan(Tolerance) {
		return fmt.Errorf("share total %s does not match order total %s",
			sum.StringFixed(2), total.StringFixed(2))
	}
	return nil
}
