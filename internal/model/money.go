package model

import "github.com/shopspring/decimal"

// Money is a decimal monetary amount that marshals as a bare JSON number
// with two fractional digits, the format the processor's transfer API
// expects for fixedValue.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Decimal: d}, nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}
