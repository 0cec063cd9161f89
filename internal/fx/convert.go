// Package fx converts amounts between currencies using a rate table
// expressed relative to a base currency, and keeps that table fresh from
// an external rate feed.
package fx

import (
	"math"

	"moneyflow/internal/core"
)

// DefaultBase is the currency the built-in rate table is expressed in.
const DefaultBase = "CNY"

// DefaultRates is the built-in fallback table, used until a fetch
// succeeds and whenever nothing was persisted.
func DefaultRates() core.RateTable {
	return core.RateTable{
		Base: DefaultBase,
		Rates: map[string]float64{
			"CNY": 1,
			"USD": 0.14,
			"EUR": 0.13,
			"JPY": 20.5,
			"HKD": 1.09,
		},
	}
}

// Convert translates an amount from one currency to another through the
// table's base. Identity when from == to. A missing rate for either side
// returns the amount unchanged rather than failing; callers that need to
// distinguish should check HasRate first.
func Convert(table core.RateTable, amount core.Money, from, to string) core.Money {
	if from == to {
		return amount
	}
	rateFrom, okFrom := table.Rates[from]
	rateTo, okTo := table.Rates[to]
	if !okFrom || !okTo || rateFrom == 0 {
		return amount
	}
	converted := float64(amount.Cents) / rateFrom * rateTo
	return core.Money{Cents: int64(math.Round(converted))}
}

// ConvertToBase translates an amount into the table's base currency.
func ConvertToBase(table core.RateTable, amount core.Money, from string) core.Money {
	return Convert(table, amount, from, table.Base)
}

// HasRate reports whether the table carries a usable rate for the
// currency.
func HasRate(table core.RateTable, currency string) bool {
	r, ok := table.Rates[currency]
	return ok && r != 0
}
