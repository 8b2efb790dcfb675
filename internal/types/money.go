// README: Common money value object used across modules.
package types

// DefaultCurrency applies when a stored row predates the currency column.
const DefaultCurrency = "MXN"

// Money is an amount in minor units (centavos).
type Money struct {
	Amount   int64
	Currency string
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: m.currencyOr(o.Currency)}
}

func (m Money) Mul(n int64) Money {
	return Money{Amount: m.Amount * n, Currency: m.Currency}
}

func (m Money) currencyOr(fallback string) string {
	if m.Currency != "" {
		return m.Currency
	}
	return fallback
}
