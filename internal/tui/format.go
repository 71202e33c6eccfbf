package tui

import (
	"sort"
	"strings"

	"github.com/Veraticus/spent/internal/model"
	"github.com/shopspring/decimal"
)

var currencySymbols = map[model.Currency]string{
	model.CurrencyEUR: "€",
	model.CurrencyHRK: "kn",
}

// FormatAmount renders an amount with two decimals in the locale of its
// currency, followed by the currency symbol.
func FormatAmount(amount decimal.Decimal, currency model.Currency) string {
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = string(currency)
	}
	return model.LocalizeAmount(amount, currency) + " " + symbol
}

// FormatTotals renders per-currency totals in a stable currency order.
func FormatTotals(totals map[model.Currency]decimal.Decimal) string {
	currencies := make([]model.Currency, 0, len(totals))
	for c := range totals {
		currencies = append(currencies, c)
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i] < currencies[j] })

	parts := make([]string, len(currencies))
	for i, c := range currencies {
		parts[i] = FormatAmount(totals[c], c)
	}
	return strings.Join(parts, " · ")
}
