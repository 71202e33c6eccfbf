package model

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// currencyLocales picks the locale whose number conventions an amount is
// written in.
var currencyLocales = map[Currency]language.Tag{
	CurrencyEUR: language.German,
	CurrencyHRK: language.Croatian,
}

// numberMarks are the digit grouping and decimal marks of a locale.
type numberMarks struct {
	group   string
	decimal string
}

var currencyMarks = func() map[Currency]numberMarks {
	marks := make(map[Currency]numberMarks, len(currencyLocales))
	for c, tag := range currencyLocales {
		marks[c] = marksFor(tag)
	}
	return marks
}()

// marksFor reads the marks off a sample rendered by the locale printer.
func marksFor(tag language.Tag) numberMarks {
	sample := []rune(message.NewPrinter(tag).Sprint(number.Decimal(1234.5, number.Scale(1))))
	if len(sample) != len("1,234.5") {
		return numberMarks{group: ",", decimal: "."}
	}
	return numberMarks{group: string(sample[1]), decimal: string(sample[5])}
}

// LocalizeAmount writes amount with two decimals using the number conventions
// of the currency's locale, e.g. 1.234,50 for EUR. The decimal value is never
// converted to a float.
func LocalizeAmount(amount decimal.Decimal, currency Currency) string {
	marks, ok := currencyMarks[currency]
	if !ok {
		marks = numberMarks{group: ",", decimal: "."}
	}

	text := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(text, "-") {
		sign, text = "-", text[1:]
	}
	whole, fraction, _ := strings.Cut(text, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(marks.group)
		}
		b.WriteRune(digit)
	}
	b.WriteString(marks.decimal)
	b.WriteString(fraction)
	return b.String()
}
