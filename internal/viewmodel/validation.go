package viewmodel

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// maxFractionDigits is the precision of the smallest currency unit.
const maxFractionDigits = 2

// TitleError is a validation failure of the title field. The empty value means
// the title is valid.
type TitleError string

// Title errors.
const (
	TitleOK    TitleError = ""
	TitleEmpty TitleError = "TitleEmpty"
)

// AmountError is a validation failure of the amount field. The empty value
// means the amount is valid.
type AmountError string

// Amount errors.
const (
	AmountOK            AmountError = ""
	AmountEmpty         AmountError = "AmountEmpty"
	AmountTooLow        AmountError = "AmountTooLow"
	AmountInvalidFormat AmountError = "InvalidFormat"
)

// ValidateTitle requires a non-blank title.
func ValidateTitle(title string) TitleError {
	if strings.TrimSpace(title) == "" {
		return TitleEmpty
	}
	return TitleOK
}

// ValidateAmount checks amount text as typed by the user. Either "." or ","
// is accepted as the decimal separator.
func ValidateAmount(input string) AmountError {
	input = strings.TrimSpace(input)
	if input == "" {
		return AmountEmpty
	}
	if exceedsFraction(input, ".") || exceedsFraction(input, ",") {
		return AmountInvalidFormat
	}

	amount, err := ParseAmount(input)
	if err != nil {
		return AmountInvalidFormat
	}
	if !amount.IsPositive() {
		return AmountTooLow
	}
	return AmountOK
}

// ValidateDate requires the date to be set.
func ValidateDate(date time.Time) bool {
	return !date.IsZero()
}

// AcceptAmountInput is the keystroke filter for the amount field. It rejects
// text carrying both separator conventions or more than two digits after
// either separator; rejected text never reaches the draft.
func AcceptAmountInput(input string) bool {
	if strings.Contains(input, ".") && strings.Contains(input, ",") {
		return false
	}
	return !exceedsFraction(input, ".") && !exceedsFraction(input, ",")
}

// ParseAmount converts amount text into a decimal, treating "," as ".".
func ParseAmount(input string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(input), ",", "."))
}

func exceedsFraction(input, sep string) bool {
	_, fraction, found := strings.Cut(input, sep)
	return found && len(fraction) > maxFractionDigits
}
