// Package payment describes the external payment processor as seen by
// checkout: the card handed to it, the charge result, and how its failures
// surface.
package payment

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Card is a submitted credit card. It is forwarded to the processor and never
// persisted.
type Card struct {
	Name            string `db:"name" validate:"required,max=255"`
	Number          string `db:"number" validate:"card_number"`
	ExpirationYear  int    `db:"expiration_year" validate:"gte=1000,lte=9999"`
	ExpirationMonth int    `db:"expiration_month" validate:"gte=1,lte=12"`
	CVV             string `db:"cvv" validate:"cvv"`
}

// Transaction is the processor's record of a charge.
type Transaction struct {
	ID            string
	Success       bool
	AmountCharged decimal.Decimal
}

// CardSummary is the display-only card the processor echoes back.
type CardSummary struct {
	Name            string
	FirstDigits     string
	LastDigits      string
	ExpirationYear  int
	ExpirationMonth int
}

// Result is a charge answered with HTTP 200. Card is nil when the processor
// does not echo one.
type Result struct {
	Transaction Transaction
	Card        *CardSummary
}

// Gateway charges cards through the external processor.
type Gateway interface {
	Charge(ctx context.Context, card Card, amount decimal.Decimal) (*Result, error)
}

// GatewayError is a charge that did not complete with HTTP 200.
//
// Status and Body hold the processor's answer verbatim when it sent one.
// Timeout is set when the call exceeded its deadline; a zero Status without
// Timeout means the processor could not be reached.
type GatewayError struct {
	Status  int
	Body    []byte
	Timeout bool
	Err     error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Timeout:
		return "payment gateway: timeout"
	case e.Status != 0:
		return fmt.Sprintf("payment gateway: status %d", e.Status)
	case e.Err != nil:
		return "payment gateway: " + e.Err.Error()
	default:
		return "payment gateway: unavailable"
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

// NormalizeNumber strips whitespace from a card number and regroups sixteen
// digits as "#### #### #### ####". Other inputs come back with whitespace
// removed.
func NormalizeNumber(s string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if len(digits) != 16 {
		return digits
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return digits
		}
	}
	return digits[0:4] + " " + digits[4:8] + " " + digits[8:12] + " " + digits[12:16]
}

// Digits returns the first and last four digits of a normalized number.
func Digits(number string) (first, last string) {
	d := strings.ReplaceAll(number, " ", "")
	if len(d) < 8 {
		return "", ""
	}
	return d[:4], d[len(d)-4:]
}
