package gateway

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/checkout-api/internal/domain/payment"
	"github.com/xenking/checkout-api/internal/envelope"
)

// Sandbox is a payment processor for local runs and tests. It approves
// payment.SandboxApproved, declines payment.SandboxDeclined and rejects
// everything else, answering errors in the API envelope.
type Sandbox struct {
	now   func() time.Time
	newID func() string
}

// NewSandbox returns a Sandbox using the wall clock and random ids.
func NewSandbox() *Sandbox {
	return &Sandbox{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

const sandboxContext = "credit_card"

func (s *Sandbox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		envelope.Write(w, http.StatusMethodNotAllowed, envelope.Entry{
			Context: sandboxContext, Code: "method-not-allowed", Name: "only POST is supported",
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		reject(w, "json-not-valid", "request body could not be read")
		return
	}
	card, amount, err := decodeCharge(jx.DecodeBytes(body))
	if err != nil {
		reject(w, "json-not-valid", "request is not valid JSON")
		return
	}
	if card.Name == "" || card.Number == "" || card.CVV == "" ||
		card.ExpirationYear == 0 || card.ExpirationMonth == 0 {
		reject(w, "missing-fields", "credit_card requires name, number, expiration_year, cvv and expiration_month")
		return
	}
	if amount.IsNegative() {
		reject(w, "invalid-fields", "amount_charged must not be negative")
		return
	}

	card.Number = payment.NormalizeNumber(card.Number)
	switch card.Number {
	case payment.SandboxApproved:
	case payment.SandboxDeclined:
		reject(w, "card-declined", "card was declined")
		return
	default:
		reject(w, "incorrect-number", "card number is not valid")
		return
	}
	if card.ExpirationMonth < 1 || card.ExpirationMonth > 12 {
		reject(w, "invalid-fields", "expiration_month must be between 1 and 12")
		return
	}
	if expired(card, s.now()) {
		reject(w, "card-expired", "card is expired")
		return
	}

	first, last := payment.Digits(card.Number)
	var e jx.Encoder
	encodeResult(&e, payment.Result{
		Transaction: payment.Transaction{
			ID:            s.newID(),
			Success:       true,
			AmountCharged: amount,
		},
		Card: &payment.CardSummary{
			Name:            card.Name,
			FirstDigits:     first,
			LastDigits:      last,
			ExpirationYear:  card.ExpirationYear,
			ExpirationMonth: card.ExpirationMonth,
		},
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(e.Bytes())
}

func reject(w http.ResponseWriter, code, name string) {
	envelope.Write(w, http.StatusUnprocessableEntity, envelope.Entry{
		Context: sandboxContext, Code: code, Name: name,
	})
}

// expired reports whether the card's last valid month is before now.
func expired(card payment.Card, now time.Time) bool {
	y, m := now.Year(), int(now.Month())
	return card.ExpirationYear < y || (card.ExpirationYear == y && card.ExpirationMonth < m)
}
