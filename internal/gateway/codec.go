package gateway

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-api/internal/domain/payment"
)

// encodeCharge writes {"credit_card": {...}, "amount_charged": n}.
func encodeCharge(e *jx.Encoder, card payment.Card, amount decimal.Decimal) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("credit_card", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("name", func(e *jx.Encoder) { e.Str(card.Name) })
				e.Field("number", func(e *jx.Encoder) { e.Str(card.Number) })
				e.Field("expiration_year", func(e *jx.Encoder) { e.Int(card.ExpirationYear) })
				e.Field("cvv", func(e *jx.Encoder) { e.Str(card.CVV) })
				e.Field("expiration_month", func(e *jx.Encoder) { e.Int(card.ExpirationMonth) })
			})
		})
		e.Field("amount_charged", func(e *jx.Encoder) { encodeDecimal(e, amount) })
	})
}

func decodeCharge(d *jx.Decoder) (payment.Card, decimal.Decimal, error) {
	var (
		card   payment.Card
		amount decimal.Decimal
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "credit_card":
			return d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "name":
					card.Name, err = d.Str()
				case "number":
					card.Number, err = d.Str()
				case "expiration_year":
					card.ExpirationYear, err = d.Int()
				case "expiration_month":
					card.ExpirationMonth, err = d.Int()
				case "cvv":
					card.CVV, err = decodeDigits(d)
				default:
					err = d.Skip()
				}
				if err != nil {
					return errors.Wrap(err, key)
				}
				return nil
			})
		case "amount_charged":
			var err error
			amount, err = decodeDecimal(d)
			if err != nil {
				return errors.Wrap(err, key)
			}
			return nil
		default:
			return d.Skip()
		}
	})
	return card, amount, err
}

// encodeResult writes the 200 answer of the processor.
func encodeResult(e *jx.Encoder, r payment.Result) {
	e.Obj(func(e *jx.Encoder) {
		if c := r.Card; c != nil {
			e.Field("credit_card", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("name", func(e *jx.Encoder) { e.Str(c.Name) })
					e.Field("first_digits", func(e *jx.Encoder) { e.Str(c.FirstDigits) })
					e.Field("last_digits", func(e *jx.Encoder) { e.Str(c.LastDigits) })
					e.Field("expiration_year", func(e *jx.Encoder) { e.Int(c.ExpirationYear) })
					e.Field("expiration_month", func(e *jx.Encoder) { e.Int(c.ExpirationMonth) })
				})
			})
		}
		e.Field("transaction", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Str(r.Transaction.ID) })
				e.Field("success", func(e *jx.Encoder) { e.Bool(r.Transaction.Success) })
				e.Field("amount_charged", func(e *jx.Encoder) { encodeDecimal(e, r.Transaction.AmountCharged) })
			})
		})
	})
}

func decodeResult(d *jx.Decoder) (*payment.Result, error) {
	var (
		r     payment.Result
		hasTx bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "transaction":
			hasTx = true
			return d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "id":
					r.Transaction.ID, err = d.Str()
				case "success":
					r.Transaction.Success, err = d.Bool()
				case "amount_charged":
					r.Transaction.AmountCharged, err = decodeDecimal(d)
				default:
					err = d.Skip()
				}
				if err != nil {
					return errors.Wrap(err, key)
				}
				return nil
			})
		case "credit_card":
			if d.Next() == jx.Null {
				return d.Null()
			}
			c := &payment.CardSummary{}
			r.Card = c
			return d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "name":
					c.Name, err = d.Str()
				case "first_digits":
					c.FirstDigits, err = decodeDigits(d)
				case "last_digits":
					c.LastDigits, err = decodeDigits(d)
				case "expiration_year":
					c.ExpirationYear, err = d.Int()
				case "expiration_month":
					c.ExpirationMonth, err = d.Int()
				default:
					err = d.Skip()
				}
				if err != nil {
					return errors.Wrap(err, key)
				}
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	if !hasTx || r.Transaction.ID == "" {
		return nil, errors.New("response has no transaction")
	}
	if r.Card != nil && r.Card.Name == "" && r.Card.LastDigits == "" {
		r.Card = nil
	}
	return &r, nil
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() != jx.Number {
		return decimal.Decimal{}, errors.Errorf("expected number, got %s", d.Next())
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(string(n))
}

// decodeDigits accepts digits sent either as a string or as a bare number.
func decodeDigits(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Number {
		n, err := d.Num()
		return string(n), err
	}
	return d.Str()
}
