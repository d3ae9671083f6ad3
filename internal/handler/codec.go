package handler

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-api/internal/domain/order"
	"github.com/xenking/checkout-api/internal/domain/product"
)

func notValid() *order.Error {
	return order.Invalid(order.ContextOrder, order.CodeJSONNotValid, "request is not valid JSON")
}

// createRequest is {"product": {"id": int, "quantity": int}}. A missing
// quantity is reported by the service after the product lookup.
type createRequest struct {
	ProductID *int64
	Quantity  *int
	present   bool
}

func decodeCreate(data []byte) (createRequest, error) {
	var req createRequest
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "product" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		req.present = true
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				req.ProductID, err = optInt64(d)
			case "quantity":
				req.Quantity, err = optInt(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrap(err, key)
			}
			return nil
		})
	})
	if err != nil {
		return req, notValid()
	}
	if !req.present || req.ProductID == nil {
		return req, order.Invalid(order.ContextProducts, order.CodeMissingFields,
			"creating an order requires product with id and quantity")
	}
	return req, nil
}

// updateRequest holds whichever update the body carried.
type updateRequest struct {
	Shipping *order.ShippingUpdate
	Card     *order.CardUpdate
}

func decodeUpdate(data []byte) (updateRequest, error) {
	var req updateRequest
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "order":
			u, err := decodeShippingUpdate(d)
			req.Shipping = &u
			return err
		case "credit_card":
			u, err := decodeCardUpdate(d)
			req.Card = &u
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil || (req.Shipping == nil && req.Card == nil) {
		return req, notValid()
	}
	// "order" wins when both are sent.
	if req.Shipping != nil {
		req.Card = nil
	}
	return req, nil
}

func decodeShippingUpdate(d *jx.Decoder) (order.ShippingUpdate, error) {
	var u order.ShippingUpdate
	if d.Next() == jx.Null {
		return u, d.Null()
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "email":
			u.Email, err = optStr(d)
		case "shipping_information":
			if d.Next() == jx.Null {
				return d.Null()
			}
			s := &order.ShippingFields{}
			u.Shipping = s
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "country":
					s.Country, err = optStr(d)
				case "address":
					s.Address, err = optStr(d)
				case "postal_code":
					s.PostalCode, err = optStr(d)
				case "city":
					s.City, err = optStr(d)
				case "province":
					s.Province, err = optStr(d)
				default:
					err = d.Skip()
				}
				if err != nil {
					return errors.Wrap(err, key)
				}
				return nil
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return u, err
}

func decodeCardUpdate(d *jx.Decoder) (order.CardUpdate, error) {
	var u order.CardUpdate
	if d.Next() == jx.Null {
		return u, d.Null()
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			u.Name, err = optStr(d)
		case "number":
			u.Number, err = optStr(d)
		case "expiration_year":
			u.ExpirationYear, err = optInt(d)
		case "expiration_month":
			u.ExpirationMonth, err = optInt(d)
		case "cvv":
			u.CVV, err = optStr(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return u, err
}

func optStr(d *jx.Decoder) (*string, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func optInt(d *jx.Decoder) (*int, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := d.Int()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optInt64(d *jx.Decoder) (*int64, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := d.Int64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("type", func(e *jx.Encoder) { e.Str(string(p.Category)) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("image", func(e *jx.Encoder) { e.Str(p.Image) })
		e.Field("height", func(e *jx.Encoder) { e.Int(p.Height) })
		e.Field("weight", func(e *jx.Encoder) { e.Int(p.Weight) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, p.Price) })
		e.Field("in_stock", func(e *jx.Encoder) { e.Bool(p.InStock) })
	})
}

// encodeDetails writes {"order": {...}}. Absent associations are {}.
func encodeDetails(e *jx.Encoder, d *order.Details) {
	o := d.Order
	e.Obj(func(e *jx.Encoder) {
		e.Field("order", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
				e.Field("email", func(e *jx.Encoder) {
					if o.Email == nil {
						e.Null()
						return
					}
					e.Str(*o.Email)
				})
				e.Field("paid", func(e *jx.Encoder) { e.Bool(o.Paid) })
				e.Field("product", func(e *jx.Encoder) {
					e.Obj(func(e *jx.Encoder) {
						if o.Line == nil {
							return
						}
						e.Field("id", func(e *jx.Encoder) { e.Int64(o.Line.ProductID) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(o.Line.Quantity) })
					})
				})
				e.Field("total_price", func(e *jx.Encoder) { encodeDecimal(e, d.TotalPrice) })
				e.Field("shipping_price", func(e *jx.Encoder) { e.Int(d.ShippingPrice) })
				e.Field("shipping_info", func(e *jx.Encoder) { encodeShippingInfo(e, d.ShippingInfo) })
				e.Field("credit_card", func(e *jx.Encoder) { encodeCreditCard(e, d.CreditCard) })
				e.Field("transaction", func(e *jx.Encoder) { encodeTransaction(e, d.Transaction) })
			})
		})
	})
}

func encodeShippingInfo(e *jx.Encoder, s *order.ShippingInfo) {
	e.Obj(func(e *jx.Encoder) {
		if s == nil {
			return
		}
		e.Field("id", func(e *jx.Encoder) { e.Int64(s.ID) })
		e.Field("country", func(e *jx.Encoder) { e.Str(s.Country) })
		e.Field("address", func(e *jx.Encoder) { e.Str(s.Address) })
		e.Field("postal_code", func(e *jx.Encoder) { e.Str(s.PostalCode) })
		e.Field("city", func(e *jx.Encoder) { e.Str(s.City) })
		e.Field("province", func(e *jx.Encoder) { e.Str(s.Province) })
	})
}

func encodeCreditCard(e *jx.Encoder, c *order.CreditCard) {
	e.Obj(func(e *jx.Encoder) {
		if c == nil {
			return
		}
		e.Field("id", func(e *jx.Encoder) { e.Int64(c.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(c.Name) })
		e.Field("first_digits", func(e *jx.Encoder) { e.Str(c.FirstDigits) })
		e.Field("last_digits", func(e *jx.Encoder) { e.Str(c.LastDigits) })
		e.Field("expiration_year", func(e *jx.Encoder) { e.Int(c.ExpirationYear) })
		e.Field("expiration_month", func(e *jx.Encoder) { e.Int(c.ExpirationMonth) })
	})
}

func encodeTransaction(e *jx.Encoder, t *order.Transaction) {
	e.Obj(func(e *jx.Encoder) {
		if t == nil {
			return
		}
		e.Field("id", func(e *jx.Encoder) { e.Str(t.ID) })
		e.Field("success", func(e *jx.Encoder) { e.Bool(t.Success) })
		e.Field("amount_charged", func(e *jx.Encoder) { encodeDecimal(e, t.AmountCharged) })
	})
}
