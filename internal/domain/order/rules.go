package order

import (
	"github.com/xenking/checkout-api/internal/constraint"
	"github.com/xenking/checkout-api/internal/domain/payment"
)

// ShippingUpdate is the "order" payload of an update. Nil fields were absent
// from the request.
type ShippingUpdate struct {
	Email    *string
	Shipping *ShippingFields
}

// ShippingFields is the nested "shipping_information" object.
type ShippingFields struct {
	Country    *string
	Address    *string
	PostalCode *string
	City       *string
	Province   *string
}

// CardUpdate is the "credit_card" payload of an update. Nil fields were
// absent from the request.
type CardUpdate struct {
	Name            *string
	Number          *string
	ExpirationYear  *int
	ExpirationMonth *int
	CVV             *string
}

// customer checks field presence of a shipping update. Format rules are left
// to the store.
func (u ShippingUpdate) customer() (Customer, error) {
	if u.Email == nil || u.Shipping == nil {
		return Customer{}, Invalid(ContextOrder, CodeMissingFields, "email and shipping_information are required")
	}
	s := u.Shipping
	if s.Country == nil || s.Address == nil || s.PostalCode == nil || s.City == nil || s.Province == nil {
		return Customer{}, Invalid(ContextOrder, CodeMissingFields,
			"shipping_information requires address, city, province, postal_code and country")
	}
	return Customer{
		Email: *u.Email,
		Shipping: ShippingInfo{
			Country:    *s.Country,
			Address:    *s.Address,
			PostalCode: *s.PostalCode,
			City:       *s.City,
			Province:   *s.Province,
		},
	}, nil
}

func (u CardUpdate) complete() bool {
	return u.Name != nil && u.Number != nil && u.ExpirationYear != nil &&
		u.ExpirationMonth != nil && u.CVV != nil
}

// checkCard applies the credit card rules in order; the first failure wins.
func checkCard(o *Order, u CardUpdate, policy payment.CardPolicy) (payment.Card, error) {
	if o.Paid {
		return payment.Card{}, Invalid(ContextOrder, CodeAlreadyPaid, "order is already paid")
	}
	if !u.complete() {
		return payment.Card{}, Invalid(ContextCreditCard, CodeMissingFields,
			"credit_card requires name, number, expiration_year, cvv and expiration_month")
	}
	if !o.HasCustomer() {
		return payment.Card{}, Invalid(ContextOrder, CodeMissingFields,
			"customer information must be set before the credit card")
	}
	card := payment.Card{
		Name:            *u.Name,
		Number:          payment.NormalizeNumber(*u.Number),
		ExpirationYear:  *u.ExpirationYear,
		ExpirationMonth: *u.ExpirationMonth,
		CVV:             *u.CVV,
	}
	if !policy.Accepts(card.Number) {
		return payment.Card{}, Invalid(ContextCreditCard, CodeIncorrectNumber, "card number is not valid")
	}
	if err := constraint.Check(card); err != nil {
		e := Invalid(ContextCreditCard, CodeInvalidFields, "credit card fields are not valid")
		e.Err = err
		return payment.Card{}, e
	}
	if o.Line == nil {
		return payment.Card{}, invariant("order has no product line", nil)
	}
	return card, nil
}
