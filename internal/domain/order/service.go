package order

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/checkout-api/internal/domain/payment"
	"github.com/xenking/checkout-api/internal/domain/product"
)

// Created is the result of starting a checkout.
type Created struct {
	OrderID int64
}

// Details is a fully resolved order. Totals are recomputed from the live
// product on every read. Nil associations are absent.
type Details struct {
	Order         Order
	TotalPrice    decimal.Decimal
	ShippingPrice int
	ShippingInfo  *ShippingInfo
	CreditCard    *CreditCard
	Transaction   *Transaction
}

// Service sequences checkout: create, attach shipping, pay, read.
type Service struct {
	products product.Repository
	orders   Repository
	gateway  payment.Gateway
	cards    payment.CardPolicy
	locker   Locker
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	orders Repository,
	gateway payment.Gateway,
	cards payment.CardPolicy,
	locker Locker,
) *Service {
	return &Service{
		products: products,
		orders:   orders,
		gateway:  gateway,
		cards:    cards,
		locker:   locker,
	}
}

// Create starts a checkout for quantity units of a product.
func (s *Service) Create(ctx context.Context, productID int64, quantity int) (*Created, error) {
	return s.CreateLine(ctx, productID, &quantity)
}

// CreateLine is Create for a request whose quantity may be absent. The
// product is checked first, so an unknown or unavailable product wins over a
// missing quantity.
func (s *Service) CreateLine(ctx context.Context, productID int64, qty *int) (*Created, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, NotFound(ContextOrder, CodeProductDoesNotExist, "product does not exist")
		}
		return nil, errors.Wrap(err, "get product")
	}
	if !p.InStock {
		return nil, Invalid(ContextProducts, CodeOutOfInventory, "product is not in stock")
	}
	if qty == nil {
		return nil, Invalid(ContextProducts, CodeMissingFields, "creating an order requires product with id and quantity")
	}
	quantity := *qty
	if quantity < 1 {
		return nil, Invalid(ContextOrder, CodeInvalidQuantity, "quantity must be at least 1")
	}

	id, err := s.orders.Create(ctx, Line{ProductID: productID, Quantity: quantity})
	if err != nil {
		if errors.Is(err, ErrConstraintViolation) {
			e := Invalid(ContextOrder, CodeInvalidFields, "order fields are not valid")
			e.Err = err
			return nil, e
		}
		return nil, errors.Wrap(err, "create order")
	}

	zctx.From(ctx).Info("Order created",
		zap.Int64("order_id", id),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
	)
	return &Created{OrderID: id}, nil
}

// Get resolves an order and recomputes its prices.
func (s *Service) Get(ctx context.Context, id int64) (*Details, error) {
	o, err := s.load(ctx, id, CodeOrderDoesNotExist)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, o)
}

// AttachShipping sets the customer email and shipping information. Shipping
// info already linked to the order is updated in place.
func (s *Service) AttachShipping(ctx context.Context, id int64, u ShippingUpdate) (*Details, error) {
	if _, err := s.load(ctx, id, CodeOrderDoesNotExist); err != nil {
		return nil, err
	}
	c, err := u.customer()
	if err != nil {
		return nil, err
	}
	if err := s.orders.UpdateCustomer(ctx, id, c); err != nil {
		if errors.Is(err, ErrConstraintViolation) {
			e := Invalid(ContextOrders, CodeInvalidFields, "shipping information or email is not valid")
			e.Err = err
			return nil, e
		}
		if errors.Is(err, ErrNotFound) {
			return nil, NotFound(ContextOrder, CodeOrderDoesNotExist, "order does not exist")
		}
		return nil, errors.Wrap(err, "update customer")
	}

	zctx.From(ctx).Info("Shipping attached", zap.Int64("order_id", id))
	return s.Get(ctx, id)
}

// AttachPayment charges the card for the order total and records the
// transaction. Concurrent calls for one order are serialized so the gateway
// is charged at most once.
func (s *Service) AttachPayment(ctx context.Context, id int64, u CardUpdate) (*Details, error) {
	if _, err := s.load(ctx, id, CodeOrderNotFound); err != nil {
		return nil, err
	}

	release, err := s.locker.Lock(ctx, "order:"+strconv.FormatInt(id, 10)+":payment")
	if err != nil {
		return nil, errors.Wrap(err, "lock order")
	}
	defer release()

	o, err := s.load(ctx, id, CodeOrderNotFound)
	if err != nil {
		return nil, err
	}
	card, err := checkCard(o, u, s.cards)
	if err != nil {
		return nil, err
	}

	p, err := s.lineProduct(ctx, o)
	if err != nil {
		return nil, err
	}
	total, shipping := prices(o.Line, p)
	amount := total.Add(decimal.NewFromInt(int64(shipping)))

	lg := zctx.From(ctx).With(zap.Int64("order_id", id))
	res, err := s.gateway.Charge(ctx, card, amount)
	if err != nil {
		lg.Warn("Charge failed", zap.Error(err))
		return nil, errors.Wrap(err, "charge")
	}
	if !res.Transaction.Success {
		lg.Info("Charge declined", zap.String("transaction_id", res.Transaction.ID))
		return nil, Invalid(ContextCreditCard, CodeCardDeclined, "card was declined")
	}

	pay := Payment{Transaction: Transaction{
		ID:            res.Transaction.ID,
		Success:       res.Transaction.Success,
		AmountCharged: res.Transaction.AmountCharged,
	}}
	if c := res.Card; c != nil {
		pay.Card = &CreditCard{
			Name:            c.Name,
			FirstDigits:     c.FirstDigits,
			LastDigits:      c.LastDigits,
			ExpirationYear:  c.ExpirationYear,
			ExpirationMonth: c.ExpirationMonth,
		}
	}
	if err := s.orders.RecordPayment(ctx, id, pay); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyPaid):
			return nil, Invalid(ContextOrder, CodeAlreadyPaid, "order is already paid")
		case errors.Is(err, ErrConstraintViolation):
			e := Invalid(ContextCreditCard, CodeInvalidFields, "payment record is not valid")
			e.Err = err
			return nil, e
		}
		lg.Error("Charged but not recorded",
			zap.String("transaction_id", pay.Transaction.ID),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, "record payment")
	}

	lg.Info("Order paid",
		zap.String("transaction_id", pay.Transaction.ID),
		zap.Stringer("amount", amount),
	)
	return s.Get(ctx, id)
}

// Require fails with order-not-found when the order does not exist.
func (s *Service) Require(ctx context.Context, id int64) error {
	_, err := s.load(ctx, id, CodeOrderNotFound)
	return err
}

func (s *Service) load(ctx context.Context, id int64, code string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NotFound(ContextOrder, code, "order does not exist")
		}
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	return o, nil
}

func (s *Service) lineProduct(ctx context.Context, o *Order) (*product.Product, error) {
	if o.Line == nil {
		return nil, invariant("order has no product line", nil)
	}
	p, err := s.products.GetByID(ctx, o.Line.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, invariant("ordered product is gone", err)
		}
		return nil, errors.Wrap(err, "get product")
	}
	return p, nil
}

func (s *Service) resolve(ctx context.Context, o *Order) (*Details, error) {
	p, err := s.lineProduct(ctx, o)
	if err != nil {
		return nil, err
	}
	d := &Details{Order: *o}
	d.TotalPrice, d.ShippingPrice = prices(o.Line, p)

	if o.ShippingInfoID != nil {
		if d.ShippingInfo, err = s.orders.ShippingInfo(ctx, *o.ShippingInfoID); err != nil {
			return nil, errors.Wrap(err, "get shipping info")
		}
	}
	if o.CreditCardID != nil {
		if d.CreditCard, err = s.orders.CreditCard(ctx, *o.CreditCardID); err != nil {
			return nil, errors.Wrap(err, "get credit card")
		}
	}
	if o.TransactionID != nil {
		if d.Transaction, err = s.orders.Transaction(ctx, *o.TransactionID); err != nil {
			return nil, errors.Wrap(err, "get transaction")
		}
	}
	return d, nil
}

func prices(line *Line, p *product.Product) (total decimal.Decimal, shipping int) {
	total = p.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
	return total, ShippingPrice(LineWeight(p.Weight, line.Quantity))
}
