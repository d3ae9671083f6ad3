package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-api/internal/constraint"
)

// Storage errors.
var (
	ErrNotFound    = errors.New("order not found")
	ErrAlreadyPaid = errors.New("order already paid")

	// ErrConstraintViolation is returned by stores when a write breaks a field
	// rule, a uniqueness constraint or a check constraint.
	ErrConstraintViolation = constraint.ErrViolation
)

// State is the checkout progress derived from an order's links.
type State string

const (
	StateNew     State = "NEW"
	StateShipped State = "SHIPPED"
	StatePaid    State = "PAID"
)

// Line is the single product line fixed at order creation.
type Line struct {
	ProductID int64 `db:"product_id" validate:"gt=0"`
	Quantity  int   `db:"quantity" validate:"gte=1,lte=2147483647"`
}

// Order references its associations by id. Line is nil only when storage has
// lost the row, which is an invariant violation.
type Order struct {
	ID             int64
	Email          *string
	Paid           bool
	ShippingInfoID *int64
	CreditCardID   *int64
	TransactionID  *string
	Line           *Line
}

// State reports where the order is in checkout.
func (o *Order) State() State {
	switch {
	case o.Paid:
		return StatePaid
	case o.ShippingInfoID != nil && o.Email != nil:
		return StateShipped
	default:
		return StateNew
	}
}

// HasCustomer reports whether email and shipping information are attached.
func (o *Order) HasCustomer() bool {
	return o.Email != nil && o.ShippingInfoID != nil
}

// ShippingInfo is the delivery address of an order.
type ShippingInfo struct {
	ID         int64  `db:"id"`
	Country    string `db:"country" validate:"required,max=255"`
	Address    string `db:"address" validate:"required,max=255"`
	PostalCode string `db:"postal_code" validate:"required,postal_code"`
	City       string `db:"city" validate:"required,max=255"`
	Province   string `db:"province" validate:"required,max=255"`
}

// CreditCard is the display record of a charged card, as echoed by the
// payment processor. Full numbers and cvv are never stored.
type CreditCard struct {
	ID              int64  `db:"id"`
	Name            string `db:"name" validate:"required,max=255"`
	FirstDigits     string `db:"first_digits" validate:"len=4,numeric"`
	LastDigits      string `db:"last_digits" validate:"len=4,numeric"`
	ExpirationYear  int    `db:"expiration_year" validate:"gte=1000,lte=9999"`
	ExpirationMonth int    `db:"expiration_month" validate:"gte=1,lte=12"`
}

// Transaction is the processor's charge record. It is immutable.
type Transaction struct {
	ID            string          `db:"id" validate:"required,max=255"`
	Success       bool            `db:"success"`
	AmountCharged decimal.Decimal `db:"amount_charged" validate:"gte=0"`
}

// Customer is a validated shipping update.
type Customer struct {
	Email    string       `db:"email" validate:"required,max=255,email_shape"`
	Shipping ShippingInfo `db:"shipping_information"`
}

// Payment is what gets recorded after a successful charge. Card is nil when
// the processor did not echo one.
type Payment struct {
	Transaction Transaction
	Card        *CreditCard
}

// Repository defines persistence operations for orders and the records they
// reference.
type Repository interface {
	// Create stores an order together with its line and returns the new id.
	Create(ctx context.Context, line Line) (int64, error)
	// Get returns the order and its line, or ErrNotFound.
	Get(ctx context.Context, id int64) (*Order, error)
	// UpdateCustomer sets the email and updates the linked shipping info in
	// place, creating and linking it on first use.
	UpdateCustomer(ctx context.Context, id int64, c Customer) error
	// RecordPayment stores the payment and marks the order paid. It returns
	// ErrAlreadyPaid if the order was paid concurrently.
	RecordPayment(ctx context.Context, id int64, p Payment) error

	ShippingInfo(ctx context.Context, id int64) (*ShippingInfo, error)
	CreditCard(ctx context.Context, id int64) (*CreditCard, error)
	Transaction(ctx context.Context, id string) (*Transaction, error)
}

// Locker serializes work on one order across goroutines or processes.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
