package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/checkout-api/internal/constraint"
	"github.com/xenking/checkout-api/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders DEFAULT VALUES RETURNING id`

	insertLineSQL = `INSERT INTO order_lines (order_id, product_id, quantity) VALUES ($1, $2, $3)`

	getOrderSQL = `SELECT o.id, o.email, o.paid, o.shipping_info_id, o.credit_card_id, o.transaction_id,
			l.product_id, l.quantity
		FROM orders o
		LEFT JOIN order_lines l ON l.order_id = o.id
		WHERE o.id = $1`

	lockOrderShippingSQL = `SELECT shipping_info_id FROM orders WHERE id = $1 FOR UPDATE`

	insertShippingSQL = `INSERT INTO shipping_info (country, address, postal_code, city, province)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	updateShippingSQL = `UPDATE shipping_info
		SET country = $2, address = $3, postal_code = $4, city = $5, province = $6
		WHERE id = $1`

	setCustomerSQL = `UPDATE orders SET email = $2, shipping_info_id = $3 WHERE id = $1`

	insertTransactionSQL = `INSERT INTO transactions (id, success, amount_charged) VALUES ($1, $2, $3)`

	insertCreditCardSQL = `INSERT INTO credit_cards (name, first_digits, last_digits, expiration_year, expiration_month)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	markPaidSQL = `UPDATE orders SET paid = TRUE, transaction_id = $2, credit_card_id = $3
		WHERE id = $1 AND NOT paid`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	getShippingSQL = `SELECT id, country, address, postal_code, city, province FROM shipping_info WHERE id = $1`

	getCreditCardSQL = `SELECT id, name, first_digits, last_digits, expiration_year, expiration_month
		FROM credit_cards WHERE id = $1`

	getTransactionSQL = `SELECT id, success, amount_charged FROM transactions WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order and its line in one transaction.
func (r *OrderRepository) Create(ctx context.Context, line order.Line) (int64, error) {
	if err := constraint.Check(line); err != nil {
		return 0, errors.Wrap(err, "order line")
	}

	var id int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertOrderSQL).Scan(&id); err != nil {
			return errors.Wrap(err, "insert order")
		}
		if _, err := tx.Exec(ctx, insertLineSQL, id, line.ProductID, line.Quantity); err != nil {
			return errors.Wrap(err, "insert order line")
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(translate(err), "create order")
	}
	return id, nil
}

// Get returns the order with its line.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	return &o, nil
}

// UpdateCustomer updates the linked shipping info in place or creates and
// links a new one, and sets the email.
func (r *OrderRepository) UpdateCustomer(ctx context.Context, id int64, c order.Customer) error {
	if err := constraint.Check(c); err != nil {
		return errors.Wrap(err, "customer")
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var infoID *int64
		if err := tx.QueryRow(ctx, lockOrderShippingSQL, id).Scan(&infoID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrNotFound
			}
			return errors.Wrap(err, "lock order")
		}

		s := c.Shipping
		if infoID == nil {
			var newID int64
			if err := tx.QueryRow(ctx, insertShippingSQL,
				s.Country, s.Address, s.PostalCode, s.City, s.Province,
			).Scan(&newID); err != nil {
				return errors.Wrap(err, "insert shipping info")
			}
			infoID = &newID
		} else if _, err := tx.Exec(ctx, updateShippingSQL,
			*infoID, s.Country, s.Address, s.PostalCode, s.City, s.Province,
		); err != nil {
			return errors.Wrap(err, "update shipping info")
		}

		if _, err := tx.Exec(ctx, setCustomerSQL, id, c.Email, *infoID); err != nil {
			return errors.Wrap(err, "set customer")
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(translate(err), "update customer of order %d", id)
	}
	return nil
}

// RecordPayment stores the transaction and the optional card and marks the
// order paid, unless it already is.
func (r *OrderRepository) RecordPayment(ctx context.Context, id int64, p order.Payment) error {
	if err := constraint.Check(p.Transaction); err != nil {
		return errors.Wrap(err, "transaction")
	}
	if p.Card != nil {
		if err := constraint.Check(p.Card); err != nil {
			return errors.Wrap(err, "credit card")
		}
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertTransactionSQL,
			p.Transaction.ID, p.Transaction.Success, p.Transaction.AmountCharged,
		); err != nil {
			return errors.Wrap(err, "insert transaction")
		}

		var cardID *int64
		if c := p.Card; c != nil {
			var newID int64
			if err := tx.QueryRow(ctx, insertCreditCardSQL,
				c.Name, c.FirstDigits, c.LastDigits, c.ExpirationYear, c.ExpirationMonth,
			).Scan(&newID); err != nil {
				return errors.Wrap(err, "insert credit card")
			}
			cardID = &newID
		}

		tag, err := tx.Exec(ctx, markPaidSQL, id, p.Transaction.ID, cardID)
		if err != nil {
			return errors.Wrap(err, "mark paid")
		}
		if tag.RowsAffected() == 1 {
			return nil
		}

		var exists bool
		if err := tx.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
			return errors.Wrap(err, "check order")
		}
		if !exists {
			return order.ErrNotFound
		}
		return order.ErrAlreadyPaid
	})
	if err != nil {
		return errors.Wrapf(translate(err), "record payment of order %d", id)
	}
	return nil
}

// ShippingInfo returns a shipping info record.
func (r *OrderRepository) ShippingInfo(ctx context.Context, id int64) (*order.ShippingInfo, error) {
	var s order.ShippingInfo
	err := r.pool.QueryRow(ctx, getShippingSQL, id).Scan(
		&s.ID, &s.Country, &s.Address, &s.PostalCode, &s.City, &s.Province,
	)
	if err != nil {
		return nil, notFound(err, "get shipping info %d", id)
	}
	return &s, nil
}

// CreditCard returns a credit card display record.
func (r *OrderRepository) CreditCard(ctx context.Context, id int64) (*order.CreditCard, error) {
	var c order.CreditCard
	err := r.pool.QueryRow(ctx, getCreditCardSQL, id).Scan(
		&c.ID, &c.Name, &c.FirstDigits, &c.LastDigits, &c.ExpirationYear, &c.ExpirationMonth,
	)
	if err != nil {
		return nil, notFound(err, "get credit card %d", id)
	}
	return &c, nil
}

// Transaction returns a transaction record.
func (r *OrderRepository) Transaction(ctx context.Context, id string) (*order.Transaction, error) {
	var t order.Transaction
	err := r.pool.QueryRow(ctx, getTransactionSQL, id).Scan(&t.ID, &t.Success, &t.AmountCharged)
	if err != nil {
		return nil, notFound(err, "get transaction %q", id)
	}
	return &t, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		productID *int64
		quantity  *int
	)
	err := row.Scan(
		&o.ID, &o.Email, &o.Paid, &o.ShippingInfoID, &o.CreditCardID, &o.TransactionID,
		&productID, &quantity,
	)
	if productID != nil && quantity != nil {
		o.Line = &order.Line{ProductID: *productID, Quantity: *quantity}
	}
	return o, err
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return order.ErrNotFound
	}
	return errors.Wrapf(err, format, args...)
}
