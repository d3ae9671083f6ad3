package sqlite

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"

	"github.com/xenking/checkout-api/internal/constraint"
	"github.com/xenking/checkout-api/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders DEFAULT VALUES`

	insertLineSQL = `INSERT INTO order_lines (order_id, product_id, quantity) VALUES (?, ?, ?)`

	getOrderSQL = `SELECT o.id, o.email, o.paid, o.shipping_info_id, o.credit_card_id, o.transaction_id,
			l.product_id, l.quantity
		FROM orders o
		LEFT JOIN order_lines l ON l.order_id = o.id
		WHERE o.id = ?`

	orderShippingSQL = `SELECT shipping_info_id FROM orders WHERE id = ?`

	insertShippingSQL = `INSERT INTO shipping_info (country, address, postal_code, city, province)
		VALUES (?, ?, ?, ?, ?)`

	updateShippingSQL = `UPDATE shipping_info
		SET country = ?, address = ?, postal_code = ?, city = ?, province = ?
		WHERE id = ?`

	setCustomerSQL = `UPDATE orders SET email = ?, shipping_info_id = ? WHERE id = ?`

	insertTransactionSQL = `INSERT INTO transactions (id, success, amount_charged) VALUES (?, ?, ?)`

	insertCreditCardSQL = `INSERT INTO credit_cards (name, first_digits, last_digits, expiration_year, expiration_month)
		VALUES (?, ?, ?, ?, ?)`

	markPaidSQL = `UPDATE orders SET paid = 1, transaction_id = ?, credit_card_id = ?
		WHERE id = ? AND paid = 0`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = ?)`

	getShippingSQL = `SELECT id, country, address, postal_code, city, province FROM shipping_info WHERE id = ?`

	getCreditCardSQL = `SELECT id, name, first_digits, last_digits, expiration_year, expiration_month
		FROM credit_cards WHERE id = ?`

	getTransactionSQL = `SELECT id, success, amount_charged FROM transactions WHERE id = ?`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository on SQLite.
type OrderRepository struct {
	db *DB
}

func NewOrderRepository(d *DB) *OrderRepository {
	return &OrderRepository{db: d}
}

func (r *OrderRepository) Create(ctx context.Context, line order.Line) (int64, error) {
	if err := constraint.Check(line); err != nil {
		return 0, errors.Wrap(err, "order line")
	}

	var id int64
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insertOrderSQL)
		if err != nil {
			return errors.Wrap(err, "insert order")
		}
		if id, err = res.LastInsertId(); err != nil {
			return errors.Wrap(err, "order id")
		}
		if _, err := tx.ExecContext(ctx, insertLineSQL, id, line.ProductID, line.Quantity); err != nil {
			return errors.Wrap(err, "insert order line")
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(translate(err), "create order")
	}
	return id, nil
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	var (
		o         order.Order
		productID *int64
		quantity  *int
	)
	err := r.db.db.QueryRowContext(ctx, getOrderSQL, id).Scan(
		&o.ID, &o.Email, &o.Paid, &o.ShippingInfoID, &o.CreditCardID, &o.TransactionID,
		&productID, &quantity,
	)
	if err != nil {
		return nil, notFound(err, "get order %d", id)
	}
	if productID != nil && quantity != nil {
		o.Line = &order.Line{ProductID: *productID, Quantity: *quantity}
	}
	return &o, nil
}

func (r *OrderRepository) UpdateCustomer(ctx context.Context, id int64, c order.Customer) error {
	if err := constraint.Check(c); err != nil {
		return errors.Wrap(err, "customer")
	}

	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		var infoID *int64
		if err := tx.QueryRowContext(ctx, orderShippingSQL, id).Scan(&infoID); err != nil {
			return notFound(err, "read order")
		}

		s := c.Shipping
		if infoID == nil {
			res, err := tx.ExecContext(ctx, insertShippingSQL,
				s.Country, s.Address, s.PostalCode, s.City, s.Province)
			if err != nil {
				return errors.Wrap(err, "insert shipping info")
			}
			newID, err := res.LastInsertId()
			if err != nil {
				return errors.Wrap(err, "shipping info id")
			}
			infoID = &newID
		} else if _, err := tx.ExecContext(ctx, updateShippingSQL,
			s.Country, s.Address, s.PostalCode, s.City, s.Province, *infoID,
		); err != nil {
			return errors.Wrap(err, "update shipping info")
		}

		if _, err := tx.ExecContext(ctx, setCustomerSQL, c.Email, *infoID, id); err != nil {
			return errors.Wrap(err, "set customer")
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(translate(err), "update customer of order %d", id)
	}
	return nil
}

func (r *OrderRepository) RecordPayment(ctx context.Context, id int64, p order.Payment) error {
	if err := constraint.Check(p.Transaction); err != nil {
		return errors.Wrap(err, "transaction")
	}
	if p.Card != nil {
		if err := constraint.Check(p.Card); err != nil {
			return errors.Wrap(err, "credit card")
		}
	}

	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertTransactionSQL,
			p.Transaction.ID, p.Transaction.Success, p.Transaction.AmountCharged,
		); err != nil {
			return errors.Wrap(err, "insert transaction")
		}

		var cardID *int64
		if c := p.Card; c != nil {
			res, err := tx.ExecContext(ctx, insertCreditCardSQL,
				c.Name, c.FirstDigits, c.LastDigits, c.ExpirationYear, c.ExpirationMonth)
			if err != nil {
				return errors.Wrap(err, "insert credit card")
			}
			newID, err := res.LastInsertId()
			if err != nil {
				return errors.Wrap(err, "credit card id")
			}
			cardID = &newID
		}

		res, err := tx.ExecContext(ctx, markPaidSQL, p.Transaction.ID, cardID, id)
		if err != nil {
			return errors.Wrap(err, "mark paid")
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "mark paid")
		} else if n == 1 {
			return nil
		}

		var exists bool
		if err := tx.QueryRowContext(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
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

func (r *OrderRepository) ShippingInfo(ctx context.Context, id int64) (*order.ShippingInfo, error) {
	var s order.ShippingInfo
	err := r.db.db.QueryRowContext(ctx, getShippingSQL, id).Scan(
		&s.ID, &s.Country, &s.Address, &s.PostalCode, &s.City, &s.Province,
	)
	if err != nil {
		return nil, notFound(err, "get shipping info %d", id)
	}
	return &s, nil
}

func (r *OrderRepository) CreditCard(ctx context.Context, id int64) (*order.CreditCard, error) {
	var c order.CreditCard
	err := r.db.db.QueryRowContext(ctx, getCreditCardSQL, id).Scan(
		&c.ID, &c.Name, &c.FirstDigits, &c.LastDigits, &c.ExpirationYear, &c.ExpirationMonth,
	)
	if err != nil {
		return nil, notFound(err, "get credit card %d", id)
	}
	return &c, nil
}

func (r *OrderRepository) Transaction(ctx context.Context, id string) (*order.Transaction, error) {
	var t order.Transaction
	err := r.db.db.QueryRowContext(ctx, getTransactionSQL, id).Scan(&t.ID, &t.Success, &t.AmountCharged)
	if err != nil {
		return nil, notFound(err, "get transaction %q", id)
	}
	return &t, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return order.ErrNotFound
	}
	return errors.Wrapf(err, format, args...)
}
