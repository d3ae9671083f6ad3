//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/checkout-api/internal/constraint"
	"github.com/xenking/checkout-api/internal/domain/order"
	"github.com/xenking/checkout-api/internal/domain/product"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "checkout",
				"POSTGRES_PASSWORD": "checkout",
				"POSTGRES_DB":       "checkout",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)

	pool, err := NewPool(ctx, fmt.Sprintf("postgres://checkout:checkout@%s/checkout?sslmode=disable", endpoint))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func seedProduct(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	require.NoError(t, NewProductRepository(pool).Upsert(context.Background(), &product.Product{
		ID:          1,
		Name:        "Brown eggs",
		Category:    product.Dairy,
		Description: "Raw organic brown eggs in a basket",
		Image:       "0.jpg",
		Height:      600,
		Weight:      400,
		Price:       decimal.RequireFromString("28.1"),
		InStock:     true,
	}))
}

func testCustomer() order.Customer {
	return order.Customer{
		Email: "client@example.com",
		Shipping: order.ShippingInfo{
			Country:    "Canada",
			Address:    "201, rue Président-Kennedy",
			PostalCode: "G7X 3Y7",
			City:       "Chicoutimi",
			Province:   "QC",
		},
	}
}

func testPayment(txID string) order.Payment {
	return order.Payment{
		Transaction: order.Transaction{
			ID:            txID,
			Success:       true,
			AmountCharged: decimal.NewFromInt(306),
		},
		Card: &order.CreditCard{
			Name:            "John Doe",
			FirstDigits:     "4242",
			LastDigits:      "4242",
			ExpirationYear:  2031,
			ExpirationMonth: 9,
		},
	}
}

func TestRepositories(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t)
	seedProduct(t, pool)

	products := NewProductRepository(pool)
	orders := NewOrderRepository(pool)

	t.Run("Products", func(t *testing.T) {
		p, err := products.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "28.1", p.Price.String())

		n, err := products.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = products.GetByID(ctx, 42)
		assert.ErrorIs(t, err, product.ErrNotFound)
	})

	t.Run("Lifecycle", func(t *testing.T) {
		id, err := orders.Create(ctx, order.Line{ProductID: 1, Quantity: 10})
		require.NoError(t, err)

		require.NoError(t, orders.UpdateCustomer(ctx, id, testCustomer()))
		require.NoError(t, orders.UpdateCustomer(ctx, id, testCustomer()))
		require.NoError(t, orders.RecordPayment(ctx, id, testPayment("pg-tx-1")))

		o, err := orders.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, order.StatePaid, o.State())
		assert.Equal(t, "client@example.com", *o.Email)

		tx, err := orders.Transaction(ctx, *o.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, "306", tx.AmountCharged.String())

		assert.ErrorIs(t, orders.RecordPayment(ctx, id, testPayment("pg-tx-2")), order.ErrAlreadyPaid)
	})

	t.Run("ConcurrentPayment", func(t *testing.T) {
		id, err := orders.Create(ctx, order.Line{ProductID: 1, Quantity: 1})
		require.NoError(t, err)
		require.NoError(t, orders.UpdateCustomer(ctx, id, testCustomer()))

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := orders.RecordPayment(ctx, id, testPayment(fmt.Sprintf("pg-race-%d", i)))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}()
		}
		wg.Wait()

		var ok int
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, order.ErrAlreadyPaid)
		}
		assert.Equal(t, 1, ok, "exactly one payment is recorded")
	})

	t.Run("Constraints", func(t *testing.T) {
		_, err := orders.Create(ctx, order.Line{ProductID: 99, Quantity: 1})
		assert.ErrorIs(t, err, constraint.ErrViolation)

		// quantity is an int4 column.
		id, err := orders.Create(ctx, order.Line{ProductID: 1, Quantity: 2147483647})
		require.NoError(t, err)
		o, err := orders.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2147483647, o.Line.Quantity)

		_, err = orders.Create(ctx, order.Line{ProductID: 1, Quantity: 2147483648})
		assert.ErrorIs(t, err, constraint.ErrViolation)

		heavy := product.Product{
			ID: 2, Name: "Anvil", Category: product.Other, Image: "2.jpg",
			Weight: 2147483648, Price: decimal.NewFromInt(1),
		}
		assert.ErrorIs(t, products.Upsert(ctx, &heavy), constraint.ErrViolation)

		_, err = orders.Get(ctx, 123456)
		assert.ErrorIs(t, err, order.ErrNotFound)
	})
}
