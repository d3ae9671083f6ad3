package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Category is the catalog family a product belongs to.
type Category string

const (
	Dairy     Category = "dairy"
	Vegetable Category = "vegetable"
	Fruit     Category = "fruit"
	Bakery    Category = "bakery"
	Vegan     Category = "vegan"
	Meat      Category = "meat"
	Other     Category = "other"
)

// Product represents a catalog item available for purchase. Products are
// written by catalog seeding only and are read-only to checkout.
type Product struct {
	ID          int64           `db:"id" validate:"gt=0"`
	Name        string          `db:"name" validate:"required,max=255"`
	Category    Category        `db:"type" validate:"oneof=dairy vegetable fruit bakery vegan meat other"`
	Description string          `db:"description"`
	Image       string          `db:"image" validate:"max=255"`
	Height      int             `db:"height" validate:"gte=0,lte=2147483647"`
	Weight      int             `db:"weight" validate:"gte=0,lte=2147483647"`
	Price       decimal.Decimal `db:"price" validate:"gte=0"`
	InStock     bool            `db:"in_stock"`
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, p *Product) error
}
