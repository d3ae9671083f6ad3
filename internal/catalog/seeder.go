package catalog

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/checkout-api/internal/constraint"
	"github.com/xenking/checkout-api/internal/domain/product"
)

// Skipped is a feed item that was not stored.
type Skipped struct {
	ID     int64
	Name   string
	Reason error
}

// Report summarizes one seeding run.
type Report struct {
	// Ran is false when the catalog already had products.
	Ran      bool
	Upserted int
	Skipped  []Skipped
}

// Seeder fills the product store from a feed.
type Seeder struct {
	products product.Repository
	client   *http.Client
}

func NewSeeder(products product.Repository, client *http.Client) *Seeder {
	if client == nil {
		client = http.DefaultClient
	}
	return &Seeder{products: products, client: client}
}

// Seed loads source into the store. Unless force is set it does nothing
// when the catalog is not empty. Invalid items are skipped and reported.
func (s *Seeder) Seed(ctx context.Context, source string, force bool) (*Report, error) {
	if !force {
		n, err := s.products.Count(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "count products")
		}
		if n > 0 {
			return &Report{}, nil
		}
	}

	rc, err := Open(ctx, s.client, source)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	entries, err := Decode(rc)
	if err != nil {
		return nil, err
	}

	report := &Report{Ran: true}
	for _, e := range entries {
		p := e.Product
		if e.Err != nil {
			report.Skipped = append(report.Skipped, Skipped{ID: p.ID, Name: p.Name, Reason: e.Err})
			continue
		}
		if err := s.products.Upsert(ctx, &p); err != nil {
			if errors.Is(err, constraint.ErrViolation) {
				report.Skipped = append(report.Skipped, Skipped{ID: p.ID, Name: p.Name, Reason: err})
				continue
			}
			return report, errors.Wrapf(err, "upsert product %d", p.ID)
		}
		report.Upserted++
	}
	return report, nil
}
