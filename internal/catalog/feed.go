// Package catalog loads the product feed into the product store.
package catalog

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-api/db"
	"github.com/xenking/checkout-api/internal/domain/product"
)

// DefaultFeedURL is the public product feed.
const DefaultFeedURL = "http://dimprojetu.uqac.ca/~jgnault/shops/products/"

// Bundled names the feed embedded in the binary.
const Bundled = "bundled"

const maxFeed = 16 << 20

// Open returns a reader for source: Bundled, an http(s) URL or a file path.
// Sources ending in .gz are decompressed.
func Open(ctx context.Context, client *http.Client, source string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	switch {
	case source == Bundled:
		return io.NopCloser(bytes.NewReader(db.Products)), nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, http.NoBody)
		if err != nil {
			return nil, errors.Wrap(err, "create feed request")
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "fetch feed")
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, errors.Errorf("fetch feed: status %d", resp.StatusCode)
		}
		rc = resp.Body
	default:
		f, err := os.Open(source)
		if err != nil {
			return nil, errors.Wrap(err, "open feed file")
		}
		rc = f
	}

	if !strings.HasSuffix(source, ".gz") {
		return rc, nil
	}
	gz, err := pgzip.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, errors.Wrap(err, "open gzip feed")
	}
	return &gzipFeed{Reader: gz, under: rc}, nil
}

type gzipFeed struct {
	*pgzip.Reader
	under io.Closer
}

func (g *gzipFeed) Close() error {
	return errors.Join(g.Reader.Close(), g.under.Close())
}

// Entry is one feed item. Err is set when the item could not be read as a
// product; such items are skipped by the seeder.
type Entry struct {
	Product product.Product
	Err     error
}

// Decode reads {"products": [...]}.
func Decode(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFeed))
	if err != nil {
		return nil, errors.Wrap(err, "read feed")
	}

	var (
		out   []Entry
		found bool
	)
	err = jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "products" {
			return d.Skip()
		}
		found = true
		return d.Arr(func(d *jx.Decoder) error {
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			p, err := decodeProduct(jx.DecodeBytes(raw))
			out = append(out, Entry{Product: p, Err: err})
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode feed")
	}
	if !found {
		return nil, errors.New("feed has no products")
	}
	return out, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch key {
		case "id":
			p.ID, err = d.Int64()
		case "name":
			p.Name, err = d.Str()
		case "type":
			var s string
			s, err = d.Str()
			p.Category = product.Category(s)
		case "description":
			p.Description, err = d.Str()
		case "image":
			p.Image, err = d.Str()
		case "height":
			p.Height, err = d.Int()
		case "weight":
			p.Weight, err = d.Int()
		case "price":
			var n jx.Num
			if n, err = d.Num(); err == nil {
				p.Price, err = decimal.NewFromString(n.String())
			}
		case "in_stock":
			p.InStock, err = d.Bool()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return p, err
}
