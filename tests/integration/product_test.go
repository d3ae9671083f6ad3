//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 9 {
		t.Fatalf("expected 9 products, got %d", len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/")
	defer resp.Body.Close()

	products := decodeJSON[[]productResponse](t, resp)
	byID := make(map[int64]productResponse, len(products))
	for _, p := range products {
		if p.ID <= 0 {
			t.Errorf("product with non-positive id: %+v", p)
		}
		if p.Name == "" {
			t.Errorf("product %d has empty name", p.ID)
		}
		if p.Price <= 0 {
			t.Errorf("product %d has non-positive price %v", p.ID, p.Price)
		}
		if p.Type == "candy" {
			t.Errorf("product %d has forbidden type candy", p.ID)
		}
		byID[p.ID] = p
	}

	first, ok := byID[1]
	if !ok {
		t.Fatal("product 1 missing")
	}
	if first.Price != 28.1 || first.Weight != 400 || !first.InStock {
		t.Errorf("product 1: got %+v", first)
	}
	if p, ok := byID[7]; !ok || p.InStock {
		t.Errorf("product 7 should exist and be out of stock, got %+v", p)
	}
	if _, ok := byID[10]; ok {
		t.Error("invalid product 10 should have been skipped")
	}
}
