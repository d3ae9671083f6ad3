//go:build integration

package integration

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

func newRequest(t *testing.T, method, path string, body string) *http.Request {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, baseURL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func send(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func TestRequestID_OnRedirect(t *testing.T) {
	resp := doPost(t, "/order", `{"product":{"id":1,"quantity":1}}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID header not present")
	}
}

func TestRequestID_EchoedOnErrorEnvelope(t *testing.T) {
	req := newRequest(t, http.MethodGet, "/order/999999", "")
	req.Header.Set("X-Request-ID", "checkout-trace-42")

	resp := send(t, req)
	if got := resp.Header.Get("X-Request-ID"); got != "checkout-trace-42" {
		t.Errorf("X-Request-ID: got %q, want %q", got, "checkout-trace-42")
	}
	expectError(t, resp, http.StatusNotFound, "order", "order-does-not-exist")
}

func TestRequestID_OversizedReplaced(t *testing.T) {
	long := strings.Repeat("a", 200)
	req := newRequest(t, http.MethodGet, "/", "")
	req.Header.Set("X-Request-ID", long)

	resp := send(t, req)
	defer resp.Body.Close()

	got := resp.Header.Get("X-Request-ID")
	if got == "" || got == long {
		t.Errorf("expected a generated request id, got %q", got)
	}
}

func TestCORS_PreflightOrderUpdate(t *testing.T) {
	loc := createOrder(t, 1, 1)

	req := newRequest(t, http.MethodOptions, loc, "")
	req.Header.Set("Origin", "http://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp := send(t, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if acao := resp.Header.Get("Access-Control-Allow-Origin"); acao != "*" {
		t.Errorf("Access-Control-Allow-Origin: got %q", acao)
	}
	if acam := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(acam, http.MethodPut) {
		t.Errorf("Access-Control-Allow-Methods lacks PUT: %q", acam)
	}
	if acah := resp.Header.Get("Access-Control-Allow-Headers"); !strings.Contains(acah, "Content-Type") {
		t.Errorf("Access-Control-Allow-Headers lacks Content-Type: %q", acah)
	}
}

// Browsers only let scripts follow the created order if Location is exposed.
func TestCORS_ExposesOrderLocation(t *testing.T) {
	req := newRequest(t, http.MethodPost, "/order", `{"product":{"id":1,"quantity":2}}`)
	req.Header.Set("Origin", "http://shop.example.com")

	resp := send(t, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if aceh := resp.Header.Get("Access-Control-Expose-Headers"); !strings.Contains(aceh, "Location") {
		t.Errorf("Access-Control-Expose-Headers lacks Location: %q", aceh)
	}
	if resp.Header.Get("Location") == "" {
		t.Error("Location header not present")
	}
}

func TestRateLimit_HeadersOnCheckout(t *testing.T) {
	for _, path := range []string{"/", "/order/999999"} {
		resp := doGet(t, path)
		resp.Body.Close()

		if limit := resp.Header.Get("X-RateLimit-Limit"); limit != "1000" {
			t.Errorf("%s X-RateLimit-Limit: got %q, want 1000", path, limit)
		}
		if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining == "" {
			t.Errorf("%s X-RateLimit-Remaining header not present", path)
		}
	}
}
