package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/checkout-api/internal/domain/payment"
	"github.com/xenking/checkout-api/internal/envelope"
)

func testCard(number string) payment.Card {
	return payment.Card{
		Name:            "John Doe",
		Number:          number,
		ExpirationYear:  2031,
		ExpirationMonth: 9,
		CVV:             "123",
	}
}

func newSandboxServer(t *testing.T) *httptest.Server {
	t.Helper()
	sb := NewSandbox()
	sb.now = func() time.Time { return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) }
	sb.newID = func() string { return "tx-sandbox" }
	srv := httptest.NewServer(sb)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{URL: url, Timeout: timeout})
	require.NoError(t, err)
	return c
}

func TestCharge_Approved(t *testing.T) {
	srv := newSandboxServer(t)
	c := newTestClient(t, srv.URL, time.Second)

	res, err := c.Charge(context.Background(), testCard(payment.SandboxApproved), decimal.RequireFromString("306"))
	require.NoError(t, err)
	assert.Equal(t, "tx-sandbox", res.Transaction.ID)
	assert.True(t, res.Transaction.Success)
	assert.True(t, decimal.RequireFromString("306").Equal(res.Transaction.AmountCharged))
	require.NotNil(t, res.Card)
	assert.Equal(t, "John Doe", res.Card.Name)
	assert.Equal(t, "4242", res.Card.FirstDigits)
	assert.Equal(t, "4242", res.Card.LastDigits)
	assert.Equal(t, 2031, res.Card.ExpirationYear)
	assert.Equal(t, 9, res.Card.ExpirationMonth)
}

func TestCharge_Rejected(t *testing.T) {
	tests := []struct {
		name string
		card payment.Card
		code string
	}{
		{"declined", testCard(payment.SandboxDeclined), "card-declined"},
		{"unknown number", testCard("4002 4242 4242 4242"), "incorrect-number"},
		{"expired", func() payment.Card { c := testCard(payment.SandboxApproved); c.ExpirationYear = 2024; return c }(), "card-expired"},
		{"missing cvv", func() payment.Card { c := testCard(payment.SandboxApproved); c.CVV = ""; return c }(), "missing-fields"},
	}
	srv := newSandboxServer(t)
	c := newTestClient(t, srv.URL, time.Second)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Charge(context.Background(), tt.card, decimal.NewFromInt(10))

			var gwErr *payment.GatewayError
			require.True(t, errors.As(err, &gwErr))
			assert.Equal(t, http.StatusUnprocessableEntity, gwErr.Status)
			assert.False(t, gwErr.Timeout)

			entry, err := envelope.Decode(gwErr.Body)
			require.NoError(t, err)
			assert.Equal(t, "credit_card", entry.Context)
			assert.Equal(t, tt.code, entry.Code)
		})
	}
}

func TestCharge_ForwardsBodyVerbatim(t *testing.T) {
	const body = `{"errors":{"credit_card":{"code":"card-declined","name":"nope"}},"extra":1}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, time.Second).Charge(context.Background(), testCard(payment.SandboxApproved), decimal.NewFromInt(1))
	var gwErr *payment.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusPaymentRequired, gwErr.Status)
	assert.Equal(t, body, string(gwErr.Body))
}

func TestCharge_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 50*time.Millisecond).Charge(context.Background(), testCard(payment.SandboxApproved), decimal.NewFromInt(1))
	var gwErr *payment.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.True(t, gwErr.Timeout)
	assert.Zero(t, gwErr.Status)
}

func TestCharge_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url, time.Second).Charge(context.Background(), testCard(payment.SandboxApproved), decimal.NewFromInt(1))
	var gwErr *payment.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.False(t, gwErr.Timeout)
	assert.Zero(t, gwErr.Status)
	assert.Error(t, gwErr.Err)
}

func TestCharge_SendsContract(t *testing.T) {
	var (
		gotCard   payment.Card
		gotAmount decimal.Decimal
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		gotCard, gotAmount, err = decodeCharge(jx.Decode(r.Body, 512))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"transaction":{"id":"abc","success":true,"amount_charged":12.5}}`))
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv.URL, time.Second).Charge(context.Background(), testCard(payment.SandboxApproved), decimal.RequireFromString("12.50"))
	require.NoError(t, err)
	assert.Equal(t, testCard(payment.SandboxApproved), gotCard)
	assert.True(t, decimal.RequireFromString("12.5").Equal(gotAmount))
	assert.Equal(t, "abc", res.Transaction.ID)
	assert.Nil(t, res.Card)
}

func TestDecodeResult(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"no transaction", `{"credit_card":{}}`, true},
		{"empty id", `{"transaction":{"id":"","success":true,"amount_charged":1}}`, true},
		{"amount as string", `{"transaction":{"id":"a","success":true,"amount_charged":"1"}}`, true},
		{"null card", `{"transaction":{"id":"a","success":false,"amount_charged":1},"credit_card":null}`, false},
		{"empty card", `{"transaction":{"id":"a","success":true,"amount_charged":1},"credit_card":{}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := decodeResult(jx.DecodeStr(tt.in))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Nil(t, res.Card)
		})
	}
}

func TestSandbox_MethodAndBody(t *testing.T) {
	srv := newSandboxServer(t)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(srv.URL, "application/json", strings.NewReader("invalid"))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
