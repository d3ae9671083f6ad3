// Package gateway talks to the external payment processor and provides a
// sandbox processor implementing the same contract.
package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/checkout-api/internal/domain/payment"
)

// DefaultURL is the course payment processor.
const DefaultURL = "http://dimprojetu.uqac.ca/~jgnault/shops/pay/"

const maxBody = 1 << 20

var _ payment.Gateway = (*Client)(nil)

// ClientConfig configures Client.
type ClientConfig struct {
	URL            string
	Timeout        time.Duration
	Transport      http.RoundTripper
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client charges cards over HTTP.
type Client struct {
	url     string
	timeout time.Duration
	http    *http.Client
	charges metric.Int64Counter
}

// NewClient returns a Client. Zero config values fall back to DefaultURL, a
// 10 second timeout and no-op telemetry.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = noop.NewMeterProvider()
	}

	charges, err := cfg.MeterProvider.Meter("checkout/gateway").Int64Counter("checkout.gateway.charges",
		metric.WithDescription("Payment gateway charge attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create charges counter")
	}

	return &Client{
		url:     cfg.URL,
		timeout: cfg.Timeout,
		http: &http.Client{
			Transport: otelhttp.NewTransport(cfg.Transport,
				otelhttp.WithTracerProvider(cfg.TracerProvider),
				otelhttp.WithMeterProvider(cfg.MeterProvider),
			),
		},
		charges: charges,
	}, nil
}

// Charge posts the card and amount to the processor. Any answer other than
// HTTP 200 is a *payment.GatewayError carrying the status and body verbatim.
func (c *Client) Charge(ctx context.Context, card payment.Card, amount decimal.Decimal) (*payment.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var e jx.Encoder
	encodeCharge(&e, card, amount)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(e.Bytes()))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(ctx, transportError(ctx, err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, c.fail(ctx, transportError(ctx, err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.fail(ctx, &payment.GatewayError{Status: resp.StatusCode, Body: body})
	}

	res, err := decodeResult(jx.DecodeBytes(body))
	if err != nil {
		// The processor answered 200, so the card may have been charged.
		zctx.From(ctx).Error("Undecodable charge response",
			zap.ByteString("body", body),
			zap.Error(err),
		)
		return nil, c.fail(ctx, &payment.GatewayError{Err: errors.Wrap(err, "decode response")})
	}

	outcome := "approved"
	if !res.Transaction.Success {
		outcome = "declined"
	}
	c.charges.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	return res, nil
}

func (c *Client) fail(ctx context.Context, gwErr *payment.GatewayError) error {
	outcome := "unavailable"
	switch {
	case gwErr.Timeout:
		outcome = "timeout"
	case gwErr.Status != 0:
		outcome = "rejected"
	}
	c.charges.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	return gwErr
}

func transportError(ctx context.Context, err error) *payment.GatewayError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &payment.GatewayError{Timeout: true, Err: err}
	}
	return &payment.GatewayError{Err: err}
}
