// Command pay-sandbox serves a stand-in for the payment processor so the API
// can be exercised without the remote one.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/checkout-api/internal/gateway"
	"github.com/xenking/checkout-api/pkg/httpmiddleware"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		addr := os.Getenv("PAY_SANDBOX_ADDR")
		if addr == "" {
			addr = "0.0.0.0:8081"
		}

		find := func(*http.Request) string { return "/" }
		server := &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: time.Second,
			Handler: httpmiddleware.Wrap(gateway.NewSandbox(),
				httpmiddleware.InjectLogger(zctx.From(ctx)),
				httpmiddleware.Recovery(nil),
				httpmiddleware.RequestID(),
				httpmiddleware.Instrument("pay-sandbox", find, m.TracerProvider(), m.MeterProvider()),
				httpmiddleware.LogRequests(find),
			),
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			lg.Info("Sandbox listening", zap.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "server")
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return errors.Wrap(err, "shutdown")
			}
			return nil
		})
		return g.Wait()
	})
}
