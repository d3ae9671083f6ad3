package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/checkout-api/internal/catalog"
	"github.com/xenking/checkout-api/internal/storage"
)

func main() {
	var (
		databaseURL string
		feed        string
		force       bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "postgres:// URL or sqlite:<path> (or DATABASE_URL env)")
	flag.StringVar(&feed, "feed", catalog.DefaultFeedURL, `product feed URL, file path (.gz allowed) or "bundled"`)
	flag.BoolVar(&force, "force", false, "upsert products even when the catalog is not empty")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, feed, force); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, feed string, force bool) error {
	slog.Info("opening store")

	store, err := storage.Open(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer store.Close()

	slog.Info("loading feed", slog.String("source", feed), slog.Bool("force", force))

	report, err := catalog.NewSeeder(store.Products, nil).Seed(ctx, feed, force)
	if err != nil {
		return errors.Wrap(err, "seed products")
	}
	if !report.Ran {
		slog.Info("catalog already populated, nothing to do (use --force to upsert anyway)")
		return nil
	}

	for _, s := range report.Skipped {
		slog.Warn("skipped product",
			slog.Int64("id", s.ID),
			slog.String("name", s.Name),
			slog.String("reason", s.Reason.Error()),
		)
	}
	slog.Info("upserted products",
		slog.Int("count", report.Upserted),
		slog.Int("skipped", len(report.Skipped)),
	)
	return nil
}
