// Package hydrate attaches catalog details to guest cart lines, which are
// stored without product data.
package hydrate

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"storefront-sync/internal/model"
)

// DefaultLimit bounds concurrent product lookups when the caller passes 0.
const DefaultLimit = 8

// ProductFetcher looks up one product. adapter.RemoteStore satisfies it.
type ProductFetcher interface {
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
}

// Options tunes Lines.
type Options struct {
	// Limit bounds concurrent lookups. Zero means DefaultLimit.
	Limit int

	// Logger receives dropped-line diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// Lines looks up every line's product concurrently and waits for all of
// them. Lines whose lookup fails are dropped; the rest keep their input
// order. Nothing is cached, so each call hits the fetcher once per line.
func Lines(ctx context.Context, fetcher ProductFetcher, lines []model.CartLine, opts Options) []model.CartLine {
	if len(lines) == 0 {
		return []model.CartLine{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	products := make([]*model.Product, len(lines))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, line := range lines {
		g.Go(func() error {
			p, err := fetcher.GetProduct(ctx, line.ProductID)
			if err != nil {
				// One missing product must not sink the others.
				logger.Debug("dropping unhydratable cart line",
					slog.String("product_id", line.ProductID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			products[i] = p
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.CartLine, 0, len(lines))
	for i, line := range lines {
		if products[i] == nil {
			continue
		}
		line.Product = products[i]
		out = append(out, line)
	}
	return out
}
