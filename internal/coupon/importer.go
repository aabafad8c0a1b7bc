package coupon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Upserter persists imported coupons keyed by code.
type Upserter interface {
	Upsert(ctx context.Context, c *model.Coupon) error
}

// ImportStats summarises one import run.
type ImportStats struct {
	Files    int
	Imported int
	Skipped  int
}

// Importer seeds the coupon table from catalogue files.
type Importer struct {
	loader Loader
	store  Upserter
	now    func() time.Time
	logger zerolog.Logger
}

// NewImporter creates a new coupon catalogue importer.
func NewImporter(loader Loader, store Upserter, logger zerolog.Logger) *Importer {
	return &Importer{
		loader: loader,
		store:  store,
		now:    time.Now,
		logger: logger.With().Str("component", "coupon-importer").Logger(),
	}
}

type loadResult struct {
	index int
	defs  []model.CouponInput
	err   error
}

// Import loads every file concurrently, then upserts the definitions in
// file order so later files win on duplicate codes. Definitions that break
// a coupon rule are skipped and logged.
func (i *Importer) Import(ctx context.Context, paths []string) (ImportStats, error) {
	stats := ImportStats{Files: len(paths)}
	if len(paths) == 0 {
		return stats, nil
	}

	i.logger.Info().Strs("files", paths).Msg("importing coupon catalogue")

	resultChan := make(chan loadResult, len(paths))
	var wg sync.WaitGroup

	for idx, path := range paths {
		wg.Add(1)
		go func(index int, p string) {
			defer wg.Done()

			defs, err := i.loader.Load(ctx, p)
			resultChan <- loadResult{index: index, defs: defs, err: err}
		}(idx, path)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(paths))
	for result := range resultChan {
		results[result.index] = result
	}

	for idx, result := range results {
		if result.err != nil {
			i.logger.Error().Err(result.err).Str("file", paths[idx]).Msg("failed to load coupon file")
			return stats, fmt.Errorf("failed to load coupon file %s: %w", paths[idx], result.err)
		}
	}

	now := i.now()
	for idx, result := range results {
		for _, def := range result.defs {
			c, err := Build(def, now)
			if err != nil {
				stats.Skipped++
				i.logger.Warn().
					Err(err).
					Str("file", paths[idx]).
					Str("coupon_code", def.Code).
					Msg("skipping invalid coupon definition")
				continue
			}

			if err := i.store.Upsert(ctx, c); err != nil {
				return stats, fmt.Errorf("failed to upsert coupon %s: %w", c.Code, err)
			}
			stats.Imported++
		}
	}

	i.logger.Info().
		Int("files", stats.Files).
		Int("imported", stats.Imported).
		Int("skipped", stats.Skipped).
		Msg("coupon catalogue imported")

	return stats, nil
}
