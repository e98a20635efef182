// Package refresh rebuilds the external catalog cache from the ticketing
// provider. Each run fetches every configured venue and replaces the cache
// wholesale, so delisted events disappear rather than lingering.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jv92admin/ryesvp-sub000/internal/common"
	"github.com/jv92admin/ryesvp-sub000/internal/model"
	"github.com/jv92admin/ryesvp-sub000/internal/service"
)

// Refresher fetches the catalog for all configured venues and swaps the
// cached snapshot in one transaction. Request spacing against the provider is
// owned by the catalog client itself, which throttles every page request.
type Refresher struct {
	provider service.CatalogProvider
	storage  service.Storage
	// venues maps internal venue slugs to the provider's venue ids.
	venues map[string]string
	window time.Duration
}

// New creates a refresher. The window bounds how far ahead the catalog is
// fetched.
func New(provider service.CatalogProvider, storage service.Storage, venues map[string]string, window time.Duration) *Refresher {
	return &Refresher{
		provider: provider,
		storage:  storage,
		venues:   venues,
		window:   window,
	}
}

// Run refreshes the catalog cache. Transient provider errors get one retry;
// other venue failures are logged and skipped so one flaky venue does not
// abort the whole refresh. The cache is only replaced when at least one venue
// succeeded.
func (r *Refresher) Run(ctx context.Context) (service.RefreshStats, error) {
	start := time.Now()
	stats := service.RefreshStats{Venues: len(r.venues)}

	if !r.provider.Enabled() {
		slog.Warn("Catalog provider not configured, skipping refresh")
		return stats, common.ErrProviderDisabled
	}
	if len(r.venues) == 0 {
		return stats, fmt.Errorf("%w: no venues configured", common.ErrMissingConfig)
	}

	// Sorted iteration keeps runs deterministic and log output stable.
	slugs := make([]string, 0, len(r.venues))
	for slug := range r.venues {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	var all []model.ExternalCatalogEntry
	succeeded := 0

	for _, slug := range slugs {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		venueID := r.venues[slug]
		var entries []model.ExternalCatalogEntry
		var entryErrs []error
		err := common.WithRetry(ctx, func() error {
			var fetchErr error
			entries, entryErrs, fetchErr = r.provider.FetchVenueEvents(ctx, slug, venueID, r.window)
			if fetchErr != nil && !common.IsRetryable(fetchErr) {
				return &common.RetryableError{Err: fetchErr, Retryable: false}
			}
			return fetchErr
		}, service.RetryOptions{
			MaxAttempts:  2,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		})
		if err != nil {
			slog.Error("Failed to fetch venue catalog",
				"venue", slug,
				"venue_id", venueID,
				"error", err)
			stats.VenuesFailed++
			continue
		}

		for _, entryErr := range entryErrs {
			slog.Warn("Skipping catalog entry", "venue", slug, "error", entryErr)
		}
		stats.Skipped += len(entryErrs)

		slog.Debug("Fetched venue catalog", "venue", slug, "entries", len(entries))
		all = append(all, entries...)
		succeeded++
	}

	if succeeded == 0 {
		return stats, fmt.Errorf("all %d venues failed to refresh", len(r.venues))
	}

	inserted, err := r.storage.ReplaceCatalogEntries(ctx, all)
	if err != nil {
		return stats, fmt.Errorf("failed to replace catalog cache: %w", err)
	}
	stats.Skipped += len(all) - inserted
	stats.Entries = inserted
	stats.Duration = time.Since(start)

	slog.Info("Catalog cache refreshed",
		"venues", succeeded,
		"venues_failed", stats.VenuesFailed,
		"entries", stats.Entries,
		"skipped", stats.Skipped,
		"duration", stats.Duration.Round(time.Millisecond))

	return stats, nil
}
