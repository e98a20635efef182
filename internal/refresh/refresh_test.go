package refresh

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jv92admin/ryesvp-sub000/internal/common"
	"github.com/jv92admin/ryesvp-sub000/internal/model"
	"github.com/jv92admin/ryesvp-sub000/internal/service"
	"github.com/jv92admin/ryesvp-sub000/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider serves canned per-venue results and records fetch order.
type fakeProvider struct {
	entries  map[string][]model.ExternalCatalogEntry
	errs     map[string]error
	failOnce map[string]error
	fetched  []string
	disabled bool
}

func (f *fakeProvider) Enabled() bool { return !f.disabled }

func (f *fakeProvider) FetchVenueEvents(_ context.Context, venueSlug, _ string, _ time.Duration) ([]model.ExternalCatalogEntry, []error, error) {
	f.fetched = append(f.fetched, venueSlug)
	if err := f.errs[venueSlug]; err != nil {
		return nil, nil, err
	}
	if err := f.failOnce[venueSlug]; err != nil {
		delete(f.failOnce, venueSlug)
		return nil, nil, err
	}
	var entryErrs []error
	if venueSlug == "with-bad-entry" {
		entryErrs = append(entryErrs, fmt.Errorf("event x: %w", common.ErrMissingStartDate))
	}
	return f.entries[venueSlug], entryErrs, nil
}

func createTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func entry(id, venue, day string) model.ExternalCatalogEntry {
	return model.ExternalCatalogEntry{
		ID:        id,
		VenueSlug: venue,
		Name:      "Show " + id,
		LocalDate: day,
		StartsAt:  time.Date(2025, 6, 15, 19, 0, 0, 0, time.UTC),
	}
}

func TestRefresher_Run(t *testing.T) {
	store := createTestStorage(t)
	provider := &fakeProvider{
		entries: map[string][]model.ExternalCatalogEntry{
			"moody-center": {entry("ext-1", "moody-center", "2025-06-15"), entry("ext-2", "moody-center", "2025-06-16")},
			"acl-live":     {entry("ext-3", "acl-live", "2025-06-15")},
		},
	}
	venues := map[string]string{"moody-center": "KovZ1", "acl-live": "KovZ2"}

	r := New(provider, store, venues, 6*30*24*time.Hour)
	stats, err := r.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Venues)
	assert.Zero(t, stats.VenuesFailed)
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, []string{"acl-live", "moody-center"}, provider.fetched, "venues fetched in sorted order")

	count, err := store.CountCatalogEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRefresher_Run_ReplacesWholesale(t *testing.T) {
	store := createTestStorage(t)
	provider := &fakeProvider{
		entries: map[string][]model.ExternalCatalogEntry{
			"moody-center": {entry("ext-old", "moody-center", "2025-06-15")},
		},
	}
	venues := map[string]string{"moody-center": "KovZ1"}
	r := New(provider, store, venues, time.Hour)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	// The event got delisted upstream; the next run must drop it.
	provider.entries["moody-center"] = []model.ExternalCatalogEntry{entry("ext-new", "moody-center", "2025-06-20")}
	_, err = r.Run(context.Background())
	require.NoError(t, err)

	candidates, err := store.GetCandidates(context.Background(), "moody-center", "2025-06-15")
	require.NoError(t, err)
	assert.Empty(t, candidates)

	candidates, err = store.GetCandidates(context.Background(), "moody-center", "2025-06-20")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "ext-new", candidates[0].ID)
}

func TestRefresher_Run_SkipsFailedVenues(t *testing.T) {
	store := createTestStorage(t)
	provider := &fakeProvider{
		entries: map[string][]model.ExternalCatalogEntry{
			"moody-center": {entry("ext-1", "moody-center", "2025-06-15")},
		},
		errs: map[string]error{"acl-live": errors.New("boom")},
	}
	venues := map[string]string{"moody-center": "KovZ1", "acl-live": "KovZ2"}
	r := New(provider, store, venues, time.Hour)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.VenuesFailed)
	assert.Equal(t, 1, stats.Entries)
	assert.Len(t, provider.fetched, 2, "permanent failures are not retried")
}

func TestRefresher_Run_RetriesRateLimitedVenue(t *testing.T) {
	store := createTestStorage(t)
	provider := &fakeProvider{
		entries: map[string][]model.ExternalCatalogEntry{
			"moody-center": {entry("ext-1", "moody-center", "2025-06-15")},
		},
		failOnce: map[string]error{"moody-center": common.ErrProviderRateLimit},
	}
	venues := map[string]string{"moody-center": "KovZ1"}

	stats, err := New(provider, store, venues, time.Hour).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.VenuesFailed)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, []string{"moody-center", "moody-center"}, provider.fetched,
		"a rate-limited fetch is retried instead of skipping the venue")
}

func TestRefresher_Run_AllVenuesFailedKeepsCache(t *testing.T) {
	store := createTestStorage(t)

	seed := &fakeProvider{entries: map[string][]model.ExternalCatalogEntry{
		"moody-center": {entry("ext-1", "moody-center", "2025-06-15")},
	}}
	venues := map[string]string{"moody-center": "KovZ1"}
	_, err := New(seed, store, venues, time.Hour).Run(context.Background())
	require.NoError(t, err)

	failing := &fakeProvider{errs: map[string]error{"moody-center": errors.New("boom")}}
	_, err = New(failing, store, venues, time.Hour).Run(context.Background())
	require.Error(t, err)

	count, err := store.CountCatalogEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count, "a fully failed refresh must not wipe the cache")
}

func TestRefresher_Run_CountsSkippedEntries(t *testing.T) {
	store := createTestStorage(t)
	provider := &fakeProvider{
		entries: map[string][]model.ExternalCatalogEntry{
			"with-bad-entry": {entry("ext-1", "with-bad-entry", "2025-06-15")},
		},
	}
	venues := map[string]string{"with-bad-entry": "KovZ1"}

	stats, err := New(provider, store, venues, time.Hour).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Entries)
}

func TestRefresher_Run_Preconditions(t *testing.T) {
	store := createTestStorage(t)

	t.Run("disabled provider", func(t *testing.T) {
		r := New(&fakeProvider{disabled: true}, store, map[string]string{"v": "id"}, time.Hour)
		_, err := r.Run(context.Background())
		assert.ErrorIs(t, err, common.ErrProviderDisabled)
	})

	t.Run("no venues", func(t *testing.T) {
		r := New(&fakeProvider{}, store, nil, time.Hour)
		_, err := r.Run(context.Background())
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})
}

var _ service.CatalogProvider = (*fakeProvider)(nil)
