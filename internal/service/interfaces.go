// Package service defines the contracts between the application's components.
package service

import (
	"context"
	"time"

	"github.com/jv92admin/ryesvp-sub000/internal/model"
)

// EventFilter selects which internal events a reconciliation pass covers.
type EventFilter struct {
	VenueSlug     string
	TitleContains string
	Limit         int
}

// Storage defines the persistence layer contract.
type Storage interface {
	// Internal events (owned by the ingestion pipeline; read surface plus
	// a bulk write used by backfill and tests).
	SaveEvents(ctx context.Context, events []model.InternalEvent) error
	ListEvents(ctx context.Context, filter EventFilter) ([]model.InternalEvent, error)
	GetEventByID(ctx context.Context, id string) (*model.InternalEvent, error)

	// External catalog cache (single writer: the refresh job).
	ReplaceCatalogEntries(ctx context.Context, entries []model.ExternalCatalogEntry) (int, error)
	GetCandidates(ctx context.Context, venueSlug, localDate string) ([]model.ExternalCatalogEntry, error)
	CountCatalogEntries(ctx context.Context) (int, error)

	// Match decisions (one per event, upsert semantics).
	SaveMatchDecision(ctx context.Context, decision *model.MatchDecision) error
	GetMatchDecision(ctx context.Context, eventID string) (*model.MatchDecision, error)
	ListMatchDecisions(ctx context.Context) ([]model.MatchDecision, error)

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// CatalogProvider fetches events from the external ticketing catalog.
type CatalogProvider interface {
	// Enabled reports whether the provider is configured with credentials.
	Enabled() bool
	// FetchVenueEvents returns all catalog entries for one provider venue id
	// within the forward-looking window, tagged with the internal venue slug.
	// Per-entry data errors are returned alongside the usable entries.
	FetchVenueEvents(ctx context.Context, venueSlug, venueID string, window time.Duration) ([]model.ExternalCatalogEntry, []error, error)
}

// ArbitrationCandidate is one ranked candidate submitted to the oracle.
type ArbitrationCandidate struct {
	StartsAt   *time.Time
	Name       string
	Similarity float64
}

// ArbitrationRequest describes one ambiguous match for the oracle to settle.
type ArbitrationRequest struct {
	EventTime  time.Time
	EventTitle string
	VenueName  string
	Candidates []ArbitrationCandidate
}

// ArbitrationResult is the oracle's structured verdict. SelectedIndex is
// 1-based; zero means no match.
type ArbitrationResult struct {
	SelectedIndex       int
	PreferExternalTitle bool
	Rationale           string
}

// ReconcileStats summarizes a reconciliation run for observability.
type ReconcileStats struct {
	Duration     time.Duration
	Processed    int
	Matched      int
	AutoAccepted int
	Arbitrated   int
	Unmatched    int
	Reused       int
	Errors       int
}

// RefreshStats summarizes a catalog cache refresh.
type RefreshStats struct {
	Duration     time.Duration
	Venues       int
	VenuesFailed int
	Entries      int
	Skipped      int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
