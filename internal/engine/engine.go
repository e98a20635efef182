// Package engine implements the match decision engine that reconciles
// internal events against the cached external catalog.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jv92admin/ryesvp-sub000/internal/common"
	"github.com/jv92admin/ryesvp-sub000/internal/model"
	"github.com/jv92admin/ryesvp-sub000/internal/oracle"
	"github.com/jv92admin/ryesvp-sub000/internal/service"
	"github.com/jv92admin/ryesvp-sub000/internal/similarity"
)

const (
	// defaultAutoAcceptThreshold is the similarity score at or above which
	// the top candidate is accepted without arbitration. Tuned against a
	// season of real listings; configurable because it is policy, not math.
	defaultAutoAcceptThreshold = 0.85

	// preferTitleLengthRatio marks the external title as displayable when it
	// is this much longer than ours, a proxy for "carries more information"
	// (full team names, supporting act billing).
	preferTitleLengthRatio = 1.5

	// arbitratedConfidenceFloor keeps oracle-approved matches above zero
	// confidence even when the raw title similarity is negligible.
	arbitratedConfidenceFloor = 0.05
)

// Engine reconciles internal events against the external catalog cache.
type Engine struct {
	storage service.Storage
	arbiter oracle.Arbiter
	// threshold is the auto-accept similarity threshold.
	threshold float64
}

// Options controls a single reconciliation pass.
type Options struct {
	VenueFilter string
	TitleFilter string
	Limit       int
	DryRun      bool
	// Fresh ignores prior decisions and recomputes every event.
	Fresh bool
	// Progress, if set, is invoked after each processed event.
	Progress func()
}

// New creates a reconciliation engine. A zero threshold selects the default.
func New(storage service.Storage, arbiter oracle.Arbiter, threshold float64) *Engine {
	if threshold <= 0 {
		threshold = defaultAutoAcceptThreshold
	}
	return &Engine{
		storage:   storage,
		arbiter:   arbiter,
		threshold: threshold,
	}
}

// Reconcile processes the selected internal events sequentially and persists
// one match decision per event. Events are never mutated; all enrichment
// lands on the decision row. With DryRun set, decisions are computed and
// counted but nothing is written.
func (e *Engine) Reconcile(ctx context.Context, opts Options) (service.ReconcileStats, error) {
	start := time.Now()
	var stats service.ReconcileStats

	// Reconciling against an empty cache would unmatch everything, so an
	// unrefreshed cache is the one fatal precondition.
	count, err := e.storage.CountCatalogEntries(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to check catalog cache: %w", err)
	}
	if count == 0 {
		return stats, fmt.Errorf("%w: run refresh first", common.ErrEmptyCatalogCache)
	}

	events, err := e.storage.ListEvents(ctx, service.EventFilter{
		VenueSlug:     opts.VenueFilter,
		TitleContains: opts.TitleFilter,
		Limit:         opts.Limit,
	})
	if err != nil {
		return stats, fmt.Errorf("failed to list events: %w", err)
	}
	if len(events) == 0 {
		slog.Info("No events matched the reconciliation filter")
		return stats, nil
	}

	slog.Info("Starting reconciliation",
		"events", len(events),
		"threshold", e.threshold,
		"dry_run", opts.DryRun,
		"fresh", opts.Fresh)

	for i := range events {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		event := &events[i]
		stats.Processed++
		if opts.Progress != nil {
			opts.Progress()
		}

		decision, outcome := e.decide(ctx, event, opts.Fresh)
		if outcome == outcomeError {
			stats.Errors++
			continue
		}

		if !opts.DryRun {
			if err := e.storage.SaveMatchDecision(ctx, decision); err != nil {
				slog.Error("Failed to save match decision", "event", event.ID, "error", err)
				stats.Errors++
				continue
			}
		}

		// Outcomes are only counted once the decision is durable (or the run
		// is a dry run), so the buckets always sum to Processed.
		switch outcome {
		case outcomeReused:
			stats.Reused++
			stats.Matched++
		case outcomeAuto:
			stats.AutoAccepted++
			stats.Matched++
		case outcomeArbitrated:
			stats.Arbitrated++
			stats.Matched++
		case outcomeUnmatched:
			stats.Unmatched++
		}
	}

	stats.Duration = time.Since(start)
	slog.Info("Reconciliation complete",
		"processed", stats.Processed,
		"matched", stats.Matched,
		"auto_accepted", stats.AutoAccepted,
		"arbitrated", stats.Arbitrated,
		"unmatched", stats.Unmatched,
		"reused", stats.Reused,
		"errors", stats.Errors,
		"duration", stats.Duration.Round(time.Millisecond))

	return stats, nil
}

type outcome int

const (
	outcomeUnmatched outcome = iota
	outcomeReused
	outcomeAuto
	outcomeArbitrated
	outcomeError
)

// scoredCandidate pairs a catalog entry with its title similarity.
type scoredCandidate struct {
	entry *model.ExternalCatalogEntry
	score float64
}

// decide produces the match decision for one event.
func (e *Engine) decide(ctx context.Context, event *model.InternalEvent, fresh bool) (*model.MatchDecision, outcome) {
	now := time.Now()

	candidates, err := e.storage.GetCandidates(ctx, event.Venue.Slug, event.LocalDay())
	if err != nil {
		slog.Error("Failed to load candidates", "event", event.ID, "error", err)
		return nil, outcomeError
	}

	if len(candidates) == 0 {
		slog.Debug("No candidates for event", "event", event.ID, "day", event.LocalDay())
		return unmatchedDecision(event.ID, now), outcomeUnmatched
	}

	// A prior matched decision is reused verbatim while its catalog entry is
	// still listed under the same display name. This is the dominant path on
	// repeated runs and is what keeps oracle spend flat.
	if prior := event.Decision; prior != nil && prior.Matched && !fresh {
		if entry := findEntry(candidates, prior.ExternalID); entry != nil && entry.Name == prior.ExternalName {
			reused := *prior
			reused.LastCheckedAt = now
			return &reused, outcomeReused
		}
	}

	ranked := rankCandidates(event.Title, candidates)
	top := ranked[0]

	if top.score >= e.threshold {
		decision := &model.MatchDecision{
			EventID:             event.ID,
			Matched:             true,
			ExternalID:          top.entry.ID,
			ExternalName:        top.entry.Name,
			Confidence:          top.score,
			Source:              model.SourceAuto,
			PreferExternalTitle: float64(len(top.entry.Name)) > preferTitleLengthRatio*float64(len(event.Title)),
			LastCheckedAt:       now,
		}
		decision.CopyEnrichment(top.entry)
		slog.Debug("Auto-accepted match",
			"event", event.ID,
			"external_id", top.entry.ID,
			"confidence", top.score)
		return decision, outcomeAuto
	}

	return e.arbitrate(ctx, event, ranked, now)
}

// arbitrate submits the full ranked candidate list to the oracle. Oracle
// failures degrade to an unmatched decision; they never abort the batch.
func (e *Engine) arbitrate(ctx context.Context, event *model.InternalEvent, ranked []scoredCandidate, now time.Time) (*model.MatchDecision, outcome) {
	req := service.ArbitrationRequest{
		EventTitle: event.Title,
		VenueName:  event.Venue.Name,
		EventTime:  event.StartsAt,
		Candidates: make([]service.ArbitrationCandidate, len(ranked)),
	}
	for i, c := range ranked {
		req.Candidates[i] = service.ArbitrationCandidate{
			Name:       c.entry.Name,
			Similarity: c.score,
			StartsAt:   startOrNil(c.entry.StartsAt),
		}
	}

	result, err := e.arbiter.Arbitrate(ctx, req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Warn("Arbitration failed, recording no match", "event", event.ID, "error", err)
		}
		return unmatchedDecision(event.ID, now), outcomeUnmatched
	}

	if result.SelectedIndex <= 0 || result.SelectedIndex > len(ranked) {
		slog.Debug("Oracle declined match", "event", event.ID, "rationale", result.Rationale)
		return unmatchedDecision(event.ID, now), outcomeUnmatched
	}

	chosen := ranked[result.SelectedIndex-1]
	confidence := chosen.score
	if confidence < arbitratedConfidenceFloor {
		confidence = arbitratedConfidenceFloor
	}

	decision := &model.MatchDecision{
		EventID:             event.ID,
		Matched:             true,
		ExternalID:          chosen.entry.ID,
		ExternalName:        chosen.entry.Name,
		Confidence:          confidence,
		Source:              model.SourceArbitrated,
		PreferExternalTitle: result.PreferExternalTitle,
		LastCheckedAt:       now,
	}
	decision.CopyEnrichment(chosen.entry)
	slog.Debug("Arbitrated match",
		"event", event.ID,
		"external_id", chosen.entry.ID,
		"confidence", confidence,
		"rationale", result.Rationale)
	return decision, outcomeArbitrated
}

// rankCandidates scores every candidate against the event title and orders
// them by similarity descending. Candidates arrive name-ascending from
// storage, and the stable sort preserves that order for equal scores.
func rankCandidates(title string, candidates []model.ExternalCatalogEntry) []scoredCandidate {
	ranked := make([]scoredCandidate, len(candidates))
	for i := range candidates {
		ranked[i] = scoredCandidate{
			entry: &candidates[i],
			score: similarity.Score(title, candidates[i].Name),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked
}

func findEntry(candidates []model.ExternalCatalogEntry, id string) *model.ExternalCatalogEntry {
	for i := range candidates {
		if candidates[i].ID == id {
			return &candidates[i]
		}
	}
	return nil
}

func unmatchedDecision(eventID string, now time.Time) *model.MatchDecision {
	return &model.MatchDecision{
		EventID:       eventID,
		Matched:       false,
		Source:        model.SourceNone,
		LastCheckedAt: now,
	}
}

func startOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
