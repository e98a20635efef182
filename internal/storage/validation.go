package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jv92admin/ryesvp-sub000/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrEmptySlice      = errors.New("slice cannot be empty")
	ErrInvalidEvent    = errors.New("invalid event")
	ErrInvalidEntry    = errors.New("invalid catalog entry")
	ErrInvalidDecision = errors.New("invalid match decision")
	ErrInvalidSource   = errors.New("invalid decision source")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateEvents validates a slice of internal events.
func validateEvents(events []model.InternalEvent) error {
	if events == nil {
		return fmt.Errorf("%w: events", ErrNilParameter)
	}
	if len(events) == 0 {
		return fmt.Errorf("%w: events", ErrEmptySlice)
	}

	for i, ev := range events {
		if err := validateEvent(&ev); err != nil {
			return fmt.Errorf("event at index %d: %w", i, err)
		}
	}
	return nil
}

// validateEvent validates a single internal event.
func validateEvent(ev *model.InternalEvent) error {
	if ev == nil {
		return fmt.Errorf("%w: event", ErrNilParameter)
	}
	if ev.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidEvent)
	}
	if ev.Title == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidEvent)
	}
	if ev.Venue.Slug == "" {
		return fmt.Errorf("%w: missing venue slug", ErrInvalidEvent)
	}
	if ev.StartsAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidEvent)
	}
	return nil
}

// validateEntry validates a catalog entry before insertion.
func validateEntry(entry *model.ExternalCatalogEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if entry.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidEntry)
	}
	if entry.VenueSlug == "" {
		return fmt.Errorf("%w: missing venue slug", ErrInvalidEntry)
	}
	if entry.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidEntry)
	}
	if entry.LocalDate == "" {
		return fmt.Errorf("%w: missing local date", ErrInvalidEntry)
	}
	if entry.StartsAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidEntry)
	}
	return nil
}

// validateDecision enforces the match-decision invariants at the storage
// boundary: a matched decision always carries an external id and a positive
// confidence, and the source must be consistent with the matched flag.
func validateDecision(d *model.MatchDecision) error {
	if d == nil {
		return fmt.Errorf("%w: decision", ErrNilParameter)
	}
	if d.EventID == "" {
		return fmt.Errorf("%w: missing event ID", ErrInvalidDecision)
	}

	switch d.Source {
	case model.SourceAuto, model.SourceArbitrated, model.SourceNone:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidSource, d.Source)
	}

	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidDecision)
	}

	if d.Matched {
		if d.ExternalID == "" {
			return fmt.Errorf("%w: matched decision missing external ID", ErrInvalidDecision)
		}
		if d.Confidence <= 0 {
			return fmt.Errorf("%w: matched decision requires confidence > 0", ErrInvalidDecision)
		}
		if d.Source == model.SourceNone {
			return fmt.Errorf("%w: matched decision cannot have source none", ErrInvalidDecision)
		}
	} else if d.Source != model.SourceNone {
		return fmt.Errorf("%w: unmatched decision must have source none", ErrInvalidDecision)
	}

	return nil
}
