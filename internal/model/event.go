// Package model defines the core domain types shared across the application.
package model

import "time"

// EventStatus is the lifecycle status of an internally-sourced event.
type EventStatus string

// Event lifecycle statuses.
const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusPostponed EventStatus = "postponed"
)

// VenueRef identifies the venue an internal event belongs to.
type VenueRef struct {
	Slug string
	Name string
}

// InternalEvent is an event sourced directly from a venue. It is owned by the
// ingestion pipeline and read-only to the reconciliation core.
type InternalEvent struct {
	StartsAt time.Time
	Decision *MatchDecision // prior reconciliation outcome, if any
	ID       string
	Title    string
	Venue    VenueRef
	Status   EventStatus
}

// LocalDay returns the calendar-day key used for candidate lookups. Internal
// start timestamps are stored as venue-local wall-clock times, so the date
// portion lines up with the provider's timezone-independent localDate.
func (e *InternalEvent) LocalDay() string {
	return e.StartsAt.Format("2006-01-02")
}
