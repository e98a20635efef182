package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jv92admin/ryesvp-sub000/internal/common"
	"github.com/jv92admin/ryesvp-sub000/internal/model"
	"github.com/jv92admin/ryesvp-sub000/internal/service"
)

// SaveEvents inserts or updates internal events. The table is owned by the
// ingestion pipeline; this write path exists for backfill and tests.
func (s *SQLiteStorage) SaveEvents(ctx context.Context, events []model.InternalEvent) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEvents(events); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, title, venue_slug, venue_name, starts_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			venue_slug = excluded.venue_slug,
			venue_name = excluded.venue_name,
			starts_at = excluded.starts_at,
			status = excluded.status
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, ev := range events {
		status := ev.Status
		if status == "" {
			status = model.EventStatusScheduled
		}
		if _, err := stmt.ExecContext(ctx, ev.ID, ev.Title, ev.Venue.Slug, ev.Venue.Name, ev.StartsAt, string(status)); err != nil {
			return fmt.Errorf("failed to save event %s: %w", ev.ID, err)
		}
	}

	return tx.Commit()
}

// ListEvents returns internal events matching the filter, each joined with its
// existing match decision (if any).
func (s *SQLiteStorage) ListEvents(ctx context.Context, filter service.EventFilter) ([]model.InternalEvent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, title, venue_slug, venue_name, starts_at, status
		FROM events
	`
	var conditions []string
	var args []any

	if filter.VenueSlug != "" {
		conditions = append(conditions, "venue_slug = ?")
		args = append(args, filter.VenueSlug)
	}
	if filter.TitleContains != "" {
		conditions = append(conditions, "title LIKE ?")
		args = append(args, "%"+filter.TitleContains+"%")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY starts_at, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.InternalEvent
	for rows.Next() {
		var ev model.InternalEvent
		var status string
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Venue.Slug, &ev.Venue.Name, &ev.StartsAt, &status); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Status = model.EventStatus(status)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	// Attach existing decisions. Done as a second pass to keep the scan
	// simple; batch sizes are hundreds, not millions.
	for i := range events {
		decision, err := s.GetMatchDecision(ctx, events[i].ID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("failed to load decision for event %s: %w", events[i].ID, err)
		}
		events[i].Decision = decision
	}

	return events, nil
}

// GetEventByID returns a single internal event with its decision attached.
func (s *SQLiteStorage) GetEventByID(ctx context.Context, id string) (*model.InternalEvent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var ev model.InternalEvent
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, venue_slug, venue_name, starts_at, status
		FROM events WHERE id = ?
	`, id).Scan(&ev.ID, &ev.Title, &ev.Venue.Slug, &ev.Venue.Name, &ev.StartsAt, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	ev.Status = model.EventStatus(status)

	decision, err := s.GetMatchDecision(ctx, ev.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	ev.Decision = decision

	return &ev, nil
}
