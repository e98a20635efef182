package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jv92admin/ryesvp-sub000/internal/cli"
	"github.com/jv92admin/ryesvp-sub000/internal/common"
	"github.com/jv92admin/ryesvp-sub000/internal/model"
	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <events.json>",
		Short: "Load internal events from a JSON file",
		Long: `Bulk-load internal events into the events table. Intended for backfill
and local development; the ingestion pipeline owns events in production.

The file holds an array of objects:
  [{"id": "evt-1", "title": "Hamilton", "venueSlug": "moody-center",
    "venueName": "Moody Center", "startsAt": "2025-06-15T19:30:00Z",
    "status": "scheduled"}]`,
		Args: cobra.ExactArgs(1),
		RunE: runSeed,
	}
}

// seedEvent is the JSON shape accepted by the seed command.
type seedEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	VenueSlug string    `json:"venueSlug"`
	VenueName string    `json:"venueName"`
	StartsAt  time.Time `json:"startsAt"`
	Status    string    `json:"status"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read events file: %w", err)
	}

	var raw []seedEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse events file: %w", err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("%w in file %s", common.ErrNoEvents, args[0])
	}

	events := make([]model.InternalEvent, len(raw))
	for i, r := range raw {
		status := model.EventStatus(r.Status)
		if r.Status == "" {
			status = model.EventStatusScheduled
		}
		events[i] = model.InternalEvent{
			ID:       r.ID,
			Title:    r.Title,
			Venue:    model.VenueRef{Slug: r.VenueSlug, Name: r.VenueName},
			StartsAt: r.StartsAt,
			Status:   status,
		}
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveEvents(ctx, events); err != nil {
		return fmt.Errorf("failed to save events: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Loaded %d events", len(events))))
	return nil
}
