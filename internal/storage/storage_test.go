package storage

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
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func createTestEvents(count int) []model.InternalEvent {
	events := make([]model.InternalEvent, count)
	base := time.Date(2025, 6, 15, 19, 30, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		events[i] = model.InternalEvent{
			ID:       fmt.Sprintf("evt-%03d", i+1),
			Title:    fmt.Sprintf("Test Event %d", i+1),
			Venue:    model.VenueRef{Slug: "moody-center", Name: "Moody Center"},
			StartsAt: base.AddDate(0, 0, i),
			Status:   model.EventStatusScheduled,
		}
	}
	return events
}

func createTestEntry(id, venueSlug, name, localDate string) model.ExternalCatalogEntry {
	starts, _ := time.Parse("2006-01-02", localDate)
	return model.ExternalCatalogEntry{
		ID:        id,
		VenueSlug: venueSlug,
		Name:      name,
		LocalDate: localDate,
		StartsAt:  starts.Add(19 * time.Hour),
		FetchedAt: time.Now(),
	}
}

func TestSQLiteStorage_SaveAndListEvents(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	events := createTestEvents(5)
	events[2].Venue = model.VenueRef{Slug: "acl-live", Name: "ACL Live"}
	events[3].Title = "Texas MBB"

	if err := store.SaveEvents(ctx, events); err != nil {
		t.Fatalf("SaveEvents failed: %v", err)
	}

	t.Run("no filter returns all", func(t *testing.T) {
		got, err := store.ListEvents(ctx, service.EventFilter{})
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		if len(got) != 5 {
			t.Errorf("Expected 5 events, got %d", len(got))
		}
	})

	t.Run("venue filter", func(t *testing.T) {
		got, err := store.ListEvents(ctx, service.EventFilter{VenueSlug: "acl-live"})
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != "evt-003" {
			t.Errorf("Expected only evt-003, got %+v", got)
		}
	})

	t.Run("title filter", func(t *testing.T) {
		got, err := store.ListEvents(ctx, service.EventFilter{TitleContains: "MBB"})
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		if len(got) != 1 || got[0].Title != "Texas MBB" {
			t.Errorf("Expected the MBB event, got %+v", got)
		}
	})

	t.Run("limit", func(t *testing.T) {
		got, err := store.ListEvents(ctx, service.EventFilter{Limit: 2})
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("Expected 2 events, got %d", len(got))
		}
	})

	t.Run("upsert keeps one row per id", func(t *testing.T) {
		events[0].Title = "Renamed Event"
		if err := store.SaveEvents(ctx, events[:1]); err != nil {
			t.Fatalf("SaveEvents failed: %v", err)
		}
		got, err := store.GetEventByID(ctx, "evt-001")
		if err != nil {
			t.Fatalf("GetEventByID failed: %v", err)
		}
		if got.Title != "Renamed Event" {
			t.Errorf("Expected renamed title, got %q", got.Title)
		}
	})

	t.Run("empty slice rejected", func(t *testing.T) {
		if err := store.SaveEvents(ctx, []model.InternalEvent{}); err == nil {
			t.Error("Expected error for empty slice")
		}
	})
}

func TestSQLiteStorage_ReplaceCatalogEntries(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first := []model.ExternalCatalogEntry{
		createTestEntry("ext-1", "moody-center", "Concert A", "2025-06-15"),
		createTestEntry("ext-2", "moody-center", "Concert B", "2025-06-15"),
		createTestEntry("ext-3", "acl-live", "Concert C", "2025-06-16"),
	}

	inserted, err := store.ReplaceCatalogEntries(ctx, first)
	if err != nil {
		t.Fatalf("ReplaceCatalogEntries failed: %v", err)
	}
	if inserted != 3 {
		t.Errorf("Expected 3 inserted, got %d", inserted)
	}

	t.Run("wholesale replace removes delisted entries", func(t *testing.T) {
		second := []model.ExternalCatalogEntry{
			createTestEntry("ext-9", "moody-center", "Concert Z", "2025-07-01"),
		}
		inserted, err := store.ReplaceCatalogEntries(ctx, second)
		if err != nil {
			t.Fatalf("ReplaceCatalogEntries failed: %v", err)
		}
		if inserted != 1 {
			t.Errorf("Expected 1 inserted, got %d", inserted)
		}

		count, err := store.CountCatalogEntries(ctx)
		if err != nil {
			t.Fatalf("CountCatalogEntries failed: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 cached entry after replace, got %d", count)
		}

		old, err := store.GetCandidates(ctx, "moody-center", "2025-06-15")
		if err != nil {
			t.Fatalf("GetCandidates failed: %v", err)
		}
		if len(old) != 0 {
			t.Errorf("Expected delisted entries gone, got %d", len(old))
		}
	})

	t.Run("duplicate ids are skipped not fatal", func(t *testing.T) {
		entries := []model.ExternalCatalogEntry{
			createTestEntry("dup-1", "moody-center", "Concert A", "2025-06-15"),
			createTestEntry("dup-1", "moody-center", "Concert A again", "2025-06-15"),
			createTestEntry("dup-2", "moody-center", "Concert B", "2025-06-15"),
		}
		inserted, err := store.ReplaceCatalogEntries(ctx, entries)
		if err != nil {
			t.Fatalf("ReplaceCatalogEntries failed: %v", err)
		}
		if inserted != 2 {
			t.Errorf("Expected 2 inserted with duplicate skipped, got %d", inserted)
		}
	})
}

func TestSQLiteStorage_GetCandidates(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	womens := createTestEntry("ext-w", "moody-center", "Texas Longhorns Womens Basketball vs. UNC", "2025-06-15")
	mens := createTestEntry("ext-m", "moody-center", "Texas Longhorns Mens Basketball vs. Texas A&M", "2025-06-15")
	otherDay := createTestEntry("ext-d", "moody-center", "Concert", "2025-06-16")
	otherVenue := createTestEntry("ext-v", "acl-live", "Concert", "2025-06-15")

	if _, err := store.ReplaceCatalogEntries(ctx, []model.ExternalCatalogEntry{womens, mens, otherDay, otherVenue}); err != nil {
		t.Fatalf("ReplaceCatalogEntries failed: %v", err)
	}

	got, err := store.GetCandidates(ctx, "moody-center", "2025-06-15")
	if err != nil {
		t.Fatalf("GetCandidates failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 candidates scoped to venue+day, got %d", len(got))
	}
	// Ordered by name: the men's game sorts before the women's game.
	if got[0].ID != "ext-m" || got[1].ID != "ext-w" {
		t.Errorf("Expected name ordering [ext-m ext-w], got [%s %s]", got[0].ID, got[1].ID)
	}
}

func TestSQLiteStorage_CatalogEntryRoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	presaleStart := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	onsaleStart := time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)

	entry := createTestEntry("ext-rich", "moody-center", "Big Show", "2025-06-15")
	entry.URL = "https://tickets.example.com/ext-rich"
	entry.StatusCode = "onsale"
	entry.PriceRange = &model.PriceRange{Min: 39.5, Max: 250, Currency: "USD"}
	entry.PublicSale = model.OnSaleWindow{StartsAt: &onsaleStart}
	entry.SaleWindows = []model.SaleWindow{
		{Name: "Citi Presale", StartsAt: &presaleStart, URL: "https://presale.example.com"},
	}
	entry.ImageURL = "https://img.example.com/big.jpg"
	entry.PerformerID = "attr-1"
	entry.PerformerName = "Big Act"
	entry.SupportingActs = []string{"Opener One", "Opener Two"}
	entry.Classification = model.TaxonomyClassification{Segment: "Music", Genre: "Rock", SubGenre: "Indie"}
	entry.Links = model.ExternalLinks{Homepage: "https://bigact.example.com"}
	entry.Notes = "Clear bag policy in effect."

	if _, err := store.ReplaceCatalogEntries(ctx, []model.ExternalCatalogEntry{entry}); err != nil {
		t.Fatalf("ReplaceCatalogEntries failed: %v", err)
	}

	got, err := store.GetCandidates(ctx, "moody-center", "2025-06-15")
	if err != nil {
		t.Fatalf("GetCandidates failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(got))
	}

	e := got[0]
	if e.PriceRange == nil || e.PriceRange.Min != 39.5 || e.PriceRange.Currency != "USD" {
		t.Errorf("Price range not round-tripped: %+v", e.PriceRange)
	}
	if len(e.SaleWindows) != 1 || e.SaleWindows[0].Name != "Citi Presale" {
		t.Errorf("Sale windows not round-tripped: %+v", e.SaleWindows)
	}
	if e.SaleWindows[0].StartsAt == nil || !e.SaleWindows[0].StartsAt.Equal(presaleStart) {
		t.Errorf("Sale window start not round-tripped: %+v", e.SaleWindows[0].StartsAt)
	}
	if e.PublicSale.StartsAt == nil || !e.PublicSale.StartsAt.Equal(onsaleStart) {
		t.Errorf("Public sale start not round-tripped: %+v", e.PublicSale.StartsAt)
	}
	if len(e.SupportingActs) != 2 {
		t.Errorf("Supporting acts not round-tripped: %+v", e.SupportingActs)
	}
	if e.Links.Homepage != "https://bigact.example.com" {
		t.Errorf("Links not round-tripped: %+v", e.Links)
	}
	if e.Classification.Genre != "Rock" {
		t.Errorf("Classification not round-tripped: %+v", e.Classification)
	}
}

func TestSQLiteStorage_SaveMatchDecision(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.SaveEvents(ctx, createTestEvents(1)); err != nil {
		t.Fatalf("SaveEvents failed: %v", err)
	}

	decision := &model.MatchDecision{
		EventID:       "evt-001",
		ExternalID:    "ext-1",
		ExternalName:  "Concert A",
		Matched:       true,
		Confidence:    0.92,
		Source:        model.SourceAuto,
		LastCheckedAt: time.Now(),
	}

	if err := store.SaveMatchDecision(ctx, decision); err != nil {
		t.Fatalf("SaveMatchDecision failed: %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		got, err := store.GetMatchDecision(ctx, "evt-001")
		if err != nil {
			t.Fatalf("GetMatchDecision failed: %v", err)
		}
		if got.ExternalID != "ext-1" || !got.Matched || got.Source != model.SourceAuto {
			t.Errorf("Decision not round-tripped: %+v", got)
		}
	})

	t.Run("upsert keeps one decision per event", func(t *testing.T) {
		decision.Matched = false
		decision.ExternalID = ""
		decision.ExternalName = ""
		decision.Confidence = 0
		decision.Source = model.SourceNone

		if err := store.SaveMatchDecision(ctx, decision); err != nil {
			t.Fatalf("SaveMatchDecision failed: %v", err)
		}

		all, err := store.ListMatchDecisions(ctx)
		if err != nil {
			t.Fatalf("ListMatchDecisions failed: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("Expected exactly 1 decision, got %d", len(all))
		}
		if all[0].Matched || all[0].Source != model.SourceNone {
			t.Errorf("Expected updated unmatched decision, got %+v", all[0])
		}
	})

	t.Run("unmatched decision drops enrichment", func(t *testing.T) {
		d := &model.MatchDecision{
			EventID:       "evt-001",
			Source:        model.SourceNone,
			LastCheckedAt: time.Now(),
			ImageURL:      "https://img.example.com/stale.jpg",
			SaleWindows:   []model.SaleWindow{{Name: "Stale Presale"}},
			Notes:         "stale",
		}
		if err := store.SaveMatchDecision(ctx, d); err != nil {
			t.Fatalf("SaveMatchDecision failed: %v", err)
		}

		got, err := store.GetMatchDecision(ctx, "evt-001")
		if err != nil {
			t.Fatalf("GetMatchDecision failed: %v", err)
		}
		if got.ImageURL != "" || got.Notes != "" || len(got.SaleWindows) != 0 {
			t.Errorf("Expected enrichment scrubbed from unmatched decision, got %+v", got)
		}
	})

	t.Run("missing decision returns not found", func(t *testing.T) {
		_, err := store.GetMatchDecision(ctx, "evt-999")
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestValidateDecision(t *testing.T) {
	now := time.Now()

	tests := []struct {
		decision *model.MatchDecision
		name     string
		wantErr  bool
	}{
		{
			name: "valid auto match",
			decision: &model.MatchDecision{
				EventID: "e1", ExternalID: "x1", Matched: true,
				Confidence: 0.9, Source: model.SourceAuto, LastCheckedAt: now,
			},
			wantErr: false,
		},
		{
			name: "valid no match",
			decision: &model.MatchDecision{
				EventID: "e1", Source: model.SourceNone, LastCheckedAt: now,
			},
			wantErr: false,
		},
		{
			name: "matched without external id",
			decision: &model.MatchDecision{
				EventID: "e1", Matched: true, Confidence: 0.9,
				Source: model.SourceAuto, LastCheckedAt: now,
			},
			wantErr: true,
		},
		{
			name: "matched with zero confidence",
			decision: &model.MatchDecision{
				EventID: "e1", ExternalID: "x1", Matched: true,
				Source: model.SourceAuto, LastCheckedAt: now,
			},
			wantErr: true,
		},
		{
			name: "matched with source none",
			decision: &model.MatchDecision{
				EventID: "e1", ExternalID: "x1", Matched: true,
				Confidence: 0.9, Source: model.SourceNone, LastCheckedAt: now,
			},
			wantErr: true,
		},
		{
			name: "unmatched with source auto",
			decision: &model.MatchDecision{
				EventID: "e1", Source: model.SourceAuto, LastCheckedAt: now,
			},
			wantErr: true,
		},
		{
			name: "confidence out of range",
			decision: &model.MatchDecision{
				EventID: "e1", ExternalID: "x1", Matched: true,
				Confidence: 1.5, Source: model.SourceAuto, LastCheckedAt: now,
			},
			wantErr: true,
		},
		{
			name: "unknown source",
			decision: &model.MatchDecision{
				EventID: "e1", Source: "guess", LastCheckedAt: now,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDecision(tt.decision)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateDecision() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
