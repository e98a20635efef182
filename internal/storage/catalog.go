package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jv92admin/ryesvp-sub000/internal/common"
	"github.com/jv92admin/ryesvp-sub000/internal/model"
)

// ReplaceCatalogEntries replaces the entire catalog cache with the given set
// in a single transaction. A per-entry failure (an invalid entry, a duplicate
// id from the provider) is logged and skipped without aborting the refresh.
// Returns the number of rows inserted.
func (s *SQLiteStorage) ReplaceCatalogEntries(ctx context.Context, entries []model.ExternalCatalogEntry) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Wholesale replace: delisted provider events must not linger.
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_entries`); err != nil {
		return 0, fmt.Errorf("failed to clear catalog cache: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog_entries (
			id, venue_slug, name, url, local_date, starts_at, ends_at,
			status_code, price_min, price_max, price_currency,
			onsale_start, onsale_end, sale_windows, image_url,
			performer_id, performer_name, supporting_acts,
			segment, genre, subgenre, links, notes, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if err := validateEntry(&entry); err != nil {
			slog.Warn("Skipping invalid catalog entry", "entry_id", entry.ID, "error", err)
			continue
		}
		if _, dup := seen[entry.ID]; dup {
			slog.Warn("Skipping catalog entry", "entry_id", entry.ID, "error", common.ErrDuplicateEntry)
			continue
		}
		seen[entry.ID] = struct{}{}

		saleWindows, err := json.Marshal(entry.SaleWindows)
		if err != nil {
			slog.Warn("Skipping catalog entry with unencodable sale windows", "entry_id", entry.ID, "error", err)
			continue
		}
		supportingActs, _ := json.Marshal(entry.SupportingActs)
		links, _ := json.Marshal(entry.Links)

		var priceMin, priceMax any
		var priceCurrency any
		if entry.PriceRange != nil {
			priceMin = entry.PriceRange.Min
			priceMax = entry.PriceRange.Max
			priceCurrency = entry.PriceRange.Currency
		}

		fetchedAt := entry.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = time.Now()
		}

		_, err = stmt.ExecContext(ctx,
			entry.ID, entry.VenueSlug, entry.Name, nullString(entry.URL),
			entry.LocalDate, entry.StartsAt, nullTime(entry.EndsAt),
			nullString(entry.StatusCode), priceMin, priceMax, priceCurrency,
			nullTime(entry.PublicSale.StartsAt), nullTime(entry.PublicSale.EndsAt),
			string(saleWindows), nullString(entry.ImageURL),
			nullString(entry.PerformerID), nullString(entry.PerformerName),
			string(supportingActs),
			nullString(entry.Classification.Segment),
			nullString(entry.Classification.Genre),
			nullString(entry.Classification.SubGenre),
			string(links), nullString(entry.Notes), fetchedAt,
		)
		if err != nil {
			slog.Warn("Skipping catalog entry that failed to insert",
				"entry_id", entry.ID,
				"venue_slug", entry.VenueSlug,
				"error", err)
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit catalog replace: %w", err)
	}

	return inserted, nil
}

// GetCandidates returns the cached catalog entries for one venue and calendar
// day, ordered by name so ranking ties resolve deterministically.
func (s *SQLiteStorage) GetCandidates(ctx context.Context, venueSlug, localDate string) ([]model.ExternalCatalogEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(venueSlug, "venueSlug"); err != nil {
		return nil, err
	}
	if err := validateString(localDate, "localDate"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, venue_slug, name, url, local_date, starts_at, ends_at,
			status_code, price_min, price_max, price_currency,
			onsale_start, onsale_end, sale_windows, image_url,
			performer_id, performer_name, supporting_acts,
			segment, genre, subgenre, links, notes, fetched_at
		FROM catalog_entries
		WHERE venue_slug = ? AND local_date = ?
		ORDER BY name
	`, venueSlug, localDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.ExternalCatalogEntry
	for rows.Next() {
		entry, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}

	return entries, nil
}

// CountCatalogEntries returns the number of cached catalog entries.
func (s *SQLiteStorage) CountCatalogEntries(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count catalog entries: %w", err)
	}
	return count, nil
}

func scanCatalogEntry(rows *sql.Rows) (*model.ExternalCatalogEntry, error) {
	var entry model.ExternalCatalogEntry
	var url, statusCode, imageURL, performerID, performerName sql.NullString
	var segment, genre, subgenre, notes sql.NullString
	var saleWindows, supportingActs, links sql.NullString
	var endsAt, onsaleStart, onsaleEnd sql.NullTime
	var priceMin, priceMax sql.NullFloat64
	var priceCurrency sql.NullString

	err := rows.Scan(
		&entry.ID, &entry.VenueSlug, &entry.Name, &url, &entry.LocalDate,
		&entry.StartsAt, &endsAt, &statusCode, &priceMin, &priceMax,
		&priceCurrency, &onsaleStart, &onsaleEnd, &saleWindows, &imageURL,
		&performerID, &performerName, &supportingActs,
		&segment, &genre, &subgenre, &links, &notes, &entry.FetchedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
	}

	entry.URL = url.String
	entry.StatusCode = statusCode.String
	entry.ImageURL = imageURL.String
	entry.PerformerID = performerID.String
	entry.PerformerName = performerName.String
	entry.Notes = notes.String
	entry.EndsAt = scanTimePtr(endsAt)
	entry.PublicSale = model.OnSaleWindow{
		StartsAt: scanTimePtr(onsaleStart),
		EndsAt:   scanTimePtr(onsaleEnd),
	}
	entry.Classification = model.TaxonomyClassification{
		Segment:  segment.String,
		Genre:    genre.String,
		SubGenre: subgenre.String,
	}

	if priceMin.Valid && priceMax.Valid {
		entry.PriceRange = &model.PriceRange{
			Min:      priceMin.Float64,
			Max:      priceMax.Float64,
			Currency: priceCurrency.String,
		}
	}

	if saleWindows.Valid && saleWindows.String != "" {
		if err := json.Unmarshal([]byte(saleWindows.String), &entry.SaleWindows); err != nil {
			return nil, fmt.Errorf("failed to decode sale windows for entry %s: %w", entry.ID, err)
		}
	}
	if supportingActs.Valid && supportingActs.String != "" {
		if err := json.Unmarshal([]byte(supportingActs.String), &entry.SupportingActs); err != nil {
			return nil, fmt.Errorf("failed to decode supporting acts for entry %s: %w", entry.ID, err)
		}
	}
	if links.Valid && links.String != "" {
		if err := json.Unmarshal([]byte(links.String), &entry.Links); err != nil {
			return nil, fmt.Errorf("failed to decode links for entry %s: %w", entry.ID, err)
		}
	}

	return &entry, nil
}
