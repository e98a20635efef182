package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jv92admin/ryesvp-sub000/internal/common"
	"github.com/jv92admin/ryesvp-sub000/internal/model"
)

// SaveMatchDecision upserts the match decision for an event and appends an
// audit row to the decision history.
func (s *SQLiteStorage) SaveMatchDecision(ctx context.Context, decision *model.MatchDecision) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDecision(decision); err != nil {
		return err
	}

	if decision.LastCheckedAt.IsZero() {
		decision.LastCheckedAt = time.Now()
	}

	// An event that flips from matched to unmatched must not keep stale
	// enrichment on its row.
	if !decision.Matched {
		decision.ClearEnrichment()
	}

	saleWindows, err := json.Marshal(decision.SaleWindows)
	if err != nil {
		return fmt.Errorf("failed to encode sale windows: %w", err)
	}
	supportingActs, _ := json.Marshal(decision.SupportingActs)
	links, _ := json.Marshal(decision.Links)

	var priceMin, priceMax, priceCurrency any
	if decision.PriceRange != nil {
		priceMin = decision.PriceRange.Min
		priceMax = decision.PriceRange.Max
		priceCurrency = decision.PriceRange.Currency
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO match_decisions (
			event_id, external_id, external_name, matched, confidence, source,
			prefer_external_title, last_checked_at, external_url, ends_at,
			price_min, price_max, price_currency, onsale_start, onsale_end,
			sale_windows, image_url, supporting_acts, segment, genre, subgenre,
			links, notes, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(event_id) DO UPDATE SET
			external_id = excluded.external_id,
			external_name = excluded.external_name,
			matched = excluded.matched,
			confidence = excluded.confidence,
			source = excluded.source,
			prefer_external_title = excluded.prefer_external_title,
			last_checked_at = excluded.last_checked_at,
			external_url = excluded.external_url,
			ends_at = excluded.ends_at,
			price_min = excluded.price_min,
			price_max = excluded.price_max,
			price_currency = excluded.price_currency,
			onsale_start = excluded.onsale_start,
			onsale_end = excluded.onsale_end,
			sale_windows = excluded.sale_windows,
			image_url = excluded.image_url,
			supporting_acts = excluded.supporting_acts,
			segment = excluded.segment,
			genre = excluded.genre,
			subgenre = excluded.subgenre,
			links = excluded.links,
			notes = excluded.notes,
			updated_at = CURRENT_TIMESTAMP
	`,
		decision.EventID, nullString(decision.ExternalID), nullString(decision.ExternalName),
		decision.Matched, decision.Confidence, string(decision.Source),
		decision.PreferExternalTitle, decision.LastCheckedAt,
		nullString(decision.ExternalURL), nullTime(decision.EndsAt),
		priceMin, priceMax, priceCurrency,
		nullTime(decision.PublicSale.StartsAt), nullTime(decision.PublicSale.EndsAt),
		string(saleWindows), nullString(decision.ImageURL), string(supportingActs),
		nullString(decision.Classification.Segment),
		nullString(decision.Classification.Genre),
		nullString(decision.Classification.SubGenre),
		string(links), nullString(decision.Notes),
	)
	if err != nil {
		return fmt.Errorf("failed to save match decision: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO decision_history (event_id, external_id, external_name, matched, confidence, source)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		decision.EventID, nullString(decision.ExternalID), nullString(decision.ExternalName),
		decision.Matched, decision.Confidence, string(decision.Source),
	)
	if err != nil {
		return fmt.Errorf("failed to save decision history: %w", err)
	}

	return tx.Commit()
}

// GetMatchDecision returns the decision for an event, or common.ErrNotFound.
func (s *SQLiteStorage) GetMatchDecision(ctx context.Context, eventID string) (*model.MatchDecision, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(eventID, "eventID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, decisionSelect+` WHERE event_id = ?`, eventID)
	decision, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("decision for event %s: %w", eventID, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return decision, nil
}

// ListMatchDecisions returns all persisted decisions ordered by event id.
func (s *SQLiteStorage) ListMatchDecisions(ctx context.Context) ([]model.MatchDecision, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, decisionSelect+` ORDER BY event_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var decisions []model.MatchDecision
	for rows.Next() {
		decision, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, *decision)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decisions: %w", err)
	}

	return decisions, nil
}

const decisionSelect = `
	SELECT event_id, external_id, external_name, matched, confidence, source,
		prefer_external_title, last_checked_at, external_url, ends_at,
		price_min, price_max, price_currency, onsale_start, onsale_end,
		sale_windows, image_url, supporting_acts, segment, genre, subgenre,
		links, notes
	FROM match_decisions`

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDecision(row scanner) (*model.MatchDecision, error) {
	var d model.MatchDecision
	var externalID, externalName, externalURL, imageURL, notes sql.NullString
	var segment, genre, subgenre, priceCurrency sql.NullString
	var saleWindows, supportingActs, links sql.NullString
	var endsAt, onsaleStart, onsaleEnd sql.NullTime
	var priceMin, priceMax sql.NullFloat64
	var source string

	err := row.Scan(
		&d.EventID, &externalID, &externalName, &d.Matched, &d.Confidence,
		&source, &d.PreferExternalTitle, &d.LastCheckedAt, &externalURL,
		&endsAt, &priceMin, &priceMax, &priceCurrency, &onsaleStart,
		&onsaleEnd, &saleWindows, &imageURL, &supportingActs,
		&segment, &genre, &subgenre, &links, &notes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan match decision: %w", err)
	}

	d.ExternalID = externalID.String
	d.ExternalName = externalName.String
	d.Source = model.DecisionSource(source)
	d.ExternalURL = externalURL.String
	d.ImageURL = imageURL.String
	d.Notes = notes.String
	d.EndsAt = scanTimePtr(endsAt)
	d.PublicSale = model.OnSaleWindow{
		StartsAt: scanTimePtr(onsaleStart),
		EndsAt:   scanTimePtr(onsaleEnd),
	}
	d.Classification = model.TaxonomyClassification{
		Segment:  segment.String,
		Genre:    genre.String,
		SubGenre: subgenre.String,
	}

	if priceMin.Valid && priceMax.Valid {
		d.PriceRange = &model.PriceRange{
			Min:      priceMin.Float64,
			Max:      priceMax.Float64,
			Currency: priceCurrency.String,
		}
	}

	if saleWindows.Valid && saleWindows.String != "" {
		if err := json.Unmarshal([]byte(saleWindows.String), &d.SaleWindows); err != nil {
			return nil, fmt.Errorf("failed to decode sale windows for event %s: %w", d.EventID, err)
		}
	}
	if supportingActs.Valid && supportingActs.String != "" {
		if err := json.Unmarshal([]byte(supportingActs.String), &d.SupportingActs); err != nil {
			return nil, fmt.Errorf("failed to decode supporting acts for event %s: %w", d.EventID, err)
		}
	}
	if links.Valid && links.String != "" {
		if err := json.Unmarshal([]byte(links.String), &d.Links); err != nil {
			return nil, fmt.Errorf("failed to decode links for event %s: %w", d.EventID, err)
		}
	}

	return &d, nil
}
