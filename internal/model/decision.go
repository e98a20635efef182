package model

import "time"

// DecisionSource records how a match decision was reached.
type DecisionSource string

// Decision sources.
const (
	// SourceAuto means the top candidate cleared the auto-accept threshold.
	SourceAuto DecisionSource = "auto"
	// SourceArbitrated means the arbitration oracle approved the match.
	SourceArbitrated DecisionSource = "arbitrated"
	// SourceNone means no match was made.
	SourceNone DecisionSource = "none"
)

// MatchDecision is the persisted reconciliation outcome for one internal
// event. Exactly one decision exists per event (upsert semantics); it is
// created on the first reconciliation attempt and updated on every pass.
//
// ExternalName duplicates the provider's display name at decision time so a
// later rename invalidates the decision instead of silently carrying stale
// enrichment.
type MatchDecision struct {
	LastCheckedAt       time.Time
	PriceRange          *PriceRange
	EndsAt              *time.Time
	EventID             string
	ExternalID          string
	ExternalName        string
	Source              DecisionSource
	Confidence          float64
	Matched             bool
	PreferExternalTitle bool

	// Enrichment copied from the matched catalog entry.
	ExternalURL    string
	ImageURL       string
	Notes          string
	PublicSale     OnSaleWindow
	SaleWindows    []SaleWindow
	SupportingActs []string
	Classification TaxonomyClassification
	Links          ExternalLinks
}

// CopyEnrichment denormalizes display metadata from a catalog entry onto the
// decision.
func (d *MatchDecision) CopyEnrichment(entry *ExternalCatalogEntry) {
	d.ExternalURL = entry.URL
	d.EndsAt = entry.EndsAt
	d.PriceRange = entry.PriceRange
	d.PublicSale = entry.PublicSale
	d.SaleWindows = entry.SaleWindows
	d.ImageURL = entry.ImageURL
	d.SupportingActs = entry.SupportingActs
	d.Classification = entry.Classification
	d.Links = entry.Links
	d.Notes = entry.Notes
}

// ClearEnrichment removes denormalized metadata when a decision flips to
// unmatched.
func (d *MatchDecision) ClearEnrichment() {
	d.ExternalURL = ""
	d.EndsAt = nil
	d.PriceRange = nil
	d.PublicSale = OnSaleWindow{}
	d.SaleWindows = nil
	d.ImageURL = ""
	d.SupportingActs = nil
	d.Classification = TaxonomyClassification{}
	d.Links = ExternalLinks{}
	d.Notes = ""
}
