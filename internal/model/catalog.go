package model

import "time"

// SaleWindow is a named, time-bounded ticket-sale phase attached to an
// external catalog entry. Start and end are optional: some providers publish
// presales with no schedule attached.
type SaleWindow struct {
	StartsAt    *time.Time `json:"startsAt,omitempty"`
	EndsAt      *time.Time `json:"endsAt,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url,omitempty"`
}

// OnSaleWindow is the public on-sale period for an external catalog entry.
type OnSaleWindow struct {
	StartsAt *time.Time `json:"startsAt,omitempty"`
	EndsAt   *time.Time `json:"endsAt,omitempty"`
}

// PriceRange is the advertised ticket price range.
type PriceRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

// TaxonomyClassification is the provider's genre taxonomy for an entry.
type TaxonomyClassification struct {
	Segment  string `json:"segment,omitempty"`
	Genre    string `json:"genre,omitempty"`
	SubGenre string `json:"subGenre,omitempty"`
}

// ExternalLinks holds optional links published by the provider for the
// primary performer.
type ExternalLinks struct {
	Homepage  string `json:"homepage,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

// ExternalCatalogEntry is one event record fetched from the third-party
// ticketing provider. The cache table holds one row per entry, keyed by the
// provider's own event id, and is replaced wholesale on every refresh.
type ExternalCatalogEntry struct {
	StartsAt       time.Time
	FetchedAt      time.Time
	EndsAt         *time.Time
	PriceRange     *PriceRange
	ID             string
	VenueSlug      string
	Name           string
	URL            string
	LocalDate      string // YYYY-MM-DD, timezone-independent day bucket
	StatusCode     string
	ImageURL       string
	PerformerID    string
	PerformerName  string
	Notes          string
	PublicSale     OnSaleWindow
	SaleWindows    []SaleWindow
	SupportingActs []string
	Classification TaxonomyClassification
	Links          ExternalLinks
}
