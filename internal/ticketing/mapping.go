package ticketing

import (
	"fmt"
	"strings"
	"time"

	"github.com/jv92admin/ryesvp-sub000/internal/common"
	"github.com/jv92admin/ryesvp-sub000/internal/model"
)

// mapEvent converts a provider event payload into a catalog entry tagged with
// the internal venue slug.
func mapEvent(ev apiEvent, venueSlug string) (*model.ExternalCatalogEntry, error) {
	startsAt, localDate, err := resolveStart(ev)
	if err != nil {
		return nil, err
	}

	entry := &model.ExternalCatalogEntry{
		ID:         ev.ID,
		VenueSlug:  venueSlug,
		Name:       ev.Name,
		URL:        ev.URL,
		LocalDate:  localDate,
		StartsAt:   startsAt,
		EndsAt:     parseTimePtr(ev.Dates.End.DateTime),
		StatusCode: ev.Dates.Status.Code,
		ImageURL:   bestImage(ev),
		Notes:      joinNotes(ev.Info, ev.Note),
		FetchedAt:  time.Now(),
		PublicSale: model.OnSaleWindow{
			StartsAt: parseTimePtr(ev.Sales.Public.StartDateTime),
			EndsAt:   parseTimePtr(ev.Sales.Public.EndDateTime),
		},
	}

	for _, p := range ev.Sales.Presales {
		entry.SaleWindows = append(entry.SaleWindows, model.SaleWindow{
			Name:        p.Name,
			StartsAt:    parseTimePtr(p.StartDateTime),
			EndsAt:      parseTimePtr(p.EndDateTime),
			Description: p.Description,
			URL:         p.URL,
		})
	}

	if len(ev.PriceRanges) > 0 {
		pr := ev.PriceRanges[0]
		entry.PriceRange = &model.PriceRange{
			Min:      pr.Min,
			Max:      pr.Max,
			Currency: pr.Currency,
		}
	}

	for _, c := range ev.Classifications {
		if !c.Primary && entry.Classification != (model.TaxonomyClassification{}) {
			continue
		}
		entry.Classification = model.TaxonomyClassification{
			Segment:  c.Segment.Name,
			Genre:    c.Genre.Name,
			SubGenre: c.SubGenre.Name,
		}
		if c.Primary {
			break
		}
	}

	attractions := ev.Embedded.Attractions
	if len(attractions) > 0 {
		primary := attractions[0]
		entry.PerformerID = primary.ID
		entry.PerformerName = primary.Name
		entry.Links = mapLinks(primary)
		for _, a := range attractions[1:] {
			entry.SupportingActs = append(entry.SupportingActs, a.Name)
		}
	}

	return entry, nil
}

// resolveStart derives the entry's start timestamp and calendar-day bucket.
// The provider's dateTime is preferred; localDate alone is accepted as a
// midnight start. An entry with neither cannot be bucketed and is skipped.
func resolveStart(ev apiEvent) (time.Time, string, error) {
	localDate := ev.Dates.Start.LocalDate

	if dt := ev.Dates.Start.DateTime; dt != "" {
		startsAt, err := time.Parse(time.RFC3339, dt)
		if err != nil {
			return time.Time{}, "", fmt.Errorf("%w: unparsable dateTime %q", common.ErrMissingStartDate, dt)
		}
		if localDate == "" {
			localDate = startsAt.Format("2006-01-02")
		}
		return startsAt, localDate, nil
	}

	if localDate != "" {
		startsAt, err := time.Parse("2006-01-02", localDate)
		if err != nil {
			return time.Time{}, "", fmt.Errorf("%w: unparsable localDate %q", common.ErrMissingStartDate, localDate)
		}
		return startsAt, localDate, nil
	}

	return time.Time{}, "", common.ErrMissingStartDate
}

// bestImage selects the highest-resolution image by pixel area.
func bestImage(ev apiEvent) string {
	best := ""
	bestArea := 0
	for _, img := range ev.Images {
		area := img.Width * img.Height
		if area > bestArea {
			best = img.URL
			bestArea = area
		}
	}
	return best
}

func mapLinks(a apiAttraction) model.ExternalLinks {
	links := model.ExternalLinks{}
	if len(a.ExternalLinks.Homepage) > 0 {
		links.Homepage = a.ExternalLinks.Homepage[0].URL
	}
	if len(a.ExternalLinks.YouTube) > 0 {
		links.YouTube = a.ExternalLinks.YouTube[0].URL
	}
	if len(a.ExternalLinks.Twitter) > 0 {
		links.Twitter = a.ExternalLinks.Twitter[0].URL
	}
	if len(a.ExternalLinks.Facebook) > 0 {
		links.Facebook = a.ExternalLinks.Facebook[0].URL
	}
	if len(a.ExternalLinks.Instagram) > 0 {
		links.Instagram = a.ExternalLinks.Instagram[0].URL
	}
	return links
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func joinNotes(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(p))
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}
