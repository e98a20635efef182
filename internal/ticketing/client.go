// Package ticketing implements the client for the external ticketing
// provider's event catalog API.
package ticketing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jv92admin/ryesvp-sub000/internal/common"
	"github.com/jv92admin/ryesvp-sub000/internal/model"
)

const (
	defaultBaseURL = "https://app.ticketmaster.com/discovery/v2"
	// pageSize is the provider's maximum page size; fewer round trips per
	// venue keeps us under the request ceiling.
	pageSize = 200
)

// Config holds configuration for the catalog client.
type Config struct {
	Throttle *Throttle
	APIKey   string
	BaseURL  string
}

// Client fetches events from the external catalog API. A client without an
// API key is disabled: every fetch fails fast with ErrProviderDisabled and
// callers are expected to no-op.
//
// The client owns the request throttle so that every request, including
// pagination within a single venue, honors the provider's per-second ceiling.
type Client struct {
	httpClient *http.Client
	throttle   *Throttle
	apiKey     string
	baseURL    string
}

// NewClient creates a new catalog API client. A nil throttle disables
// request spacing.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	throttle := cfg.Throttle
	if throttle == nil {
		throttle = NewThrottle(0)
	}

	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		throttle: throttle,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Enabled reports whether the client has credentials.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// FetchVenueEvents fetches all catalog events for one provider venue id
// within the forward-looking window, paginating as needed. Entries that
// cannot be mapped (for example missing a resolvable start date) are returned
// as per-entry errors alongside the usable entries.
func (c *Client) FetchVenueEvents(ctx context.Context, venueSlug, venueID string, window time.Duration) ([]model.ExternalCatalogEntry, []error, error) {
	if !c.Enabled() {
		return nil, nil, common.ErrProviderDisabled
	}

	now := time.Now().UTC()
	windowEnd := now.Add(window)

	var entries []model.ExternalCatalogEntry
	var entryErrs []error

	page := 0
	for {
		if err := c.throttle.Wait(ctx); err != nil {
			return nil, entryErrs, err
		}

		resp, err := c.fetchPage(ctx, venueID, now, windowEnd, page)
		if err != nil {
			return nil, entryErrs, err
		}

		for _, ev := range resp.Embedded.Events {
			entry, err := mapEvent(ev, venueSlug)
			if err != nil {
				entryErrs = append(entryErrs, fmt.Errorf("event %s (%s): %w", ev.ID, ev.Name, err))
				continue
			}
			entries = append(entries, *entry)
		}

		page++
		if page >= resp.Page.TotalPages {
			break
		}
	}

	return entries, entryErrs, nil
}

func (c *Client) fetchPage(ctx context.Context, venueID string, from, to time.Time, page int) (*eventsResponse, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("venueId", venueID)
	params.Set("startDateTime", from.Format("2006-01-02T15:04:05Z"))
	params.Set("endDateTime", to.Format("2006-01-02T15:04:05Z"))
	params.Set("size", strconv.Itoa(pageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("sort", "date,asc")

	reqURL := c.baseURL + "/events?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: venue %s page %d", common.ErrProviderRateLimit, venueID, page)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog API error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed eventsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &parsed, nil
}

// eventsResponse mirrors the provider's paginated events payload.
type eventsResponse struct {
	Embedded struct {
		Events []apiEvent `json:"events"`
	} `json:"_embedded"`
	Page struct {
		Size          int `json:"size"`
		TotalElements int `json:"totalElements"`
		TotalPages    int `json:"totalPages"`
		Number        int `json:"number"`
	} `json:"page"`
}

type apiEvent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Info   string `json:"info"`
	Note   string `json:"pleaseNote"`
	Images []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"images"`
	Dates struct {
		Start struct {
			LocalDate string `json:"localDate"`
			DateTime  string `json:"dateTime"`
		} `json:"start"`
		End struct {
			DateTime string `json:"dateTime"`
		} `json:"end"`
		Status struct {
			Code string `json:"code"`
		} `json:"status"`
	} `json:"dates"`
	Sales struct {
		Public struct {
			StartDateTime string `json:"startDateTime"`
			EndDateTime   string `json:"endDateTime"`
		} `json:"public"`
		Presales []struct {
			Name          string `json:"name"`
			Description   string `json:"description"`
			URL           string `json:"url"`
			StartDateTime string `json:"startDateTime"`
			EndDateTime   string `json:"endDateTime"`
		} `json:"presales"`
	} `json:"sales"`
	PriceRanges []struct {
		Type     string  `json:"type"`
		Currency string  `json:"currency"`
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
	} `json:"priceRanges"`
	Classifications []struct {
		Primary bool `json:"primary"`
		Segment struct {
			Name string `json:"name"`
		} `json:"segment"`
		Genre struct {
			Name string `json:"name"`
		} `json:"genre"`
		SubGenre struct {
			Name string `json:"name"`
		} `json:"subGenre"`
	} `json:"classifications"`
	Embedded struct {
		Attractions []apiAttraction `json:"attractions"`
	} `json:"_embedded"`
}

// apiLink is a single external link entry.
type apiLink struct {
	URL string `json:"url"`
}

type apiAttraction struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ExternalLinks struct {
		Homepage  []apiLink `json:"homepage"`
		YouTube   []apiLink `json:"youtube"`
		Twitter   []apiLink `json:"twitter"`
		Facebook  []apiLink `json:"facebook"`
		Instagram []apiLink `json:"instagram"`
	} `json:"externalLinks"`
}
