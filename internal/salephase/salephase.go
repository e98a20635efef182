// Package salephase classifies named ticket-sale windows: whether a window is
// a presale worth surfacing, and where it sits relative to the current time.
package salephase

import (
	"sort"
	"strings"
	"time"

	"github.com/jv92admin/ryesvp-sub000/internal/model"
)

// Status is the temporal state of a sale window relative to "now".
type Status string

// Window statuses.
const (
	StatusActive   Status = "active"
	StatusUpcoming Status = "upcoming"
	StatusEnded    Status = "ended"
	StatusUnknown  Status = "unknown"
)

// Deny rules run strictly before allow rules: the allow token "presale" is a
// substring of the deny token "resale", so order matters.
var (
	denyExact    = []string{"resale", "onsale"}
	denySuffix   = []string{" onsale"}
	denyContains = []string{"vip package", "platinum", "public onsale"}

	allowContains = []string{
		"presale",
		"pre-sale",
		"fan club",
		"early access",
		"preferred tickets",
		"preferred seating",
		"select seats",
		// Partner-branded presales.
		"citi",
		"amex",
		"american express",
		"mastercard",
		"visa",
		"chase",
		"spotify",
		"pandora",
	}
)

// IsRelevantWindow reports whether a named sale window is a presale phase
// worth attaching to an event. Matching is case-insensitive.
func IsRelevantWindow(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return false
	}

	for _, d := range denyExact {
		if n == d {
			return false
		}
	}
	for _, d := range denySuffix {
		if strings.HasSuffix(n, d) {
			return false
		}
	}
	for _, d := range denyContains {
		if strings.Contains(n, d) {
			return false
		}
	}

	for _, a := range allowContains {
		if strings.Contains(n, a) {
			return true
		}
	}

	return false
}

// Classify returns the temporal status of a sale window at the given instant.
func Classify(w model.SaleWindow, now time.Time) Status {
	if w.StartsAt == nil {
		return StatusUnknown
	}
	if w.StartsAt.After(now) {
		return StatusUpcoming
	}
	// Started. Still active unless an end time has passed.
	if w.EndsAt != nil && !w.EndsAt.After(now) {
		return StatusEnded
	}
	return StatusActive
}

// Signal is the single sale-phase indicator selected for an event.
type Signal struct {
	Window model.SaleWindow
	Status Status
}

// Pick selects the sale-phase signal for an event from its relevant sale
// windows and public on-sale window. Active windows take priority; otherwise
// the soonest upcoming window wins; otherwise a future public on-sale start is
// reported; otherwise there is no signal.
func Pick(windows []model.SaleWindow, publicSale model.OnSaleWindow, now time.Time) *Signal {
	var relevant []model.SaleWindow
	for _, w := range windows {
		if IsRelevantWindow(w.Name) {
			relevant = append(relevant, w)
		}
	}

	for _, w := range relevant {
		if Classify(w, now) == StatusActive {
			return &Signal{Window: w, Status: StatusActive}
		}
	}

	var upcoming []model.SaleWindow
	for _, w := range relevant {
		if Classify(w, now) == StatusUpcoming {
			upcoming = append(upcoming, w)
		}
	}
	if len(upcoming) > 0 {
		sort.SliceStable(upcoming, func(i, j int) bool {
			return upcoming[i].StartsAt.Before(*upcoming[j].StartsAt)
		})
		return &Signal{Window: upcoming[0], Status: StatusUpcoming}
	}

	if publicSale.StartsAt != nil && publicSale.StartsAt.After(now) {
		return &Signal{
			Window: model.SaleWindow{
				Name:     "Public On Sale",
				StartsAt: publicSale.StartsAt,
				EndsAt:   publicSale.EndsAt,
			},
			Status: StatusUpcoming,
		}
	}

	return nil
}
