package salephase

import (
	"testing"
	"time"

	"github.com/jv92admin/ryesvp-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRelevantWindow(t *testing.T) {
	tests := []struct {
		name   string
		window string
		want   bool
	}{
		{"plain resale denied", "Resale", false},
		{"artist presale allowed", "Artist Presale", true},
		{"deny runs before allow", "VIP Package Presale", false},
		{"platinum denied", "Official Platinum", false},
		{"public onsale denied", "Public Onsale", false},
		{"exact onsale denied", "Onsale", false},
		{"suffix onsale denied", "General Onsale", false},
		{"pre-sale spelling allowed", "Venue Pre-Sale", true},
		{"fan club allowed", "Fan Club Sale", true},
		{"early access allowed", "Early Access", true},
		{"preferred seating allowed", "Preferred Seating", true},
		{"select seats allowed", "Select Seats Offer", true},
		{"citi presale allowed", "Citi Cardmember Presale", true},
		{"amex allowed", "Amex Early Entry", true},
		{"spotify allowed", "Spotify Fans First", true},
		{"unknown name not relevant", "Group Sales", false},
		{"empty not relevant", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRelevantWindow(tt.window))
		})
	}
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestClassify(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		window model.SaleWindow
		want   Status
	}{
		{
			name:   "started with future end is active",
			window: model.SaleWindow{StartsAt: ts("2025-05-01T00:00:00Z"), EndsAt: ts("2025-07-01T00:00:00Z")},
			want:   StatusActive,
		},
		{
			name:   "started with no end is active",
			window: model.SaleWindow{StartsAt: ts("2025-05-01T00:00:00Z")},
			want:   StatusActive,
		},
		{
			name:   "future start is upcoming",
			window: model.SaleWindow{StartsAt: ts("2025-07-01T00:00:00Z")},
			want:   StatusUpcoming,
		},
		{
			name:   "past end is ended",
			window: model.SaleWindow{StartsAt: ts("2025-01-01T00:00:00Z"), EndsAt: ts("2025-02-01T00:00:00Z")},
			want:   StatusEnded,
		},
		{
			name:   "end exactly now is ended",
			window: model.SaleWindow{StartsAt: ts("2025-01-01T00:00:00Z"), EndsAt: &now},
			want:   StatusEnded,
		},
		{
			name:   "no start is unknown",
			window: model.SaleWindow{EndsAt: ts("2025-07-01T00:00:00Z")},
			want:   StatusUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.window, now))
		})
	}
}

func TestPick(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("active window wins over upcoming", func(t *testing.T) {
		windows := []model.SaleWindow{
			{Name: "Citi Presale", StartsAt: ts("2025-06-10T00:00:00Z")},
			{Name: "Artist Presale", StartsAt: ts("2025-05-20T00:00:00Z"), EndsAt: ts("2025-06-05T00:00:00Z")},
		}
		sig := Pick(windows, model.OnSaleWindow{}, now)
		require.NotNil(t, sig)
		assert.Equal(t, StatusActive, sig.Status)
		assert.Equal(t, "Artist Presale", sig.Window.Name)
	})

	t.Run("soonest upcoming wins when none active", func(t *testing.T) {
		windows := []model.SaleWindow{
			{Name: "Citi Presale", StartsAt: ts("2025-06-10T00:00:00Z")},
			{Name: "Fan Club Presale", StartsAt: ts("2025-06-03T00:00:00Z")},
		}
		sig := Pick(windows, model.OnSaleWindow{}, now)
		require.NotNil(t, sig)
		assert.Equal(t, StatusUpcoming, sig.Status)
		assert.Equal(t, "Fan Club Presale", sig.Window.Name)
	})

	t.Run("irrelevant windows are ignored", func(t *testing.T) {
		windows := []model.SaleWindow{
			{Name: "Resale", StartsAt: ts("2025-05-01T00:00:00Z")},
			{Name: "VIP Package Presale", StartsAt: ts("2025-05-01T00:00:00Z")},
		}
		sig := Pick(windows, model.OnSaleWindow{}, now)
		assert.Nil(t, sig)
	})

	t.Run("falls back to future public on-sale", func(t *testing.T) {
		public := model.OnSaleWindow{StartsAt: ts("2025-06-15T00:00:00Z")}
		sig := Pick(nil, public, now)
		require.NotNil(t, sig)
		assert.Equal(t, StatusUpcoming, sig.Status)
		assert.Equal(t, "Public On Sale", sig.Window.Name)
	})

	t.Run("past public on-sale yields no signal", func(t *testing.T) {
		public := model.OnSaleWindow{StartsAt: ts("2025-01-01T00:00:00Z")}
		assert.Nil(t, Pick(nil, public, now))
	})
}
