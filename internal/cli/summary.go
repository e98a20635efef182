package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/jv92admin/ryesvp-sub000/internal/service"
	"github.com/schollz/progressbar/v3"
)

// RenderReconcileSummary renders the end-of-run reconciliation report.
func RenderReconcileSummary(stats service.ReconcileStats, dryRun bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Processed:     %d\n", stats.Processed)
	fmt.Fprintf(&b, "Matched:       %s\n", SuccessStyle.Render(fmt.Sprintf("%d", stats.Matched)))
	fmt.Fprintf(&b, "  auto:        %d\n", stats.AutoAccepted)
	fmt.Fprintf(&b, "  arbitrated:  %d\n", stats.Arbitrated)
	fmt.Fprintf(&b, "  reused:      %d\n", stats.Reused)
	fmt.Fprintf(&b, "Unmatched:     %d\n", stats.Unmatched)
	if stats.Errors > 0 {
		fmt.Fprintf(&b, "Errors:        %s\n", ErrorStyle.Render(fmt.Sprintf("%d", stats.Errors)))
	}
	fmt.Fprintf(&b, "Duration:      %s", stats.Duration.Round(time.Millisecond))

	title := "Reconciliation Summary"
	if dryRun {
		title += " (dry run)"
	}
	return RenderBox(title, b.String())
}

// RenderRefreshSummary renders the end-of-run catalog refresh report.
func RenderRefreshSummary(stats service.RefreshStats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Venues:        %d\n", stats.Venues)
	if stats.VenuesFailed > 0 {
		fmt.Fprintf(&b, "Failed venues: %s\n", WarningStyle.Render(fmt.Sprintf("%d", stats.VenuesFailed)))
	}
	fmt.Fprintf(&b, "Cached:        %s\n", SuccessStyle.Render(fmt.Sprintf("%d", stats.Entries)))
	if stats.Skipped > 0 {
		fmt.Fprintf(&b, "Skipped:       %d\n", stats.Skipped)
	}
	fmt.Fprintf(&b, "Duration:      %s", stats.Duration.Round(time.Millisecond))

	return RenderBox(RefreshIcon+" Catalog Refresh Summary", b.String())
}

// NewProgressBar creates a progress bar for batch loops.
func NewProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}
