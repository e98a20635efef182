package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jv92admin/ryesvp-sub000/internal/cli"
	"github.com/jv92admin/ryesvp-sub000/internal/model"
	"github.com/jv92admin/ryesvp-sub000/internal/salephase"
	"github.com/spf13/cobra"
)

func decisionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Show persisted match decisions",
		Long: `List every persisted match decision together with the current
sale-phase signal derived from the matched entry's sale windows.`,
		RunE: runDecisions,
	}

	cmd.Flags().Bool("unmatched", false, "only show unmatched events")

	return cmd
}

func runDecisions(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	unmatchedOnly, _ := cmd.Flags().GetBool("unmatched")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	decisions, err := store.ListMatchDecisions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list decisions: %w", err)
	}
	if len(decisions) == 0 {
		fmt.Println(cli.FormatWarning("No match decisions recorded; run reconcile first"))
		return nil
	}

	fmt.Println(cli.FormatTitle("Match Decisions"))

	now := time.Now()
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Event", "Matched", "Source", "Conf", "External Listing", "Sale Phase", "Checked"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "External Listing", WidthMax: 48},
		{Name: "Conf", Align: text.AlignRight},
	})

	shown := 0
	for i := range decisions {
		d := &decisions[i]
		if unmatchedOnly && d.Matched {
			continue
		}
		shown++

		matched := cli.ErrorStyle.Render("no")
		confidence := "-"
		if d.Matched {
			matched = cli.SuccessStyle.Render("yes")
			confidence = fmt.Sprintf("%.2f", d.Confidence)
		}

		t.AppendRow(table.Row{
			d.EventID,
			matched,
			string(d.Source),
			confidence,
			d.ExternalName,
			salePhase(d, now),
			d.LastCheckedAt.Format("2006-01-02 15:04"),
		})
	}

	if shown == 0 {
		fmt.Println(cli.FormatSuccess("Every event is matched"))
		return nil
	}

	t.Render()
	return nil
}

// salePhase summarizes the decision's current sale-phase signal.
func salePhase(d *model.MatchDecision, now time.Time) string {
	if !d.Matched {
		return "-"
	}

	signal := salephase.Pick(d.SaleWindows, d.PublicSale, now)
	if signal == nil {
		return "-"
	}

	label := fmt.Sprintf("%s (%s)", signal.Window.Name, signal.Status)
	switch signal.Status {
	case salephase.StatusActive:
		return cli.SuccessStyle.Render(label)
	case salephase.StatusUpcoming:
		return cli.InfoStyle.Render(label)
	default:
		return cli.SubtleStyle.Render(label)
	}
}
