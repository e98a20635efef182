package main

import (
	"errors"
	"fmt"

	"github.com/jv92admin/ryesvp-sub000/internal/cli"
	"github.com/jv92admin/ryesvp-sub000/internal/common"
	"github.com/jv92admin/ryesvp-sub000/internal/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match internal events against the catalog cache",
		Long: `Run the match decision engine over internal events. Each event is
matched against same-venue, same-day catalog entries; confident matches
are accepted automatically, ambiguous ones go to the arbitration oracle,
and prior decisions are reused while the catalog entry is unchanged.`,
		RunE: runReconcile,
	}

	cmd.Flags().String("venue", "", "only reconcile events at this venue slug")
	cmd.Flags().String("title", "", "only reconcile events whose title contains this substring")
	cmd.Flags().Int("limit", 0, "maximum number of events to process (0 = all)")
	cmd.Flags().Bool("dry-run", false, "compute decisions without persisting them")
	cmd.Flags().Bool("fresh", false, "ignore prior decisions and recompute every event")

	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	venue, _ := cmd.Flags().GetString("venue")
	title, _ := cmd.Flags().GetString("title")
	limit, _ := cmd.Flags().GetInt("limit")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	fresh, _ := cmd.Flags().GetBool("fresh")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	arbiter, err := initArbiter()
	if err != nil {
		return fmt.Errorf("failed to initialize oracle: %w", err)
	}
	if !arbiter.Enabled() {
		fmt.Println(cli.WarningStyle.Render(cli.OracleIcon + " No oracle credentials; ambiguous matches will be left unmatched"))
	}

	bar := cli.NewProgressBar(-1, "Reconciling events...")
	e := engine.New(store, arbiter, viper.GetFloat64("reconcile.auto_accept_threshold"))
	stats, err := e.Reconcile(ctx, engine.Options{
		VenueFilter: venue,
		TitleFilter: title,
		Limit:       limit,
		DryRun:      dryRun,
		Fresh:       fresh,
		Progress:    func() { _ = bar.Add(1) },
	})
	if err != nil {
		if errors.Is(err, common.ErrEmptyCatalogCache) {
			return common.NewUserError("catalog cache is empty; run 'ryesvp refresh' first", err)
		}
		return err
	}
	_ = bar.Finish()

	fmt.Println(cli.RenderReconcileSummary(stats, dryRun))
	return nil
}
