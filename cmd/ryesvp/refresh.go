package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jv92admin/ryesvp-sub000/internal/cli"
	"github.com/jv92admin/ryesvp-sub000/internal/common"
	"github.com/jv92admin/ryesvp-sub000/internal/refresh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func refreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the external catalog cache",
		Long: `Fetch upcoming events for every configured venue from the ticketing
provider and replace the local catalog cache wholesale. Delisted events
disappear from the cache; reconciliation only ever sees current listings.`,
		RunE: runRefresh,
	}

	cmd.Flags().Int("window-months", 0, "how many months ahead to fetch (default from config)")
	_ = viper.BindPFlag("ticketing.window_months", cmd.Flags().Lookup("window-months"))

	return cmd
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	client := initCatalogClient()

	months := viper.GetInt("ticketing.window_months")
	if months <= 0 {
		months = 6
	}
	window := time.Duration(months) * 30 * 24 * time.Hour

	r := refresh.New(client, store, configuredVenues(), window)
	stats, err := r.Run(ctx)
	if err != nil {
		if errors.Is(err, common.ErrProviderDisabled) {
			fmt.Println(cli.FormatWarning("Ticketing API key not configured; nothing to refresh"))
			return nil
		}
		return err
	}

	fmt.Println(cli.RenderRefreshSummary(stats))
	return nil
}
