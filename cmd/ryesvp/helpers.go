package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jv92admin/ryesvp-sub000/internal/config"
	"github.com/jv92admin/ryesvp-sub000/internal/oracle"
	"github.com/jv92admin/ryesvp-sub000/internal/service"
	"github.com/jv92admin/ryesvp-sub000/internal/storage"
	"github.com/jv92admin/ryesvp-sub000/internal/ticketing"
	"github.com/spf13/viper"
)

// initStorage opens the database and ensures the schema is current.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := config.ExpandPath(viper.GetString("database.path"))

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initCatalogClient builds the ticketing provider client from config. A
// missing API key yields a disabled client. The client throttles every
// request, pagination included, per the configured delay.
func initCatalogClient() *ticketing.Client {
	delay := viper.GetInt("ticketing.request_delay_ms")
	return ticketing.NewClient(ticketing.Config{
		APIKey:   viper.GetString("ticketing.api_key"),
		BaseURL:  viper.GetString("ticketing.base_url"),
		Throttle: ticketing.NewThrottle(time.Duration(delay) * time.Millisecond),
	})
}

// initArbiter builds the arbitration oracle from config. Missing credentials
// yield the noop arbiter.
func initArbiter() (oracle.Arbiter, error) {
	return oracle.NewArbiter(oracle.Config{
		Provider: viper.GetString("oracle.provider"),
		APIKey:   viper.GetString("oracle.api_key"),
		Model:    viper.GetString("oracle.model"),
	})
}

// configuredVenues maps internal venue slugs to provider venue ids.
func configuredVenues() map[string]string {
	return viper.GetStringMapString("ticketing.venues")
}
