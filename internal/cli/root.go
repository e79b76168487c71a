// Package cli implements the unictl command tree.
package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"uni_directory/internal/adapters/observability"
	"uni_directory/internal/app"
	"uni_directory/internal/bootstrap"
	"uni_directory/internal/compare"
	"uni_directory/internal/domain"
	"uni_directory/internal/listing"
	"uni_directory/internal/shared"
)

// Queries is the read side the commands need.
type Queries interface {
	ListUniversities(ctx context.Context, query string, f listing.Filters) ([]domain.University, error)
	ListFaculties(ctx context.Context, query string, f listing.Filters) ([]domain.FacultyView, error)
	Item(ctx context.Context, kind compare.Kind, id int64) (compare.Item, error)
}

var (
	queries    Queries
	closeStore = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "unictl",
	Short: "Browse and compare Egyptian universities and faculties",
	Long: `unictl reads the university directory from the configured record store
(STORE_BACKEND) and prints listings, distances and comparison tables.`,
	SilenceUsage: true,
}

// SetQueries replaces the query service; tests use it to avoid opening a store.
func SetQueries(q Queries) { queries = q }

// Execute runs the root command.
func Execute() error {
	defer func() { closeStore() }()
	return rootCmd.Execute()
}

// ensureQueries opens the configured store on first use.
func ensureQueries(ctx context.Context) (Queries, error) {
	if queries != nil {
		return queries, nil
	}
	cfg, err := shared.Load()
	if err != nil {
		return nil, err
	}
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	store, closeFn, err := bootstrap.Store(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closeStore = closeFn
	queries = app.NewQueryService(store, nil, cfg.CacheTTL())
	return queries, nil
}
