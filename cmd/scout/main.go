// Command scout runs store searches from the terminal with the same pipeline
// the bot uses.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"arcana_bot/internal/config"
	"arcana_bot/internal/discovery"
	"arcana_bot/internal/enrich"
	"arcana_bot/internal/search"
	"arcana_bot/internal/session"
	"arcana_bot/internal/steam"
	"arcana_bot/internal/tags"
)

type app struct {
	cfg    *config.Client
	log    *slog.Logger
	tags   *tags.Index
	client *steam.Client
}

func main() {
	var (
		a       app
		verbose bool
	)

	root := &cobra.Command{
		Use:          "scout",
		Short:        "Search the store for indie games from the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadClient()
			if err != nil {
				return err
			}
			a.cfg = cfg

			a.log = slog.New(slog.NewTextHandler(io.Discard, nil))
			if verbose {
				a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
			}

			if cfg.TagsFile == "" {
				a.tags, err = tags.Default()
			} else {
				a.tags, err = tags.LoadFile(cfg.TagsFile)
			}
			if err != nil {
				return fmt.Errorf("load tags: %w", err)
			}

			a.client = steam.New(steam.NewHTTPClient(cfg.RequestTimeout), steam.Options{
				StoreBaseURL:     cfg.StoreBaseURL,
				FollowersBaseURL: cfg.FollowersBaseURL,
				Country:          cfg.Country,
				Language:         cfg.Language,
			})
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress to stderr")

	root.AddCommand(newSearchCmd(&a), newTagsCmd(&a), newReviewsCmd(&a))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// pipeline builds the search pipeline. The terminal has a single user, so
// searches are not rate limited.
func (a *app) pipeline() *discovery.Service {
	orchestrator := search.New(a.client, a.tags, session.Gate{}, a.log)
	return discovery.New(orchestrator, enrich.New(a.client, a.client, a.cfg.EnrichWorkers, a.log))
}
