package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"arcana_bot/internal/classify"
	"arcana_bot/internal/model"
	"arcana_bot/internal/search"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		mode       string
		include    []string
		exclude    []string
		allLangs   bool
		maxReviews int
		primary    bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one search and print the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := model.ParseMode(strings.ToLower(mode))
			if err != nil {
				return err
			}
			for _, name := range append(append([]string{}, include...), exclude...) {
				if !a.tags.Has(name) {
					return fmt.Errorf("unknown tag %q, see: scout tags", name)
				}
			}

			req := search.Request{
				Mode:         m,
				Include:      include,
				Exclude:      exclude,
				JapaneseOnly: !allLangs,
				PrimaryOnly:  primary,
			}
			if maxReviews >= 0 {
				req.MaxReviews = model.Threshold(maxReviews)
			}
			progress := func(done, total int) {
				a.log.Debug("enrich progress", "done", done, "total", total)
			}
			res, err := a.pipeline().Discover(cmd.Context(), nil, req, progress)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printListings(out, res.Listings)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&mode, "mode", "m", string(model.ModeLatest), "latest, future or archive")
	f.StringSliceVarP(&include, "tag", "t", nil, "tag to include (repeatable or comma-separated)")
	f.StringSliceVarP(&exclude, "exclude", "x", nil, "tag to exclude (repeatable or comma-separated)")
	f.BoolVar(&allLangs, "all-languages", false, "do not require Japanese support")
	f.IntVar(&maxReviews, "max-reviews", model.ReviewLimitAny.Max(), "maximum review count, negative for no limit")
	f.BoolVar(&primary, "primary", false, "match included tags only against each listing's first 3 tags")
	f.BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func printListings(w io.Writer, listings []model.Listing) {
	if len(listings) == 0 {
		_, _ = fmt.Fprintln(w, "No matches.")
		return
	}
	for _, l := range listings {
		_, _ = fmt.Fprintf(w, "%s %-18s %s\n", classify.Emoji(l.Label), classify.Title(l.Label), l.Title)
		if l.Upcoming {
			followers := "?"
			if l.Followers != nil {
				followers = humanize.Comma(int64(*l.Followers))
			}
			_, _ = fmt.Fprintf(w, "   %s · %s followers\n", l.ReleaseDate, followers)
		} else {
			_, _ = fmt.Fprintf(w, "   %s · %s · %s reviews\n", l.ReleaseDate, l.Sentiment, humanize.Comma(int64(l.Reviews)))
		}
		_, _ = fmt.Fprintf(w, "   %s\n", l.Link)
	}
	_, _ = fmt.Fprintf(w, "\n%d found\n", len(listings))
}

func newTagsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the tag catalogue",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			for _, c := range a.tags.Categories() {
				_, _ = fmt.Fprintf(out, "%s:\n  %s\n", c.Name, strings.Join(c.Tags, ", "))
			}
		},
	}
}

func newReviewsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reviews <app id>",
		Short: "Show the review summary and label of one app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid app id %q", args[0])
			}
			sum, err := a.client.Reviews(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !sum.Found {
				_, _ = fmt.Fprintf(out, "No reviews for app %d.\n", id)
				return nil
			}
			label := classify.Attention(sum.Total, sum.Description)
			_, _ = fmt.Fprintf(out, "%s (%s reviews: %s positive, %s negative)\n%s %s\n",
				sum.Description,
				humanize.Comma(int64(sum.Total)),
				humanize.Comma(int64(sum.Positive)),
				humanize.Comma(int64(sum.Negative)),
				classify.Emoji(label), classify.Title(label))
			return nil
		},
	}
}
