package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/venue-ingest/internal/pipeline"
	"github.com/JakeFAU/venue-ingest/internal/venue"
)

func newProcessCmd() *cobra.Command {
	var (
		scrapeOnly bool
		extra      map[string]string
	)
	cmd := &cobra.Command{
		Use:   "process <record_id> <venue_url> [listing_url...]",
		Short: "Scrapes one venue and writes the merged document to its record",
		Long: `Discovers and fetches the venue site, cleans and categorizes it, merges any
listing pages and writes the result to the record. Positional listing URLs map
onto the configured listing sources in order (CB, WI, FWV by default); pass an
empty string to skip one. With --scrape-only the raw and listing dumps are saved
to the artifact store instead.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			req, err := buildRequest(appInstance, args, extra, scrapeOnly)
			if err != nil {
				return err
			}
			run, err := appInstance.Process(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("process %s: %w", req.RecordID, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), run.StatusLine)
			return exitFor(pipeline.Kind(run.Kind))
		},
	}
	cmd.Flags().BoolVar(&scrapeOnly, "scrape-only", false, "save raw dumps instead of writing the record")
	cmd.Flags().StringToStringVar(&extra, "listing", nil, "listing URL by short code, e.g. --listing CB=https://...")
	return cmd
}

// buildRequest maps positional listing URLs onto the configured listing order
// and then applies --listing overrides.
func buildRequest(appInstance App, args []string, extra map[string]string, scrapeOnly bool) (venue.Request, error) {
	sources := appInstance.Config().ListingSources()
	if len(sources) == 0 {
		sources = pipeline.DefaultListings
	}
	positional := args[2:]
	if len(positional) > len(sources) {
		return venue.Request{}, fmt.Errorf("got %d listing urls, only %d listing sources configured", len(positional), len(sources))
	}

	urls := make(map[string]string, len(sources))
	for i, u := range positional {
		urls[sources[i].Short] = strings.TrimSpace(u)
	}
	for short, u := range extra {
		urls[strings.ToUpper(short)] = strings.TrimSpace(u)
	}

	req := venue.Request{RecordID: args[0], VenueURL: args[1], ScrapeOnly: scrapeOnly}
	for _, src := range sources {
		if u := urls[src.Short]; u != "" {
			req.Listings = append(req.Listings, venue.Listing{Short: src.Short, Label: src.Label, URL: u})
			delete(urls, src.Short)
		}
	}
	for short := range urls {
		if urls[short] != "" {
			return venue.Request{}, fmt.Errorf("unknown listing source %q", short)
		}
	}
	return req, nil
}
