package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/venue-ingest/internal/config"
)

func newWriteFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write-file <record_id> <structured_file>",
		Short: "Writes a structured document to the record and removes its scrape dumps",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			path := artifactPath(appInstance.Config(), args[1])
			return report(cmd, appInstance.Modes().WriteFile(cmd.Context(), args[0], path))
		},
	}
}

func newGeocodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geocode <record_id> <address>",
		Short: "Resolves the venue address and stores its coordinates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return report(cmd, appInstance.Modes().Geocode(cmd.Context(), args[0], args[1]))
		},
	}
}

func newWriteJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write-json <record_id> <full_json> <summary_json>",
		Short: "Writes the full and summary venue JSON to the record in one update",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.Config()
			st := appInstance.Modes().WriteJSON(cmd.Context(), args[0],
				artifactPath(cfg, args[1]), artifactPath(cfg, args[2]))
			return report(cmd, st)
		},
	}
}

func newFetchSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "fetch-sources <record_id> [venue_name]",
		Aliases: []string{"fetch-json-sources"},
		Short:   "Copies the stored document and brochure text into the artifact store",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return report(cmd, appInstance.Modes().FetchSources(cmd.Context(), args[0]))
		},
	}
}

// artifactPath turns an absolute path under the local storage directory into
// the relative key the artifact store expects. Other paths pass through.
func artifactPath(cfg config.Config, path string) string {
	if cfg.Storage.Backend != config.StorageLocal || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(cfg.Storage.BaseDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
