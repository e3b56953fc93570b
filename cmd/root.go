// Package cmd defines and implements the CLI commands for the venue-ingest executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/venue-ingest/internal/app"
	"github.com/JakeFAU/venue-ingest/internal/config"
	"github.com/JakeFAU/venue-ingest/internal/pipeline"
	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// errStatusFailed marks a command whose status line reports a failure. The
// line itself is already on stdout, so Execute only sets the exit code.
var errStatusFailed = errors.New("status reports failure")

// Modes are the single-record operations that report one status line.
type Modes interface {
	WriteFile(ctx context.Context, recordID, path string) pipeline.Status
	Geocode(ctx context.Context, recordID, address string) pipeline.Status
	WriteJSON(ctx context.Context, recordID, fullPath, summaryPath string) pipeline.Status
	FetchSources(ctx context.Context, recordID string) pipeline.Status
}

// App defines the application interface that commands use. Tests inject
// their own through newApp.
type App interface {
	Config() config.Config
	Modes() Modes
	Process(ctx context.Context, req venue.Request) (venue.Run, error)
	Serve(ctx context.Context) error
	Close(ctx context.Context) error
}

type appAdapter struct{ *app.App }

func (a appAdapter) Modes() Modes { return a.Processor() }

// newApp is the application factory.
var newApp = func(ctx context.Context, cfg config.Config) (App, error) {
	a, err := app.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return appAdapter{a}, nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "venue-ingest",
		Short: "Scrapes wedding venue sites into normalized record documents.",
		Long: `venue-ingest discovers the pages of a venue website, fetches them as markdown,
strips boilerplate, groups content by topic, merges listing sites and writes the
result to the venue record. Each command prints one status line to stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				_ = appInstance.Close(context.WithoutCancel(cmd.Context()))
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); env VENUE_* overrides")

	cmd.AddCommand(
		newProcessCmd(),
		newWriteFileCmd(),
		newGeocodeCmd(),
		newWriteJSONCmd(),
		newFetchSourcesCmd(),
		newBatchCmd(),
		newServeCmd(),
	)
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	return execute(ctx, newRootCmd())
}

// execute runs root and prints any failure that produced no status line as
// ERROR|<reason> on stdout.
func execute(ctx context.Context, root *cobra.Command) int {
	executed, err := root.ExecuteContextC(ctx)
	// PersistentPostRun is skipped when RunE fails.
	if err != nil && executed != nil && executed.Context() != nil {
		if appInstance, ok := executed.Context().Value(appKey).(App); ok && appInstance != nil {
			_ = appInstance.Close(context.WithoutCancel(ctx))
		}
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errStatusFailed):
		return 1
	default:
		fmt.Fprintf(root.OutOrStdout(), "ERROR|%v\n", err)
		return 1
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// report prints the status line and maps hard failures to errStatusFailed.
// Soft outcomes such as MANUAL_CHECK and GEOCODE_FAIL exit zero.
func report(cmd *cobra.Command, st pipeline.Status) error {
	fmt.Fprintln(cmd.OutOrStdout(), st.String())
	return exitFor(st.Kind)
}

func exitFor(kind pipeline.Kind) error {
	switch kind {
	case pipeline.KindError, pipeline.KindStoreError, pipeline.KindFetchError:
		return errStatusFailed
	default:
		return nil
	}
}
