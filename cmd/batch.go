package cmd

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/venue-ingest/internal/batch"
	"github.com/JakeFAU/venue-ingest/internal/pipeline"
	"github.com/JakeFAU/venue-ingest/internal/venue"
)

func newBatchCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "batch <manifest.yaml>",
		Short: "Processes every venue in a YAML manifest",
		Long: `Processes the venues listed in a manifest with bounded parallelism. Each
record prints "<record_id><TAB><status line>" as it finishes. The exit code is
non-zero when any record failed hard.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			manifest, err := batch.FromFile(args[0])
			if err != nil {
				return err
			}
			limit := concurrency
			if limit <= 0 {
				limit = appInstance.Config().Batch.Concurrency
			}
			return runBatch(cmd, appInstance, manifest.Requests(), limit)
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "records processed at once (default batch.concurrency)")
	return cmd
}

func runBatch(cmd *cobra.Command, appInstance App, reqs []venue.Request, limit int) error {
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(limit, 1))

	var (
		mu     sync.Mutex
		failed bool
	)
	out := cmd.OutOrStdout()
	for _, req := range reqs {
		g.Go(func() error {
			var line string
			run, err := appInstance.Process(ctx, req)
			if err != nil {
				line = pipeline.Status{Kind: pipeline.KindError, Reason: err.Error()}.String()
			} else {
				line = run.StatusLine
			}

			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "%s\t%s\n", req.RecordID, line)
			if err != nil || exitFor(pipeline.Kind(run.Kind)) != nil {
				failed = true
			}
			// A failed record never cancels its siblings.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if failed {
		return errStatusFailed
	}
	return nil
}
