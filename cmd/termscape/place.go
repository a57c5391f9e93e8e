package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/termscape/engine/domain"
	"github.com/WessleyAI/termscape/engine/scene"
)

func newPlaceCmd(c *cli) *cobra.Command {
	var summaryOnly bool
	cmd := &cobra.Command{
		Use:   "place [url]",
		Short: "Print placement batches as JSON lines",
		Long: `place fetches the corpus (the configured corpus.url unless a URL or file path
is given), runs the placement pipeline once and writes every batch to stdout
as one JSON object per line, followed by the run summary.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := c.cfg.Corpus.URL
			if len(args) == 1 {
				url = args[0]
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			r := scene.RendererFunc(func(_ context.Context, b domain.Batch) error {
				if summaryOnly {
					return nil
				}
				return enc.Encode(b)
			})
			p, err := newPipeline(c.cfg, c.log, nil, r, true)
			if err != nil {
				return err
			}
			summary, err := p.run(cmd.Context(), url).Unwrap()
			if err != nil {
				return err
			}
			c.log.Info("placed", "url", url, "batches", summary.Batches, "instructions", summary.Total())
			return enc.Encode(map[string]any{"summary": summary})
		},
	}
	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "only print the run summary")
	return cmd
}
