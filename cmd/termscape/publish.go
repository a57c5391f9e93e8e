package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/termscape/engine/scene"
)

func newPublishCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish [url]",
		Short: "Publish placement batches to NATS",
		Long: `publish runs the placement pipeline once and publishes every batch as JSON
on <nats.prefix>.<category>.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := c.cfg, c.log
			if cfg.NATS.URL == "" {
				return errors.New("publish: nats.url is required")
			}
			url := cfg.Corpus.URL
			if len(args) == 1 {
				url = args[0]
			}

			nc, err := nats.Connect(cfg.NATS.URL, nats.Name("termscape-publish"))
			if err != nil {
				return fmt.Errorf("connect nats: %w", err)
			}
			defer nc.Close()

			r := scene.NewNATSRenderer(nc, cfg.NATS.Prefix)
			p, err := newPipeline(cfg, log, nil, r, true)
			if err != nil {
				return err
			}
			summary, err := p.run(cmd.Context(), url).Unwrap()
			if err != nil {
				return err
			}
			if err := nc.FlushTimeout(5 * time.Second); err != nil {
				return fmt.Errorf("flush nats: %w", err)
			}
			log.Info("published", "url", url, "batches", summary.Batches, "instructions", summary.Total())
			return nil
		},
	}
	cmd.Flags().String("nats-url", "", "NATS server URL")
	return cmd
}
