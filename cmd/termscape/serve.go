package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/WessleyAI/termscape/engine/domain"
	"github.com/WessleyAI/termscape/engine/placement"
	"github.com/WessleyAI/termscape/engine/scene"
	"github.com/WessleyAI/termscape/engine/stream"
	"github.com/WessleyAI/termscape/pkg/metrics"
)

func newServeCmd(c *cli) *cobra.Command {
	var populate, follow bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scene over HTTP and websocket",
		Long: `serve keeps a scene in memory, populates it from the configured corpus and
exposes it over HTTP. Websocket clients on /ws receive every new batch and a
frame (camera, visibility, object scales) about 30 times per second. When
nats.url is set, batches are also published to NATS. With --follow the scene
is instead filled from batches another process publishes to NATS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if follow && c.cfg.NATS.URL == "" {
				return errors.New("serve: --follow needs nats.url")
			}
			return c.serve(cmd.Context(), populate && !follow, follow)
		},
	}
	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	cmd.Flags().String("nats-url", "", "NATS server URL (empty disables publishing)")
	cmd.Flags().BoolVar(&populate, "populate", true, "populate the scene from corpus.url at startup")
	cmd.Flags().BoolVar(&follow, "follow", false, "mirror batches published on NATS instead of publishing")
	return cmd
}

func (c *cli) serve(ctx context.Context, populate, follow bool) error {
	cfg, log := c.cfg, c.log
	m := metrics.New(true)

	sc := scene.NewScene(scene.NewRegistry(placement.NewSource(animationSeed(cfg.Placement.Seed))))
	hub := stream.NewHub(log, m)
	sc.OnAdd(func(ctx context.Context, b domain.Batch) {
		if err := hub.Render(ctx, b); err != nil {
			log.Warn("batch not streamed", "term", b.Term, "error", err)
		}
	})
	renderers := []scene.Renderer{sc}

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("termscape"))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Drain()
		if follow {
			sub, err := scene.SubscribeBatches(nc, cfg.NATS.Prefix, func(ctx context.Context, b domain.Batch) {
				if err := sc.Render(ctx, b); err != nil {
					log.Warn("dropping followed batch", "term", b.Term, "error", err)
					return
				}
				m.AddPlacements(string(b.Category), len(b.Instructions))
			})
			if err != nil {
				return fmt.Errorf("subscribe batches: %w", err)
			}
			defer sub.Unsubscribe()
			log.Info("following batches on nats", "url", cfg.NATS.URL, "prefix", cfg.NATS.Prefix)
		} else {
			renderers = append(renderers, scene.NewNATSRenderer(nc, cfg.NATS.Prefix))
			log.Info("publishing batches to nats", "url", cfg.NATS.URL, "prefix", cfg.NATS.Prefix)
		}
	}

	p, err := newPipeline(cfg, log, m, scene.Tee(renderers...), cfg.Fetch.AllowLocal)
	if err != nil {
		return err
	}
	ui := scene.NewUIState(p.orch.Config().Terms.Categories()...)
	start := time.Now()

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: stream.NewHandler(stream.Server{
			Scene:      sc,
			UI:         ui,
			Hub:        hub,
			Populate:   p.run,
			Metrics:    m,
			Logger:     log,
			DefaultURL: cfg.Corpus.URL,
			CORSOrigin: cfg.HTTP.CORSOrigin,
			Start:      start,
		}),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(hub.Run(ctx)) })
	g.Go(func() error {
		anim := scene.NewAnimator(ui, sc.Registry(), cfg.Frame.Interval)
		return ignoreCanceled(anim.Run(ctx, hub.EmitFrame))
	})
	g.Go(func() error {
		log.Info("termscape server starting", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	if populate {
		g.Go(func() error {
			t0 := time.Now()
			summary, err := p.run(ctx, cfg.Corpus.URL).Unwrap()
			m.Since("populate", t0)
			m.ObservePopulate(err)
			if err != nil {
				// The server stays up; POST /populate can retry.
				log.Error("initial populate failed", "url", cfg.Corpus.URL, "error", err)
				return nil
			}
			for cat, n := range summary.Instructions {
				m.AddPlacements(string(cat), n)
			}
			log.Info("scene populated", "batches", summary.Batches, "instructions", summary.Total())
			return nil
		})
	}
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
