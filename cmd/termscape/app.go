package main

import (
	"log/slog"
	"time"

	"github.com/WessleyAI/termscape/engine/corpus"
	"github.com/WessleyAI/termscape/engine/placement"
	"github.com/WessleyAI/termscape/engine/scene"
	"github.com/WessleyAI/termscape/pkg/config"
	"github.com/WessleyAI/termscape/pkg/fn"
	"github.com/WessleyAI/termscape/pkg/metrics"
)

// pipeline bundles a populate stage with the orchestrator behind it.
type pipeline struct {
	run   fn.Stage[string, scene.Summary]
	orch  *scene.Orchestrator
	cache *corpus.Cache
}

func newFetcher(cfg *config.Config, log *slog.Logger, m *metrics.Metrics, allowLocal bool) *corpus.Fetcher {
	opts := corpus.DefaultFetcherOpts
	opts.Timeout = cfg.Fetch.Timeout
	opts.Interval = cfg.Fetch.Interval
	opts.MaxBytes = cfg.Fetch.MaxBytes
	opts.UserAgent = cfg.Fetch.UserAgent
	opts.Retry.MaxAttempts = cfg.Fetch.Retries + 1
	opts.Logger = log
	opts.AllowLocal = allowLocal
	if m != nil {
		opts.OnFetch = m.ObserveFetch
	}
	return corpus.NewFetcher(opts, nil)
}

// newPipeline wires fetch → tokenize → place in front of r. allowLocal
// lets the fetcher read local paths and file:// URLs.
func newPipeline(cfg *config.Config, log *slog.Logger, m *metrics.Metrics, r scene.Renderer, allowLocal bool) (*pipeline, error) {
	terms, err := cfg.TermSet()
	if err != nil {
		return nil, err
	}
	cache, err := corpus.NewCache(newFetcher(cfg, log, m, allowLocal), cfg.Corpus.CacheSize)
	if err != nil {
		return nil, err
	}
	mapper := placement.NewMapper(placement.NewSource(cfg.Placement.Seed))
	orch := scene.NewOrchestrator(scene.Config{Terms: terms, Repeat: cfg.Placement.Repeat}, mapper, r, log)
	run := scene.NewPipeline(scene.Deps{Cache: cache, Orchestrator: orch, Logger: log})
	return &pipeline{run: run, orch: orch, cache: cache}, nil
}

// animationSeed derives the animation registry seed from the placement
// seed so a fixed --seed reproduces the whole scene.
func animationSeed(seed uint64) uint64 {
	if seed == 0 {
		return uint64(time.Now().UnixNano())
	}
	return seed + 1
}
