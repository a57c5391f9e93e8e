package scene

import (
	"context"
	"log/slog"
	"time"

	"github.com/WessleyAI/termscape/engine/corpus"
	"github.com/WessleyAI/termscape/engine/domain"
	"github.com/WessleyAI/termscape/pkg/fn"
)

// Deps holds the collaborators of the populate pipeline.
type Deps struct {
	Source       corpus.TextSource
	Cache        *corpus.Cache // optional; replaces Source for fetch+tokenize
	Orchestrator *Orchestrator
	Logger       *slog.Logger
}

// --- Pipeline Stages ---

// NewFetch creates a stage that retrieves the corpus at a URL.
func NewFetch(src corpus.TextSource) fn.Stage[string, string] {
	return func(ctx context.Context, url string) fn.Result[string] {
		return src.Fetch(ctx, url)
	}
}

// requireTokens rejects token sequences without any words.
var requireTokens fn.Stage[[]string, []string] = func(_ context.Context, tokens []string) fn.Result[[]string] {
	if len(tokens) == 0 {
		return fn.Errf[[]string]("tokenize: %w", domain.ErrEmptyCorpus)
	}
	return fn.Ok(tokens)
}

// Tokenize splits a corpus into tokens, rejecting corpora without any.
var Tokenize = fn.Then(fn.MapStage(corpus.Tokenize), requireTokens)

// NewCachedTokens creates a stage that serves token sequences from a cache.
func NewCachedTokens(c *corpus.Cache) fn.Stage[string, []string] {
	return fn.Then(fn.Stage[string, []string](c.Tokens), requireTokens)
}

type beforePlaceKey struct{}

// WithBeforePlace returns a context that makes the pipeline call f once the
// corpus has been tokenized and before the first batch is rendered. A run
// that fails earlier never calls f.
func WithBeforePlace(ctx context.Context, f func(context.Context)) context.Context {
	return context.WithValue(ctx, beforePlaceKey{}, f)
}

// BeforePlace runs the hook installed by WithBeforePlace, if any.
var BeforePlace = fn.TapStage(func(ctx context.Context, _ []string) {
	if f, ok := ctx.Value(beforePlaceKey{}).(func(context.Context)); ok && f != nil {
		f(ctx)
	}
})

// NewPlace creates a stage that populates the renderer from tokens.
func NewPlace(o *Orchestrator) fn.Stage[[]string, Summary] {
	return fn.TryStage(o.Populate)
}

// LoggedTap returns a stage that logs entry/exit with duration.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return func(ctx context.Context, t T) fn.Result[T] {
		log.Debug("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			log.Debug("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return fn.Ok(t)
	}
}

// NewPipeline constructs URL → fetch → tokenize → place. A failure at any
// stage stops the pipeline before the renderer sees a batch or the
// WithBeforePlace hook runs.
func NewPipeline(deps Deps) fn.Stage[string, Summary] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	var tokens fn.Stage[string, []string]
	if deps.Cache != nil {
		tokens = fn.Then(LoggedTap[string]("tokens", log), fn.TracedStage("scene.tokens", NewCachedTokens(deps.Cache)))
	} else {
		fetched := fn.Then(LoggedTap[string]("fetch", log), fn.TracedStage("scene.fetch", NewFetch(deps.Source)))
		tokens = fn.Then(fetched, fn.Then(LoggedTap[string]("tokenize", log), fn.TracedStage("scene.tokenize", Tokenize)))
	}
	place := fn.Then(BeforePlace, fn.Then(LoggedTap[[]string]("place", log), fn.TracedStage("scene.place", NewPlace(deps.Orchestrator))))
	placed := fn.Then(tokens, place)

	return func(ctx context.Context, url string) fn.Result[Summary] {
		r := placed(ctx, url)
		if err := r.Error(); err != nil {
			log.Error("scene: pipeline failed", "url", url, "error", err)
		}
		return r
	}
}
