package scene

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/WessleyAI/termscape/engine/domain"
	"github.com/WessleyAI/termscape/engine/placement"
)

// Config is the immutable configuration of an Orchestrator.
type Config struct {
	Terms  domain.TermSet
	Repeat int // instructions per match; <= 0 means placement.DefaultRepeat
}

// Summary reports what a Populate call emitted.
type Summary struct {
	Tokens       int                     `json:"tokens"`
	Batches      int                     `json:"batches"`
	Matches      map[string]int          `json:"matches"`
	Instructions map[domain.Category]int `json:"instructions"`
}

// Total returns the number of instructions emitted across categories.
func (s Summary) Total() int {
	n := 0
	for _, c := range s.Instructions {
		n += c
	}
	return n
}

// Orchestrator runs the locate → expand loop over a token sequence.
type Orchestrator struct {
	cfg      Config
	mapper   *placement.Mapper
	renderer Renderer
	log      *slog.Logger
}

// NewOrchestrator wires an Orchestrator. A nil log uses slog.Default().
func NewOrchestrator(cfg Config, mapper *placement.Mapper, renderer Renderer, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if mapper == nil {
		mapper = placement.NewMapper(nil)
	}
	return &Orchestrator{cfg: cfg, mapper: mapper, renderer: renderer, log: log}
}

// Config returns the orchestrator's configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// Populate emits one batch per (term, match) to the renderer. Terms are
// visited in configured order and matches in token order, so every batch
// for an earlier term precedes those for a later one.
func (o *Orchestrator) Populate(ctx context.Context, tokens []string) (Summary, error) {
	sum := Summary{
		Tokens:       len(tokens),
		Matches:      make(map[string]int),
		Instructions: make(map[domain.Category]int),
	}
	if len(tokens) == 0 {
		return sum, domain.ErrEmptyCorpus
	}

	for _, term := range o.cfg.Terms.Terms() {
		indices := placement.LocateIndices(tokens, term.Text)
		sum.Matches[term.Text] = len(indices)
		if _, ok := sum.Instructions[term.Category]; !ok {
			sum.Instructions[term.Category] = 0
		}
		for _, i := range indices {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			n := placement.Normalize(i, len(tokens))
			batch := domain.Batch{
				Term:         term.Text,
				Label:        term.DisplayLabel(),
				Category:     term.Category,
				TokenIndex:   i,
				N:            n,
				Instructions: o.mapper.ExpandTerm(term, n, o.cfg.Repeat),
			}
			if err := o.renderer.Render(ctx, batch); err != nil {
				return sum, fmt.Errorf("scene: render %q@%d: %w", term.Text, i, err)
			}
			sum.Batches++
			sum.Instructions[term.Category] += len(batch.Instructions)
		}
		o.log.Debug("scene: term placed", "term", term.Text, "category", term.Category, "matches", len(indices))
	}
	o.log.Info("scene: populated", "tokens", sum.Tokens, "batches", sum.Batches, "instructions", sum.Total())
	return sum, nil
}
