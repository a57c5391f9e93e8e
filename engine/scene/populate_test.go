package scene

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/WessleyAI/termscape/engine/corpus"
	"github.com/WessleyAI/termscape/engine/domain"
	"github.com/WessleyAI/termscape/engine/placement"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(t *testing.T, r Renderer, terms ...domain.Term) *Orchestrator {
	t.Helper()
	ts, err := domain.NewTermSet(terms...)
	if err != nil {
		t.Fatal(err)
	}
	return NewOrchestrator(Config{Terms: ts, Repeat: 5}, placement.NewMapper(placement.NewSource(1)), r, quietLogger())
}

func TestPopulateEndToEnd(t *testing.T) {
	rec := &Recorder{}
	o := newTestOrchestrator(t, rec,
		domain.Term{Text: "cat", Category: "A"},
		domain.Term{Text: "queen", Category: "B"},
	)
	tokens := corpus.Tokenize("Alice met the Cat. The Cat ran.")
	sum, err := o.Populate(context.Background(), tokens)
	if err != nil {
		t.Fatal(err)
	}

	ins := rec.Instructions()
	if len(ins) != 10 {
		t.Fatalf("expected 10 instructions, got %d", len(ins))
	}
	for _, in := range ins {
		if in.Category != "A" || in.Term != "cat" {
			t.Fatalf("unexpected tag on %+v", in)
		}
	}
	if sum.Instructions["A"] != 10 || sum.Instructions["B"] != 0 {
		t.Fatalf("unexpected counts %v", sum.Instructions)
	}
	if sum.Matches["cat"] != 2 || sum.Matches["queen"] != 0 {
		t.Fatalf("unexpected matches %v", sum.Matches)
	}
	if sum.Batches != 2 || sum.Total() != 10 || sum.Tokens != 7 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	// "cat" sits at indices 3 and 5 of 7 tokens.
	for i, idx := range []int{3, 5} {
		b := rec.Batches[i]
		if b.TokenIndex != idx || b.N != placement.Normalize(idx, 7) {
			t.Fatalf("batch %d: got index %d n %v", i, b.TokenIndex, b.N)
		}
		for _, in := range b.Instructions {
			if in.Position.Y != b.N-10 {
				t.Fatalf("batch %d: Y %v != n-10", i, in.Position.Y)
			}
		}
	}
}

func TestPopulatePreservesTermOrder(t *testing.T) {
	rec := &Recorder{}
	o := newTestOrchestrator(t, rec,
		domain.Term{Text: "rabbit", Category: "red"},
		domain.Term{Text: "cat", Category: "green"},
	)
	// cat occurs before rabbit in the text, but rabbit is configured first.
	tokens := corpus.Tokenize("the cat saw the rabbit and the cat and the rabbit")
	if _, err := o.Populate(context.Background(), tokens); err != nil {
		t.Fatal(err)
	}
	want := []struct {
		term  string
		index int
	}{{"rabbit", 4}, {"rabbit", 10}, {"cat", 1}, {"cat", 7}}
	if len(rec.Batches) != len(want) {
		t.Fatalf("expected %d batches, got %d", len(want), len(rec.Batches))
	}
	for i, w := range want {
		if rec.Batches[i].Term != w.term || rec.Batches[i].TokenIndex != w.index {
			t.Fatalf("batch %d = %s@%d, want %s@%d", i, rec.Batches[i].Term, rec.Batches[i].TokenIndex, w.term, w.index)
		}
	}
}

func TestPopulateEmptyCorpus(t *testing.T) {
	rec := &Recorder{}
	o := newTestOrchestrator(t, rec, domain.Term{Text: "cat", Category: "A"})
	_, err := o.Populate(context.Background(), nil)
	if !errors.Is(err, domain.ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
	if len(rec.Batches) != 0 {
		t.Fatal("renderer should not be called")
	}
}

func TestPopulateRendererError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	r := RendererFunc(func(context.Context, domain.Batch) error {
		calls++
		return boom
	})
	o := newTestOrchestrator(t, r, domain.Term{Text: "cat", Category: "A"})
	_, err := o.Populate(context.Background(), []string{"cat", "cat"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected to stop after first error, got %d calls", calls)
	}
}

func TestPopulateCancelled(t *testing.T) {
	o := newTestOrchestrator(t, &Recorder{}, domain.Term{Text: "cat", Category: "A"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Populate(ctx, []string{"cat"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPopulateLabels(t *testing.T) {
	rec := &Recorder{}
	o := newTestOrchestrator(t, rec, domain.Term{Text: "cat", Label: "Cheshire Cat", Category: "A"})
	if _, err := o.Populate(context.Background(), []string{"cat"}); err != nil {
		t.Fatal(err)
	}
	if rec.Batches[0].Label != "Cheshire Cat" {
		t.Fatalf("unexpected label %q", rec.Batches[0].Label)
	}
}

func TestTee(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	r := Tee(a, b)
	if err := r.Render(context.Background(), domain.Batch{Term: "cat"}); err != nil {
		t.Fatal(err)
	}
	if len(a.Batches) != 1 || len(b.Batches) != 1 {
		t.Fatal("both renderers should receive the batch")
	}

	boom := errors.New("boom")
	c := &Recorder{}
	err := Tee(RendererFunc(func(context.Context, domain.Batch) error { return boom }), c).Render(context.Background(), domain.Batch{})
	if !errors.Is(err, boom) || len(c.Batches) != 0 {
		t.Fatalf("tee should stop at first error, got %v", err)
	}
}
