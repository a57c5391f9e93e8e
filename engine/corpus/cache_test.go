package corpus

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/WessleyAI/termscape/pkg/fn"
)

type fakeSource struct {
	texts map[string]string
	calls map[string]int
}

func (s *fakeSource) Fetch(_ context.Context, u string) fn.Result[string] {
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[u]++
	text, ok := s.texts[u]
	if !ok {
		return fn.Err[string](errors.New("not found"))
	}
	return fn.Ok(text)
}

func TestCacheFetchesOnce(t *testing.T) {
	src := &fakeSource{texts: map[string]string{"a": "The Cat. The Hatter."}}
	c, err := NewCache(src, 2)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		tokens, err := c.Tokens(context.Background(), "a").Unwrap()
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(tokens, []string{"the", "cat", "the", "hatter"}) {
			t.Fatalf("unexpected tokens %q", tokens)
		}
	}
	if src.calls["a"] != 1 {
		t.Fatalf("expected 1 fetch, got %d", src.calls["a"])
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	src := &fakeSource{texts: map[string]string{}}
	c, _ := NewCache(src, 0)
	c.Tokens(context.Background(), "missing")
	c.Tokens(context.Background(), "missing")
	if src.calls["missing"] != 2 {
		t.Fatalf("failures should not be cached, got %d calls", src.calls["missing"])
	}
}

func TestCacheEvictsAndInvalidates(t *testing.T) {
	src := &fakeSource{texts: map[string]string{"a": "a", "b": "b", "c": "c"}}
	c, _ := NewCache(src, 2)
	ctx := context.Background()
	c.Tokens(ctx, "a")
	c.Tokens(ctx, "b")
	c.Tokens(ctx, "c") // evicts a
	c.Tokens(ctx, "a")
	if src.calls["a"] != 2 {
		t.Fatalf("expected a to be refetched after eviction, got %d", src.calls["a"])
	}
	c.Invalidate("a")
	c.Tokens(ctx, "a")
	if src.calls["a"] != 3 {
		t.Fatalf("expected refetch after invalidate, got %d", src.calls["a"])
	}
}
