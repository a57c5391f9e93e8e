package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveFetch(t *testing.T) {
	m := New(false)
	m.ObserveFetch("ok", 10*time.Millisecond)
	m.ObserveFetch("ok", 20*time.Millisecond)
	m.ObserveFetch("http_error", time.Millisecond)

	if got := testutil.ToFloat64(m.fetches.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok fetches, got %v", got)
	}
	if got := testutil.ToFloat64(m.fetches.WithLabelValues("http_error")); got != 1 {
		t.Fatalf("expected 1 http_error fetch, got %v", got)
	}
	if n := testutil.CollectAndCount(m.fetchTime); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
}

func TestAddPlacements(t *testing.T) {
	m := New(false)
	m.AddPlacements("red", 10)
	m.AddPlacements("red", 5)
	m.AddPlacements("green", 0)
	if got := testutil.ToFloat64(m.placements.WithLabelValues("red")); got != 15 {
		t.Fatalf("expected 15, got %v", got)
	}
	if n := testutil.CollectAndCount(m.placements); n != 1 {
		t.Fatalf("zero adds should not create a series, got %d series", n)
	}
}

func TestObservePopulateAndClients(t *testing.T) {
	m := New(false)
	m.ObservePopulate(nil)
	m.ObservePopulate(errors.New("boom"))
	m.ObservePopulate(errors.New("boom"))
	if got := testutil.ToFloat64(m.populates.WithLabelValues("error")); got != 2 {
		t.Fatalf("expected 2 errors, got %v", got)
	}

	m.ClientConnected()
	m.ClientConnected()
	m.ClientDisconnected()
	if got := testutil.ToFloat64(m.clients); got != 1 {
		t.Fatalf("expected 1 client, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveFetch("ok", time.Second)
	m.AddPlacements("red", 1)
	m.ObservePopulate(nil)
	m.Since("fetch", time.Now())
	m.ClientConnected()
	m.ClientDisconnected()
}

func TestHandler(t *testing.T) {
	m := New(true)
	m.AddPlacements("red", 3)
	m.Since("place", time.Now())

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	out := string(body)

	for _, want := range []string{
		`termscape_placements_total{category="red"} 3`,
		`termscape_stage_duration_seconds_count{stage="place"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output", want)
		}
	}
}
