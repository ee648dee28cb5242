package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finnews/internal/fetch"
	"finnews/internal/sources"
	"finnews/internal/storage"
)

func rssBody(entries ...[3]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`)
	for _, e := range entries {
		fmt.Fprintf(&b, "<item><title>%s</title><link>%s</link><pubDate>%s</pubDate></item>", e[0], e[1], e[2])
	}
	b.WriteString("</channel></rss>")
	return b.String()
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func failingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func registry(threshold float64, taiwanSrcs ...sources.Source) *sources.Registry {
	return &sources.Registry{
		Regions: []sources.Region{
			{Name: sources.RegionTaiwan, Sources: taiwanSrcs},
			{Name: sources.RegionGlobal},
		},
		Threshold: threshold,
	}
}

func TestRunIsolatesSourceFailures(t *testing.T) {
	recent := time.Now().UTC().Add(-30 * time.Minute).Format(time.RFC1123Z)

	okA := feedServer(t, rssBody([3]string{"Taiwan exports climb", "https://example.com/a", recent}))
	okB := feedServer(t, rssBody([3]string{"Chipmaker guidance raised", "https://example.com/b", recent}))
	broken := failingServer(t)

	reg := registry(0.9,
		sources.Source{ID: "ok_a", Name: "A", Type: "rss", URL: okA.URL, Weight: 1},
		sources.Source{ID: "broken", Name: "B", Type: "rss", URL: broken.URL, Weight: 1},
		sources.Source{ID: "ok_b", Name: "C", Type: "rss", URL: okB.URL, Weight: 1},
	)

	c := New(reg, fetch.New(5*time.Second), Options{WindowHours: 2, Concurrency: 3})
	res := c.Run(context.Background())

	tw := res.Regions[sources.RegionTaiwan]
	if tw == nil {
		t.Fatal("taiwan region missing from result")
	}
	if len(tw.Errors) != 1 {
		t.Fatalf("errors = %+v, want exactly one", tw.Errors)
	}
	if tw.Errors[0].Source != "broken" {
		t.Errorf("error names source %q, want broken", tw.Errors[0].Source)
	}
	if len(tw.Items) != 2 {
		t.Fatalf("items = %d, want 2 (one per healthy source)", len(tw.Items))
	}
	for _, it := range tw.Items {
		if it.SourceID == "broken" {
			t.Errorf("item leaked from failing source: %+v", it)
		}
	}
	if len(tw.Sources) != 3 {
		t.Errorf("sources list = %v, must include failed sources too", tw.Sources)
	}
}

func TestRunAllSourcesFailingStillProducesResult(t *testing.T) {
	broken := failingServer(t)
	reg := registry(0.9,
		sources.Source{ID: "s1", Name: "S1", Type: "rss", URL: broken.URL, Weight: 1},
		sources.Source{ID: "s2", Name: "S2", Type: "rss", URL: broken.URL, Weight: 1},
	)

	c := New(reg, fetch.New(5*time.Second), Options{WindowHours: 2, Concurrency: 2})
	res := c.Run(context.Background())

	tw := res.Regions[sources.RegionTaiwan]
	if len(tw.Items) != 0 {
		t.Errorf("items = %+v, want none", tw.Items)
	}
	if len(tw.Errors) != 2 {
		t.Errorf("errors = %+v, want 2", tw.Errors)
	}
	if res.GeneratedAt.IsZero() || res.CutoffUTC.IsZero() {
		t.Error("result timestamps must be set even when every source fails")
	}
}

func TestRunUnresolvableSourceRecordedAsError(t *testing.T) {
	reg := registry(0.9, sources.Source{ID: "bad", Name: "Bad", Type: "scrape", Weight: 1})

	c := New(reg, fetch.New(5*time.Second), Options{WindowHours: 2, Concurrency: 1})
	res := c.Run(context.Background())

	tw := res.Regions[sources.RegionTaiwan]
	if len(tw.Errors) != 1 || tw.Errors[0].Source != "bad" {
		t.Fatalf("errors = %+v, want one entry for bad", tw.Errors)
	}
}

func TestRunFiltersByWindow(t *testing.T) {
	recent := time.Now().UTC().Add(-30 * time.Minute).Format(time.RFC1123Z)
	stale := time.Now().UTC().Add(-3 * time.Hour).Format(time.RFC1123Z)

	srv := feedServer(t, rssBody(
		[3]string{"Fresh headline", "https://example.com/fresh", recent},
		[3]string{"Stale headline", "https://example.com/stale", stale},
	))
	reg := registry(0.9, sources.Source{ID: "s", Name: "S", Type: "rss", URL: srv.URL, Weight: 1})

	c := New(reg, fetch.New(5*time.Second), Options{WindowHours: 2, Concurrency: 1})
	res := c.Run(context.Background())

	tw := res.Regions[sources.RegionTaiwan]
	if len(tw.Items) != 1 {
		t.Fatalf("items = %+v, want only the fresh one", tw.Items)
	}
	if tw.Items[0].Link != "https://example.com/fresh" {
		t.Errorf("kept %q", tw.Items[0].Link)
	}
	if !tw.Items[0].PublishedAt.After(res.CutoffUTC) && !tw.Items[0].PublishedAt.Equal(res.CutoffUTC) {
		t.Errorf("kept item older than cutoff: %v < %v", tw.Items[0].PublishedAt, res.CutoffUTC)
	}
}

func TestRunDedupsAcrossSourcesWithinRegion(t *testing.T) {
	recent := time.Now().UTC().Add(-10 * time.Minute).Format(time.RFC1123Z)
	older := time.Now().UTC().Add(-20 * time.Minute).Format(time.RFC1123Z)

	srvA := feedServer(t, rssBody([3]string{"Fed cuts rates", "https://example.com/a", recent}))
	srvB := feedServer(t, rssBody([3]string{"Fed Cuts Rates by 25bps", "https://example.com/b", older}))

	reg := registry(0.6,
		sources.Source{ID: "a", Name: "Wire A", Type: "rss", URL: srvA.URL, Weight: 1},
		sources.Source{ID: "b", Name: "Wire B", Type: "rss", URL: srvB.URL, Weight: 1},
	)

	c := New(reg, fetch.New(5*time.Second), Options{WindowHours: 2, Concurrency: 2})
	res := c.Run(context.Background())

	tw := res.Regions[sources.RegionTaiwan]
	if len(tw.Items) != 1 {
		t.Fatalf("items = %+v, want one merged story", tw.Items)
	}
	primary := tw.Items[0]
	if primary.Link != "https://example.com/a" {
		t.Errorf("primary = %q, want the newer item", primary.Link)
	}
	if len(primary.AltLinks) != 1 || primary.AltLinks[0] != "https://example.com/b" {
		t.Errorf("alt_links = %v", primary.AltLinks)
	}
	if len(primary.AltSources) != 1 || primary.AltSources[0] != "Wire B" {
		t.Errorf("alt_sources = %v", primary.AltSources)
	}
}

func TestRunSeenStoreSuppressesRepeats(t *testing.T) {
	recent := time.Now().UTC().Add(-10 * time.Minute).Format(time.RFC1123Z)
	srv := feedServer(t, rssBody([3]string{"Fresh headline", "https://example.com/fresh", recent}))
	reg := registry(0.9, sources.Source{ID: "s", Name: "S", Type: "rss", URL: srv.URL, Weight: 1})

	seen := storage.NewSeenStore(t.TempDir()+"/seen.json", time.Hour)
	c := New(reg, fetch.New(5*time.Second), Options{WindowHours: 2, Concurrency: 1, Seen: seen})

	first := c.Run(context.Background())
	if n := len(first.Regions[sources.RegionTaiwan].Items); n != 1 {
		t.Fatalf("first run items = %d, want 1", n)
	}

	second := c.Run(context.Background())
	if n := len(second.Regions[sources.RegionTaiwan].Items); n != 0 {
		t.Fatalf("second run items = %d, want 0 (link already emitted)", n)
	}
}
