// Package news holds the collected item model and the collection
// engine's algorithmic core: recency filtering and similarity-based
// deduplication.
package news

import (
	"sort"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"finnews/internal/metrics"
)

// Item is one collected news entry in the output document. Items are
// ephemeral: created per collection cycle, never persisted.
type Item struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
	SourceID    string    `json:"source_id"`
	Language    string    `json:"language,omitempty"`
	Weight      float64   `json:"weight"`
	Tags        []string  `json:"tags"`
	RawSummary  string    `json:"raw_summary"`
	FeedURL     string    `json:"feed_url"`

	// Populated by Dedup when other coverage of the same story is
	// merged into this item. Never contain the item's own link/source.
	AltLinks   []string `json:"alt_links,omitempty"`
	AltSources []string `json:"alt_sources,omitempty"`
}

// FilterRecent keeps items published at or after cutoff. Undated items
// (zero PublishedAt) are always dropped: treating them as stale stops
// undated content drifting into every run's output.
func FilterRecent(items []Item, cutoff time.Time) []Item {
	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if it.PublishedAt.IsZero() || it.PublishedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, it)
	}
	return kept
}

// Dedup merges near-identical stories. Items are first stable-sorted
// descending by (published_at, weight) so the highest-precedence
// representative of a story cluster is always the one retained,
// independent of input order; equal-precedence ties keep discovery
// order. Then a greedy single pass: an exact link match against a kept
// item suppresses the candidate outright; otherwise the first kept
// item whose normalized title scores >= threshold absorbs the
// candidate's link and source name as alternates. Below threshold no
// merge happens even for near-duplicate headlines.
func Dedup(items []Item, threshold float64) []Item {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.Weight > b.Weight
	})

	seenLinks := make(map[string]struct{}, len(sorted))
	kept := make([]Item, 0, len(sorted))

	for _, it := range sorted {
		if it.Link != "" {
			if _, dup := seenLinks[it.Link]; dup {
				// Verbatim republish of a retained primary; no merge record.
				metrics.Global.IncrementDuplicatesMerged()
				continue
			}
		}

		merged := false
		for k := range kept {
			if TitleSimilarity(it.Title, kept[k].Title) >= threshold {
				absorb(&kept[k], it)
				metrics.Global.IncrementDuplicatesMerged()
				merged = true
				break
			}
		}
		if merged {
			continue
		}

		kept = append(kept, it)
		if it.Link != "" {
			seenLinks[it.Link] = struct{}{}
		}
	}
	return kept
}

// absorb records the duplicate's link and source on the cluster primary,
// skipping values equal to the primary's own or already present.
func absorb(primary *Item, dup Item) {
	if dup.Link != "" && dup.Link != primary.Link && !contains(primary.AltLinks, dup.Link) {
		primary.AltLinks = append(primary.AltLinks, dup.Link)
	}
	if dup.Source != "" && dup.Source != primary.Source && !contains(primary.AltSources, dup.Source) {
		primary.AltSources = append(primary.AltSources, dup.Source)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// TitleSimilarity scores two titles in [0,1]: case-insensitive,
// whitespace-collapsed character-sequence ratio. Empty titles never
// match anything.
func TitleSimilarity(a, b string) float64 {
	na, nb := normalizeTitle(a), normalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	m := difflib.NewMatcher(strings.Split(na, ""), strings.Split(nb, ""))
	return m.Ratio()
}

func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
