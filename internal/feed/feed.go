// Package feed normalizes raw RSS 2.0 / Atom documents into canonical
// item records.
package feed

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Item is one normalized feed entry. Published is nil when the item
// carried no parsable timestamp; such items are excluded downstream by
// the recency filter, never treated as an error here.
type Item struct {
	Title     string
	Link      string
	Published *time.Time
	Summary   string
}

// Normalize parses a raw feed body and extracts canonical items. The
// feed dialect (RSS 2.0 channel/item vs Atom feed/entry) is detected
// from the root element regardless of namespace prefixes; for Atom the
// rel="alternate" link is preferred. Timestamps are tried in
// pubDate/published then updated order, RFC-822 before ISO-8601, and
// normalized to UTC. A malformed document as a whole is an error; a
// single malformed item is not.
func Normalize(raw []byte) ([]Item, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		title := strings.TrimSpace(it.Title)
		link := strings.TrimSpace(it.Link)
		if title == "" && link == "" {
			continue
		}

		var published *time.Time
		if it.PublishedParsed != nil {
			t := it.PublishedParsed.UTC()
			published = &t
		} else if it.UpdatedParsed != nil {
			t := it.UpdatedParsed.UTC()
			published = &t
		}

		summary := strings.TrimSpace(it.Description)
		if summary == "" {
			summary = strings.TrimSpace(it.Content)
		}

		items = append(items, Item{
			Title:     title,
			Link:      link,
			Published: published,
			Summary:   summary,
		})
	}
	return items, nil
}
