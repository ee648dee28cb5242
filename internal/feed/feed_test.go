package feed

import (
	"testing"
	"time"
)

const rssSample = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Finance</title>
    <item>
      <title>  Markets rally on rate cut hopes  </title>
      <link>https://example.com/a</link>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
      <description>Stocks climbed broadly.</description>
    </item>
    <item>
      <title>Undated story</title>
      <link>https://example.com/b</link>
      <pubDate>not a date at all</pubDate>
    </item>
    <item>
      <description>no title and no link, must be discarded</description>
    </item>
  </channel>
</rss>`

const atomSample = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Atom</title>
  <entry>
    <title>Oil steadies after selloff</title>
    <link rel="self" href="https://example.com/self"/>
    <link rel="alternate" href="https://example.com/story"/>
    <updated>2006-01-02T15:04:05Z</updated>
    <summary>Crude held near recent lows.</summary>
  </entry>
</feed>`

func TestNormalizeRSS(t *testing.T) {
	items, err := Normalize([]byte(rssSample))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (empty item discarded): %+v", len(items), items)
	}

	first := items[0]
	if first.Title != "Markets rally on rate cut hopes" {
		t.Errorf("title not trimmed: %q", first.Title)
	}
	if first.Link != "https://example.com/a" {
		t.Errorf("link = %q", first.Link)
	}
	if first.Published == nil {
		t.Fatal("published is nil for a valid RFC-822 pubDate")
	}
	want := time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)
	if !first.Published.Equal(want) {
		t.Errorf("published = %v, want %v", first.Published, want)
	}
	if first.Published.Location() != time.UTC {
		t.Errorf("published not normalized to UTC: %v", first.Published.Location())
	}
	if first.Summary != "Stocks climbed broadly." {
		t.Errorf("summary = %q", first.Summary)
	}

	// Unparsable date is not an error, just a nil timestamp.
	if items[1].Published != nil {
		t.Errorf("expected nil published for malformed date, got %v", items[1].Published)
	}
}

func TestNormalizeAtomPrefersAlternateLink(t *testing.T) {
	items, err := Normalize([]byte(atomSample))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].Link != "https://example.com/story" {
		t.Errorf("link = %q, want the rel=alternate href", items[0].Link)
	}
	if items[0].Published == nil {
		t.Fatal("published is nil, updated element should be used")
	}
	if items[0].Summary != "Crude held near recent lows." {
		t.Errorf("summary = %q", items[0].Summary)
	}
}

func TestNormalizeMalformedBody(t *testing.T) {
	if _, err := Normalize([]byte("this is not a feed")); err == nil {
		t.Fatal("expected an error for a malformed feed body")
	}
}
