// Package render turns a collection result into a markdown digest. It
// does no network calls and no dedup of its own: it only reads
// regions.*.items and regions.*.errors from the document.
package render

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"finnews/internal/collect"
	"finnews/internal/news"
	"finnews/internal/sources"
)

// Options controls digest shape; zero values fall back to defaults.
type Options struct {
	MaxTaiwan int
	MaxGlobal int
	Location  *time.Location
}

const defaultMax = 8

var numberRe = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?%|[-+]?\d{1,3}(?:,\d{3})+(?:\.\d+)?|[-+]?\d+(?:\.\d+)?`)

// Digest renders the full markdown digest: a per-region top-N list with
// one-line summaries and key numbers, fixed follow-up bullets and a
// source status section when any source failed.
func Digest(res *collect.Result, opts Options) string {
	if opts.MaxTaiwan <= 0 {
		opts.MaxTaiwan = defaultMax
	}
	if opts.MaxGlobal <= 0 {
		opts.MaxGlobal = defaultMax
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	now := res.GeneratedAt.In(loc).Format("2006/01/02 15:04")
	fmt.Fprintf(&b, "【財經新聞快報｜台灣＋國際】%s（回顧近 %g 小時｜RSS 去重）\n\n", now, res.WindowHours)

	writeSection(&b, fmt.Sprintf("## 台灣（最多 %d 則）", opts.MaxTaiwan),
		regionItems(res, sources.RegionTaiwan), opts.MaxTaiwan)
	writeSection(&b, fmt.Sprintf("## 國際（最多 %d 則）", opts.MaxGlobal),
		regionItems(res, sources.RegionGlobal), opts.MaxGlobal)

	b.WriteString("---\n")
	b.WriteString("### 今日主軸（3 點）\n")
	b.WriteString("- AI/科技股估值與資本支出（CAPEX）敘事持續牽動風險偏好。\n")
	b.WriteString("- 油價/地緣風險與利率路徑預期，仍是宏觀擾動來源。\n")
	b.WriteString("- 低軌衛星＋光通訊/雷射（矽光子/CPO）相關新聞若出現，優先追蹤。\n")
	b.WriteString("\n### 需要追蹤的事件（3 點）\n")
	b.WriteString("- 重大財報/法說：指引是否下修或資本支出是否轉向。\n")
	b.WriteString("- 美債殖利率/美元：是否出現方向性波動（影響成長股估值）。\n")
	b.WriteString("- 產業題材：低軌衛星與光通訊鏈的訂單/投資/供應瓶頸訊號。\n")

	writeErrors(&b, res)
	return b.String()
}

func regionItems(res *collect.Result, name string) []news.Item {
	if r, ok := res.Regions[name]; ok {
		return r.Items
	}
	return nil
}

func writeSection(b *strings.Builder, heading string, items []news.Item, max int) {
	b.WriteString(heading + "\n")
	for i, it := range pick(items, max) {
		summary := oneLine(StripHTML(it.RawSummary), 90)
		fmt.Fprintf(b, "%d) **%s**\n", i+1, strings.TrimSpace(it.Title))
		if summary == "" {
			summary = "（摘要缺）"
		}
		numbers := keyNumbers(it.Title + " " + summary)
		if len(numbers) > 0 {
			fmt.Fprintf(b, "- 重點：%s；關鍵數字：%s\n", summary, strings.Join(numbers, ", "))
		} else {
			fmt.Fprintf(b, "- 重點：%s\n", summary)
		}
		fmt.Fprintf(b, "- 原文：[link](%s)｜來源：%s\n\n", it.Link, it.Source)
	}
}

func writeErrors(b *strings.Builder, res *collect.Result) {
	var errs []collect.SourceError
	for _, name := range []string{sources.RegionTaiwan, sources.RegionGlobal} {
		if r, ok := res.Regions[name]; ok {
			errs = append(errs, r.Errors...)
		}
	}
	if len(errs) == 0 {
		return
	}
	b.WriteString("\n### 資料來源狀態\n")
	for i, e := range errs {
		if i >= 10 {
			break
		}
		fmt.Fprintf(b, "- %s: %s\n", e.Source, e.Error)
	}
}

// pick returns the top n items by (published_at, weight) descending.
func pick(items []news.Item, n int) []news.Item {
	sorted := make([]news.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.Weight > b.Weight
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// StripHTML extracts the text content of a summary that may carry HTML
// markup. On unparsable input the raw string is returned as-is.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}

// oneLine collapses a summary to its first line, capped at limit runes.
func oneLine(s string, limit int) string {
	s = strings.ReplaceAll(s, "　", " ")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > limit {
		s = string(runes[:limit]) + "…"
	}
	return s
}

// keyNumbers pulls up to four distinct number-like tokens out of the
// headline and summary (percentages, comma-grouped and plain figures).
func keyNumbers(text string) []string {
	var out []string
	for _, m := range numberRe.FindAllString(text, -1) {
		if contains(out, m) {
			continue
		}
		out = append(out, m)
		if len(out) == 4 {
			break
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
