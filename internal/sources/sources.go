// Package sources loads the two-region feed source configuration and
// resolves each source definition to a fetchable URL.
package sources

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultThreshold is used when the config carries no title similarity rule.
const DefaultThreshold = 0.9

// Region names as they appear in the output document.
const (
	RegionTaiwan = "taiwan"
	RegionGlobal = "global"
)

// Source is a single configured feed. Loaded once per run, immutable
// afterwards.
type Source struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	URL         string   `yaml:"url"`
	URLTemplate string   `yaml:"url_template"`
	Query       string   `yaml:"query"`
	Language    string   `yaml:"language"`
	Weight      float64  `yaml:"weight"`
	Tags        []string `yaml:"tags"`
}

// Region is an ordered group of sources sharing one dedup pass.
type Region struct {
	Name    string
	Sources []Source
}

// Registry holds the resolved source groups and dedup settings for a run.
type Registry struct {
	Regions   []Region
	Threshold float64
}

// ConfigError marks configuration problems: unsupported source types,
// sources with no resolvable URL, unreadable config files.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

type dedupRule struct {
	Type      string  `yaml:"type"`
	Threshold float64 `yaml:"threshold"`
}

type fileConfig struct {
	Taiwan        yaml.Node `yaml:"taiwan"`
	GlobalMarkets yaml.Node `yaml:"global_markets"`
	Global        struct {
		Deduplication struct {
			Rules []dedupRule `yaml:"rules"`
		} `yaml:"deduplication"`
	} `yaml:"global"`
}

// Load reads the YAML source configuration. A file that cannot be read
// or parsed is fatal: without it there is no valid source list.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configErrorf("read sources config: %v", err)
	}
	return Parse(data)
}

// Parse builds a Registry from raw YAML config bytes.
func Parse(data []byte) (*Registry, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, configErrorf("parse sources config: %v", err)
	}

	taiwan, err := readGroup(&cfg.Taiwan)
	if err != nil {
		return nil, err
	}
	global, err := readGroup(&cfg.GlobalMarkets)
	if err != nil {
		return nil, err
	}

	return &Registry{
		Regions: []Region{
			{Name: RegionTaiwan, Sources: taiwan},
			{Name: RegionGlobal, Sources: global},
		},
		Threshold: threshold(cfg.Global.Deduplication.Rules),
	}, nil
}

// readGroup walks a region block (tier name -> {sources: [...]}) keeping
// the document order of tiers and sources. Go maps would randomize tier
// order, so the block is traversed as a yaml.Node.
func readGroup(block *yaml.Node) ([]Source, error) {
	if block.IsZero() {
		return nil, nil
	}
	if block.Kind != yaml.MappingNode {
		return nil, configErrorf("region block must be a mapping of tiers, got %s", nodeKind(block))
	}

	var out []Source
	// Mapping content alternates key, value.
	for i := 0; i+1 < len(block.Content); i += 2 {
		tier := block.Content[i+1]
		if tier.Kind != yaml.MappingNode {
			continue
		}
		var t struct {
			Sources []Source `yaml:"sources"`
		}
		if err := tier.Decode(&t); err != nil {
			return nil, configErrorf("parse tier %q: %v", block.Content[i].Value, err)
		}
		for _, s := range t.Sources {
			if s.Weight == 0 {
				s.Weight = 1.0
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.MappingNode:
		return "mapping"
	default:
		return "unknown"
	}
}

// threshold picks the title similarity threshold out of the dedup rules.
func threshold(rules []dedupRule) float64 {
	for _, r := range rules {
		if r.Type == "title_similarity" && r.Threshold > 0 {
			return r.Threshold
		}
	}
	return DefaultThreshold
}

// ResolveURL returns the fetchable URL for a source: a direct url wins,
// otherwise the URL-encoded query is substituted into url_template.
func ResolveURL(s Source) (string, error) {
	if s.Type != "rss" {
		return "", configErrorf("unsupported source type: %s", s.Type)
	}
	if s.URL != "" {
		return s.URL, nil
	}
	if s.URLTemplate != "" && s.Query != "" {
		// Percent-encode, not form-encode: feeds want %20 rather than +.
		q := strings.ReplaceAll(url.QueryEscape(s.Query), "+", "%20")
		return strings.ReplaceAll(s.URLTemplate, "{query}", q), nil
	}
	return "", configErrorf("source %s missing url or url_template", s.ID)
}
