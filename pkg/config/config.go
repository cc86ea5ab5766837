package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/umputun/radar/pkg/score"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Global  Global   `yaml:"global" json:"global" jsonschema:"required,description=Global scanner settings"`
	Sources []Source `yaml:"sources" json:"sources" jsonschema:"required,description=Monitored feed sources"`
}

// Global holds settings shared by all sources
type Global struct {
	Mode          string `yaml:"mode" json:"mode" jsonschema:"required,description=Scoring mode. aggressive boosts title hits. anything else is standard"`
	FullTextScope string `yaml:"full_text_scope" json:"full_text_scope" jsonschema:"required,enum=RED,enum=ALL,description=Which provisional labels may escalate to full-text scoring"`

	Thresholds struct {
		Watch int `yaml:"watch" json:"watch" jsonschema:"required,minimum=0,description=Minimum score for WATCH"`
		Red   int `yaml:"red" json:"red" jsonschema:"required,minimum=0,description=Minimum score for RED"`
	} `yaml:"thresholds" json:"thresholds" jsonschema:"required,description=Classification thresholds"`

	Request struct {
		Timeout      time.Duration `yaml:"-" json:"-"`
		TimeoutSec   int           `yaml:"timeout_sec" json:"timeout_sec" jsonschema:"required,minimum=1,description=HTTP timeout in seconds"`
		UserAgent    string        `yaml:"user_agent" json:"user_agent" jsonschema:"required,description=User agent for feed and article requests"`
		MaxFeedItems int           `yaml:"max_feed_items_per_source" json:"max_feed_items_per_source" jsonschema:"required,minimum=1,description=Cap on feed entries considered per source"`
	} `yaml:"request" json:"request" jsonschema:"required,description=HTTP request settings"`

	Dedupe struct {
		KeepDays int `yaml:"keep_days" json:"keep_days" jsonschema:"required,minimum=1,description=Days to retain seen entries before pruning"`
	} `yaml:"dedupe" json:"dedupe" jsonschema:"required,description=Deduplication settings"`

	Digest struct {
		MaxItemsPerSection     int  `yaml:"max_items_per_section" json:"max_items_per_section" jsonschema:"required,minimum=1,description=Per-label item cap in the notification digest"`
		IncludeGreenInMD       bool `yaml:"include_green_in_md" json:"include_green_in_md" jsonschema:"default=true,description=Include GREEN items in the markdown digest"`
		IncludeGreenInTelegram bool `yaml:"include_green_in_telegram" json:"include_green_in_telegram" jsonschema:"default=false,description=Include GREEN items in the telegram digest"`
	} `yaml:"digest" json:"digest" jsonschema:"required,description=Digest output settings"`

	MaxWorkers int `yaml:"max_workers" json:"max_workers" jsonschema:"default=4,description=Maximum concurrent source fetches"`
}

// Source is a single monitored feed with its scoring rules
type Source struct {
	ID           string              `yaml:"id" json:"id" jsonschema:"required,description=Stable source identifier used in fingerprints"`
	Name         string              `yaml:"name" json:"name" jsonschema:"required,description=Display name"`
	URL          string              `yaml:"url" json:"url" jsonschema:"required,description=Feed URL"`
	Policy       string              `yaml:"policy" json:"policy" jsonschema:"required,enum=RSS_ONLY,enum=LEAD_3_PARAGRAPHS,enum=FULL_TEXT,description=Content acquisition policy"`
	Keywords     []score.Keyword     `yaml:"keywords" json:"keywords" jsonschema:"description=Weighted keyword rules"`
	ContextRules []score.ContextRule `yaml:"context_rules" json:"context_rules" jsonschema:"description=Contextual pattern rules"`
}

// rawConfig mirrors Config with pointer fields so that absent required keys
// can be told apart from zero values and reported with their full path
type rawConfig struct {
	Global *struct {
		Mode          *string `yaml:"mode"`
		FullTextScope *string `yaml:"full_text_scope"`
		Thresholds    *struct {
			Watch *int `yaml:"watch"`
			Red   *int `yaml:"red"`
		} `yaml:"thresholds"`
		Request *struct {
			TimeoutSec   *int    `yaml:"timeout_sec"`
			UserAgent    *string `yaml:"user_agent"`
			MaxFeedItems *int    `yaml:"max_feed_items_per_source"`
		} `yaml:"request"`
		Dedupe *struct {
			KeepDays *int `yaml:"keep_days"`
		} `yaml:"dedupe"`
		Digest *struct {
			MaxItemsPerSection     *int  `yaml:"max_items_per_section"`
			IncludeGreenInMD       *bool `yaml:"include_green_in_md"`
			IncludeGreenInTelegram *bool `yaml:"include_green_in_telegram"`
		} `yaml:"digest"`
		MaxWorkers *int `yaml:"max_workers"`
	} `yaml:"global"`
	Sources []struct {
		ID           *string             `yaml:"id"`
		Name         *string             `yaml:"name"`
		URL          *string             `yaml:"url"`
		Policy       *string             `yaml:"policy"`
		Keywords     []score.Keyword     `yaml:"keywords"`
		ContextRules []score.ContextRule `yaml:"context_rules"`
	} `yaml:"sources"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := build(&raw)
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// build converts the raw pointer document into the typed config, failing on
// the first missing required key with its full path
func build(raw *rawConfig) (*Config, error) {
	missing := func(path string) error { return fmt.Errorf("missing required key %q", path) }

	g := raw.Global
	if g == nil {
		return nil, missing("global")
	}

	switch {
	case g.Mode == nil:
		return nil, missing("global.mode")
	case g.FullTextScope == nil:
		return nil, missing("global.full_text_scope")
	case g.Thresholds == nil:
		return nil, missing("global.thresholds")
	case g.Thresholds.Watch == nil:
		return nil, missing("global.thresholds.watch")
	case g.Thresholds.Red == nil:
		return nil, missing("global.thresholds.red")
	case g.Request == nil:
		return nil, missing("global.request")
	case g.Request.TimeoutSec == nil:
		return nil, missing("global.request.timeout_sec")
	case g.Request.UserAgent == nil:
		return nil, missing("global.request.user_agent")
	case g.Request.MaxFeedItems == nil:
		return nil, missing("global.request.max_feed_items_per_source")
	case g.Dedupe == nil:
		return nil, missing("global.dedupe")
	case g.Dedupe.KeepDays == nil:
		return nil, missing("global.dedupe.keep_days")
	case g.Digest == nil:
		return nil, missing("global.digest")
	case g.Digest.MaxItemsPerSection == nil:
		return nil, missing("global.digest.max_items_per_section")
	}

	var cfg Config
	cfg.Global.Mode = *g.Mode
	cfg.Global.FullTextScope = *g.FullTextScope
	cfg.Global.Thresholds.Watch = *g.Thresholds.Watch
	cfg.Global.Thresholds.Red = *g.Thresholds.Red
	cfg.Global.Request.TimeoutSec = *g.Request.TimeoutSec
	cfg.Global.Request.Timeout = time.Duration(*g.Request.TimeoutSec) * time.Second
	cfg.Global.Request.UserAgent = *g.Request.UserAgent
	cfg.Global.Request.MaxFeedItems = *g.Request.MaxFeedItems
	cfg.Global.Dedupe.KeepDays = *g.Dedupe.KeepDays
	cfg.Global.Digest.MaxItemsPerSection = *g.Digest.MaxItemsPerSection

	// optional keys with defaults
	cfg.Global.Digest.IncludeGreenInMD = true
	if g.Digest.IncludeGreenInMD != nil {
		cfg.Global.Digest.IncludeGreenInMD = *g.Digest.IncludeGreenInMD
	}
	if g.Digest.IncludeGreenInTelegram != nil {
		cfg.Global.Digest.IncludeGreenInTelegram = *g.Digest.IncludeGreenInTelegram
	}
	cfg.Global.MaxWorkers = 4
	if g.MaxWorkers != nil {
		cfg.Global.MaxWorkers = *g.MaxWorkers
	}

	if raw.Sources == nil {
		return nil, missing("sources")
	}
	for i, s := range raw.Sources {
		ctx := fmt.Sprintf("sources[%d]", i)
		switch {
		case s.ID == nil:
			return nil, missing(ctx + ".id")
		case s.Name == nil:
			return nil, missing(ctx + ".name")
		case s.URL == nil:
			return nil, missing(ctx + ".url")
		case s.Policy == nil:
			return nil, missing(ctx + ".policy")
		}
		cfg.Sources = append(cfg.Sources, Source{
			ID:           *s.ID,
			Name:         *s.Name,
			URL:          *s.URL,
			Policy:       *s.Policy,
			Keywords:     s.Keywords,
			ContextRules: s.ContextRules,
		})
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Global.Thresholds.Watch < 0 || cfg.Global.Thresholds.Red < 0 {
		return fmt.Errorf("global.thresholds must be non-negative")
	}
	if cfg.Global.Thresholds.Red < cfg.Global.Thresholds.Watch {
		return fmt.Errorf("global.thresholds.red (%d) must be >= global.thresholds.watch (%d)",
			cfg.Global.Thresholds.Red, cfg.Global.Thresholds.Watch)
	}
	if cfg.Global.Request.Timeout < time.Second {
		return fmt.Errorf("global.request.timeout_sec must be at least 1")
	}
	if cfg.Global.Dedupe.KeepDays < 1 {
		return fmt.Errorf("global.dedupe.keep_days must be at least 1")
	}
	if cfg.Global.Request.MaxFeedItems < 1 {
		return fmt.Errorf("global.request.max_feed_items_per_source must be at least 1")
	}
	if cfg.Global.Digest.MaxItemsPerSection < 1 {
		return fmt.Errorf("global.digest.max_items_per_section must be at least 1")
	}
	if cfg.Global.MaxWorkers < 1 {
		return fmt.Errorf("global.max_workers must be at least 1")
	}

	seen := map[string]bool{}
	for i, s := range cfg.Sources {
		if s.ID == "" {
			return fmt.Errorf("sources[%d].id must not be empty", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("sources[%d].id %q is duplicated", i, s.ID)
		}
		seen[s.ID] = true
		for j, kw := range s.Keywords {
			if kw.Weight < 0 {
				return fmt.Errorf("sources[%d].keywords[%d].weight must be non-negative", i, j)
			}
		}
	}

	return nil
}
