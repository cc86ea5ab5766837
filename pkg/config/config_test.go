package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
global:
  mode: aggressive
  full_text_scope: RED
  thresholds:
    watch: 10
    red: 30
  request:
    timeout_sec: 15
    user_agent: "radar/1.0"
    max_feed_items_per_source: 25
  dedupe:
    keep_days: 14
  digest:
    max_items_per_section: 10
sources:
  - id: agency-one
    name: Agency One
    url: https://example.com/rss
    policy: FULL_TEXT
    keywords:
      - term: invasion
        weight: 5
    context_rules:
      - name: state-media
        patterns: [tass, "rt.com"]
        weight: 4
        match: all
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "aggressive", cfg.Global.Mode)
	assert.Equal(t, "RED", cfg.Global.FullTextScope)
	assert.Equal(t, 10, cfg.Global.Thresholds.Watch)
	assert.Equal(t, 30, cfg.Global.Thresholds.Red)
	assert.Equal(t, 15*time.Second, cfg.Global.Request.Timeout)
	assert.Equal(t, "radar/1.0", cfg.Global.Request.UserAgent)
	assert.Equal(t, 25, cfg.Global.Request.MaxFeedItems)
	assert.Equal(t, 14, cfg.Global.Dedupe.KeepDays)
	assert.Equal(t, 10, cfg.Global.Digest.MaxItemsPerSection)

	// defaults for optional keys
	assert.True(t, cfg.Global.Digest.IncludeGreenInMD)
	assert.False(t, cfg.Global.Digest.IncludeGreenInTelegram)
	assert.Equal(t, 4, cfg.Global.MaxWorkers)

	require.Len(t, cfg.Sources, 1)
	src := cfg.Sources[0]
	assert.Equal(t, "agency-one", src.ID)
	assert.Equal(t, "FULL_TEXT", src.Policy)
	require.Len(t, src.Keywords, 1)
	assert.Equal(t, "invasion", src.Keywords[0].Term)
	require.Len(t, src.ContextRules, 1)
	assert.Equal(t, []string{"tass", "rt.com"}, src.ContextRules[0].Patterns)
	assert.Equal(t, "all", src.ContextRules[0].Match)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("no-such-config.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "global: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_MissingRequiredKeys(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantPath string
	}{
		{
			name:     "no global",
			yaml:     "sources: []",
			wantPath: `"global"`,
		},
		{
			name: "no mode",
			yaml: `
global:
  full_text_scope: RED
  thresholds: {watch: 1, red: 2}
  request: {timeout_sec: 10, user_agent: x, max_feed_items_per_source: 5}
  dedupe: {keep_days: 7}
  digest: {max_items_per_section: 5}
sources: []
`,
			wantPath: `"global.mode"`,
		},
		{
			name: "no red threshold",
			yaml: `
global:
  mode: standard
  full_text_scope: RED
  thresholds: {watch: 1}
  request: {timeout_sec: 10, user_agent: x, max_feed_items_per_source: 5}
  dedupe: {keep_days: 7}
  digest: {max_items_per_section: 5}
sources: []
`,
			wantPath: `"global.thresholds.red"`,
		},
		{
			name: "no dedupe keep_days",
			yaml: `
global:
  mode: standard
  full_text_scope: RED
  thresholds: {watch: 1, red: 2}
  request: {timeout_sec: 10, user_agent: x, max_feed_items_per_source: 5}
  dedupe: {}
  digest: {max_items_per_section: 5}
sources: []
`,
			wantPath: `"global.dedupe.keep_days"`,
		},
		{
			name: "source without policy",
			yaml: `
global:
  mode: standard
  full_text_scope: RED
  thresholds: {watch: 1, red: 2}
  request: {timeout_sec: 10, user_agent: x, max_feed_items_per_source: 5}
  dedupe: {keep_days: 7}
  digest: {max_items_per_section: 5}
sources:
  - id: a
    name: A
    url: https://a.example.com/rss
`,
			wantPath: `"sources[0].policy"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "missing required key")
			assert.Contains(t, err.Error(), tt.wantPath)
		})
	}
}

func TestLoad_RedBelowWatchRejected(t *testing.T) {
	yaml := `
global:
  mode: standard
  full_text_scope: RED
  thresholds: {watch: 30, red: 10}
  request: {timeout_sec: 10, user_agent: x, max_feed_items_per_source: 5}
  dedupe: {keep_days: 7}
  digest: {max_items_per_section: 5}
sources: []
`
	_, err := Load(writeConfig(t, yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be >= global.thresholds.watch")
}

func TestLoad_DuplicateSourceID(t *testing.T) {
	yaml := `
global:
  mode: standard
  full_text_scope: RED
  thresholds: {watch: 1, red: 2}
  request: {timeout_sec: 10, user_agent: x, max_feed_items_per_source: 5}
  dedupe: {keep_days: 7}
  digest: {max_items_per_section: 5}
sources:
  - {id: a, name: A, url: "https://a.example.com/rss", policy: RSS_ONLY}
  - {id: a, name: B, url: "https://b.example.com/rss", policy: RSS_ONLY}
`
	_, err := Load(writeConfig(t, yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicated")
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("RADAR_UA", "radar-ua/2.0")
	yaml := `
global:
  mode: standard
  full_text_scope: ALL
  thresholds: {watch: 1, red: 2}
  request: {timeout_sec: 10, user_agent: "${RADAR_UA}", max_feed_items_per_source: 5}
  dedupe: {keep_days: 7}
  digest: {max_items_per_section: 5}
sources: []
`
	cfg, err := Load(writeConfig(t, yaml))
	require.NoError(t, err)
	assert.Equal(t, "radar-ua/2.0", cfg.Global.Request.UserAgent)
}
