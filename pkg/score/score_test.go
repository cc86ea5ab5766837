package score

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_Keywords(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		summary   string
		body      string
		keywords  []Keyword
		mode      string
		wantScore int
	}{
		{
			name:      "aggressive title hit counted triple plus bonus",
			title:     "invasion imminent, second invasion feared",
			keywords:  []Keyword{{Term: "invasion", Weight: 5}},
			mode:      "aggressive",
			wantScore: 2*5*3 + 2, // two title hits, no rest hits
		},
		{
			name:      "standard mode flat weight",
			title:     "invasion imminent",
			summary:   "another invasion report",
			keywords:  []Keyword{{Term: "invasion", Weight: 5}},
			mode:      "standard",
			wantScore: 2 * 5,
		},
		{
			name:      "mode string is case-insensitive",
			title:     "invasion",
			keywords:  []Keyword{{Term: "invasion", Weight: 5}},
			mode:      "AGGRESSIVE",
			wantScore: 1*5*3 + 2,
		},
		{
			name:      "unknown mode falls back to standard",
			title:     "invasion",
			keywords:  []Keyword{{Term: "invasion", Weight: 5}},
			mode:      "paranoid",
			wantScore: 5,
		},
		{
			name:      "no occurrences no score",
			title:     "quiet day",
			summary:   "nothing happened",
			keywords:  []Keyword{{Term: "invasion", Weight: 5}},
			mode:      "aggressive",
			wantScore: 0,
		},
		{
			name:      "empty term skipped",
			title:     "anything",
			keywords:  []Keyword{{Term: "  ", Weight: 100}},
			mode:      "aggressive",
			wantScore: 0,
		},
		{
			name:      "matching is case-insensitive",
			title:     "INVASION",
			keywords:  []Keyword{{Term: "invasion", Weight: 3}},
			mode:      "standard",
			wantScore: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score(tt.title, tt.summary, tt.body, tt.keywords, nil, tt.mode)
			assert.Equal(t, tt.wantScore, res.Score)
		})
	}
}

func TestScore_CapEnforced(t *testing.T) {
	// artificially repeated term must be bounded by weight*12 (+3 aggressive)
	body := strings.Repeat("invasion ", 1000)

	res := Score("", "", body, []Keyword{{Term: "invasion", Weight: 5}}, nil, "standard")
	assert.Equal(t, 5*12, res.Score)

	res = Score("", "", body, []Keyword{{Term: "invasion", Weight: 5}}, nil, "aggressive")
	assert.Equal(t, 5*12+3, res.Score)

	require.Len(t, res.Keywords, 1)
	assert.Equal(t, 1000, res.Keywords[0].Count)
}

func TestScore_AggressiveNotBelowStandard(t *testing.T) {
	// aggressive contribution must never be below standard for a title hit
	titles := []string{"invasion", "invasion invasion", "war of invasion stories"}
	for _, title := range titles {
		std := Score(title, "some invasion text", "", []Keyword{{Term: "invasion", Weight: 4}}, nil, "standard")
		agg := Score(title, "some invasion text", "", []Keyword{{Term: "invasion", Weight: 4}}, nil, "aggressive")
		assert.GreaterOrEqual(t, agg.Score, std.Score, "title: %s", title)
	}
}

func TestScore_ContextRules(t *testing.T) {
	tests := []struct {
		name      string
		blob      string
		rule      ContextRule
		mode      string
		wantScore int
		wantFired bool
	}{
		{
			name:      "any fires on single pattern",
			blob:      "report sourced from tass agency",
			rule:      ContextRule{Name: "state-media", Patterns: []string{"tass", "rt.com"}, Weight: 4, Match: "any"},
			mode:      "standard",
			wantScore: 4,
			wantFired: true,
		},
		{
			name:      "all requires every pattern",
			blob:      "report sourced from tass agency",
			rule:      ContextRule{Name: "state-media", Patterns: []string{"tass", "rt.com"}, Weight: 4, Match: "all"},
			mode:      "standard",
			wantScore: 0,
		},
		{
			name:      "all fires when every pattern present",
			blob:      "tass and rt.com both cited",
			rule:      ContextRule{Name: "state-media", Patterns: []string{"tass", "rt.com"}, Weight: 4, Match: "all"},
			mode:      "standard",
			wantScore: 4,
			wantFired: true,
		},
		{
			name:      "aggressive doubles rule weight",
			blob:      "tass cited",
			rule:      ContextRule{Name: "state-media", Patterns: []string{"tass"}, Weight: 4, Match: "any"},
			mode:      "aggressive",
			wantScore: 8,
			wantFired: true,
		},
		{
			name:      "all with no patterns never fires",
			blob:      "anything",
			rule:      ContextRule{Name: "empty", Patterns: nil, Weight: 4, Match: "all"},
			mode:      "standard",
			wantScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score("", tt.blob, "", nil, []ContextRule{tt.rule}, tt.mode)
			assert.Equal(t, tt.wantScore, res.Score)
			if tt.wantFired {
				require.Len(t, res.Rules, 1)
				assert.Equal(t, tt.rule.Name, res.Rules[0].Name)
				assert.Equal(t, tt.wantScore, res.Rules[0].Added)
			} else {
				assert.Empty(t, res.Rules)
			}
		})
	}
}

func TestScore_RuleMatchesTitle(t *testing.T) {
	// context patterns search title as well as summary and body
	res := Score("tass reports victory", "", "", nil,
		[]ContextRule{{Name: "state-media", Patterns: []string{"tass"}, Weight: 4, Match: "any"}}, "standard")
	assert.Equal(t, 4, res.Score)
}

func TestScore_EmptyInputs(t *testing.T) {
	res := Score("", "", "", nil, nil, "aggressive")
	assert.Equal(t, 0, res.Score)
	assert.Empty(t, res.Keywords)
	assert.Empty(t, res.Rules)
}

func TestScore_Deterministic(t *testing.T) {
	kws := []Keyword{{Term: "invasion", Weight: 5}, {Term: "front", Weight: 2}}
	rules := []ContextRule{{Name: "state-media", Patterns: []string{"tass"}, Weight: 4, Match: "any"}}

	a := Score("invasion at the front", "tass says", "", kws, rules, "aggressive")
	b := Score("invasion at the front", "tass says", "", kws, rules, "aggressive")
	assert.Equal(t, a, b)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		score int
		watch int
		red   int
		want  Label
	}{
		{score: 30, watch: 10, red: 30, want: LabelRed},
		{score: 29, watch: 10, red: 30, want: LabelWatch},
		{score: 10, watch: 10, red: 30, want: LabelWatch},
		{score: 9, watch: 10, red: 30, want: LabelGreen},
		{score: 0, watch: 0, red: 0, want: LabelRed}, // zero thresholds, everything is red
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score, tt.watch, tt.red))
	}
}

func TestLabel_Rank(t *testing.T) {
	assert.Less(t, LabelRed.Rank(), LabelWatch.Rank())
	assert.Less(t, LabelWatch.Rank(), LabelGreen.Rank())
	assert.Greater(t, Label("BOGUS").Rank(), LabelGreen.Rank())
}
