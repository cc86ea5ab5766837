package score

import (
	"strings"
)

// Keyword is a single weighted term matched by substring
type Keyword struct {
	Term   string `yaml:"term" json:"term" jsonschema:"required,description=Term matched case-insensitively as a substring"`
	Weight int    `yaml:"weight" json:"weight" jsonschema:"required,minimum=0,description=Score weight per occurrence"`
}

// ContextRule fires as a unit when its patterns match the combined text
type ContextRule struct {
	Name     string   `yaml:"name" json:"name" jsonschema:"required,description=Rule name shown in match evidence"`
	Patterns []string `yaml:"patterns" json:"patterns" jsonschema:"required,description=Substring patterns matched case-insensitively"`
	Weight   int      `yaml:"weight" json:"weight" jsonschema:"required,description=Score added when the rule fires"`
	Match    string   `yaml:"match" json:"match" jsonschema:"default=any,enum=any,enum=all,description=any fires on one pattern hit. all requires every pattern"`
}

// KeywordMatch records a keyword that contributed to the score
type KeywordMatch struct {
	Term   string
	Weight int
	Count  int // total occurrences in title and rest
}

// RuleMatch records a fired context rule and its contribution
type RuleMatch struct {
	Name  string
	Added int
}

// Result is the outcome of a single scoring call, produced fresh each time
type Result struct {
	Score    int
	Keywords []KeywordMatch
	Rules    []RuleMatch
}

// ModeAggressive is the mode string that enables title-boosted scoring
const ModeAggressive = "aggressive"

// titleHitBonus is added once per keyword with at least one title occurrence
// in aggressive mode; capFactor bounds a single keyword's contribution so a
// repeated term cannot dominate the total.
const (
	titleHitBonus = 2
	titleFactor   = 3
	capFactor     = 12
	capBonus      = 3 // extra cap headroom in aggressive mode
)

// Score computes a relevance score for an entry from weighted keywords and
// context rules. Title occurrences are counted separately from the rest so
// aggressive mode can weight them higher. The function is pure: same inputs
// always produce the same Result, and match lists come back unsorted.
func Score(title, summary, body string, keywords []Keyword, rules []ContextRule, mode string) Result {
	aggressive := strings.EqualFold(strings.TrimSpace(mode), ModeAggressive)

	lowTitle := strings.ToLower(title)
	lowRest := strings.ToLower(summary + "\n" + body)

	res := Result{}
	for _, kw := range keywords {
		term := strings.ToLower(strings.TrimSpace(kw.Term))
		if term == "" {
			continue
		}

		cTitle := strings.Count(lowTitle, term)
		cRest := strings.Count(lowRest, term)
		if cTitle+cRest <= 0 {
			continue
		}

		var part int
		if aggressive {
			part = cTitle*kw.Weight*titleFactor + cRest*kw.Weight
			if cTitle > 0 {
				part += titleHitBonus
			}
		} else {
			part = (cTitle + cRest) * kw.Weight
		}

		// cap so one repeated term can't dominate
		limit := kw.Weight * capFactor
		if aggressive {
			limit += capBonus
		}
		if part > limit {
			part = limit
		}

		res.Score += part
		res.Keywords = append(res.Keywords, KeywordMatch{Term: kw.Term, Weight: kw.Weight, Count: cTitle + cRest})
	}

	blob := lowTitle + "\n" + lowRest
	for _, rule := range rules {
		hits := 0
		for _, p := range rule.Patterns {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" && strings.Contains(blob, p) {
				hits++
			}
		}

		fired := hits > 0
		if strings.EqualFold(rule.Match, "all") {
			fired = len(rule.Patterns) > 0 && hits == len(rule.Patterns)
		}
		if !fired {
			continue
		}

		added := rule.Weight
		if aggressive {
			added *= 2
		}
		res.Score += added
		res.Rules = append(res.Rules, RuleMatch{Name: rule.Name, Added: added})
	}

	return res
}
