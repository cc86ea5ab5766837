package domain

import (
	"strings"

	"github.com/umputun/radar/pkg/score"
)

// Policy is the declared content acquisition depth for a source
type Policy string

// Policies from cheapest to most expensive
const (
	PolicyRSSOnly  Policy = "RSS_ONLY"
	PolicyLead3    Policy = "LEAD_3_PARAGRAPHS"
	PolicyFullText Policy = "FULL_TEXT"
)

// ParsePolicy normalizes a policy string, anything unrecognized degrades to
// the cheapest policy
func ParsePolicy(s string) Policy {
	switch Policy(strings.ToUpper(strings.TrimSpace(s))) {
	case PolicyLead3:
		return PolicyLead3
	case PolicyFullText:
		return PolicyFullText
	}
	return PolicyRSSOnly
}

// Item is a newly seen feed entry after scoring and classification, created
// once per unseen entry per run and kept only in the run's output artifacts
type Item struct {
	Date       string
	SourceID   string
	SourceName string
	Title      string
	Link       string
	Published  string
	Score      int
	Label      score.Label
	PolicyUsed Policy
	Matches    string
	Excerpt    string
}
