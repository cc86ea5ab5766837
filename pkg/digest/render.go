// Package digest renders run results: the daily markdown file and the
// size-bounded notification message.
package digest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/umputun/radar/pkg/domain"
	"github.com/umputun/radar/pkg/score"
)

// Markdown renders the daily digest file, grouped by label with RED first.
// GREEN items are included only when includeGreen is set.
func Markdown(date string, items []domain.Item, includeGreen bool) string {
	red := byLabel(items, score.LabelRed)
	watch := byLabel(items, score.LabelWatch)
	green := byLabel(items, score.LabelGreen)

	var b strings.Builder
	fmt.Fprintf(&b, "# Propaganda Radar Daily — %s\n\n", date)
	fmt.Fprintf(&b, "- Generated: %s\n", time.Now().UTC().Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "- New Items: %d | RED: %d | WATCH: %d | GREEN: %d\n\n", len(items), len(red), len(watch), len(green))

	section(&b, "🔴 RED", red)
	section(&b, "🟠 WATCH", watch)
	if includeGreen {
		section(&b, "🟢 GREEN", green)
	}
	return b.String()
}

func section(b *strings.Builder, title string, items []domain.Item) {
	fmt.Fprintf(b, "## %s (%d)\n\n", title, len(items))
	for i, it := range items {
		fmt.Fprintf(b, "### %d. [%s](%s)\n", i+1, orNoTitle(it.Title), it.Link)
		fmt.Fprintf(b, "- Source: **%s** (`%s`)\n", it.SourceName, it.SourceID)
		if it.Published != "" {
			fmt.Fprintf(b, "- Published: %s\n", it.Published)
		}
		fmt.Fprintf(b, "- Policy Used: `%s` | Score: **%d** | Label: **%s**\n", it.PolicyUsed, it.Score, it.Label)
		if it.Matches != "" {
			fmt.Fprintf(b, "- Matches: %s\n", it.Matches)
		}
		b.WriteString("\n")
		if it.Excerpt != "" {
			fmt.Fprintf(b, "**Excerpt**\n\n%s\n\n", it.Excerpt)
		}
		b.WriteString("---\n\n")
	}
}

func orNoTitle(title string) string {
	if title == "" {
		return "(no title)"
	}
	return title
}

func byLabel(items []domain.Item, label score.Label) []domain.Item {
	var out []domain.Item
	for _, it := range items {
		if it.Label == label {
			out = append(out, it)
		}
	}
	return out
}

// CompactMatches builds the one-line match evidence for an item: the top
// keywords by weight then occurrence count, and the top fired rules by
// contribution, at most five of each.
func CompactMatches(res score.Result) string {
	const top = 5
	var parts []string

	if len(res.Keywords) > 0 {
		kws := make([]score.KeywordMatch, len(res.Keywords))
		copy(kws, res.Keywords)
		sort.SliceStable(kws, func(i, j int) bool {
			if kws[i].Weight != kws[j].Weight {
				return kws[i].Weight > kws[j].Weight
			}
			return kws[i].Count > kws[j].Count
		})
		if len(kws) > top {
			kws = kws[:top]
		}
		formatted := make([]string, len(kws))
		for i, kw := range kws {
			formatted[i] = fmt.Sprintf("%s*%d(%d)", kw.Term, kw.Weight, kw.Count)
		}
		parts = append(parts, "KW: "+strings.Join(formatted, ", "))
	}

	if len(res.Rules) > 0 {
		rules := make([]score.RuleMatch, len(res.Rules))
		copy(rules, res.Rules)
		sort.SliceStable(rules, func(i, j int) bool { return rules[i].Added > rules[j].Added })
		if len(rules) > top {
			rules = rules[:top]
		}
		formatted := make([]string, len(rules))
		for i, r := range rules {
			formatted[i] = fmt.Sprintf("%s(+%d)", r.Name, r.Added)
		}
		parts = append(parts, "CTX: "+strings.Join(formatted, ", "))
	}

	return strings.Join(parts, " | ")
}
