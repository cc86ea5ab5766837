// Package policy decides how much document text to acquire per entry and
// produces the final score, label and excerpt. The RSS-only score is always
// computed first since it needs no network, deeper policies re-score with
// progressively more text and degrade to the cheaper rung on any failure.
package policy

import (
	"context"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/radar/pkg/content"
	"github.com/umputun/radar/pkg/domain"
	"github.com/umputun/radar/pkg/score"
)

//go:generate moq -out mocks/extractor.go -pkg mocks -skip-ensure -fmt goimports . Extractor

// Extractor fetches an article page and returns its main text
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Engine evaluates entries against their source's declared policy
type Engine struct {
	extractor     Extractor
	mode          string
	watch         int
	red           int
	fullTextScope string
}

// Params holds classification parameters shared by all sources
type Params struct {
	Mode           string
	WatchThreshold int
	RedThreshold   int
	FullTextScope  string
}

// Outcome is the final decision for one entry
type Outcome struct {
	Result     score.Result
	Label      score.Label
	PolicyUsed domain.Policy
	Excerpt    string
}

// Input is the entry material the engine works on. Summary must already be
// plain text, markup stripping is the caller's concern.
type Input struct {
	Title   string
	Summary string
	Link    string

	Keywords     []score.Keyword
	ContextRules []score.ContextRule
}

const (
	leadParagraphs = 3
	summaryExcerpt = 1200
	fullExcerpt    = 2500
)

// NewEngine creates a policy engine using the given extractor for article fetches
func NewEngine(extractor Extractor, params Params) *Engine {
	return &Engine{
		extractor:     extractor,
		mode:          params.Mode,
		watch:         params.WatchThreshold,
		red:           params.RedThreshold,
		fullTextScope: strings.ToUpper(strings.TrimSpace(params.FullTextScope)),
	}
}

// Evaluate runs the declared policy for one entry. Extraction failures never
// propagate, the entry degrades to the cheapest policy instead.
func (e *Engine) Evaluate(ctx context.Context, declared domain.Policy, in Input) Outcome {
	// the cheap base line, also the fallback for every failure below
	rssOut := e.rssOnly(in)

	switch declared {
	case domain.PolicyLead3:
		return e.lead3(ctx, in, rssOut)
	case domain.PolicyFullText:
		return e.fullText(ctx, in, rssOut)
	}
	return rssOut
}

// rssOnly scores feed title+summary without any network fetch
func (e *Engine) rssOnly(in Input) Outcome {
	res := score.Score(in.Title, in.Summary, "", in.Keywords, in.ContextRules, e.mode)
	return Outcome{
		Result:     res,
		Label:      score.Classify(res.Score, e.watch, e.red),
		PolicyUsed: domain.PolicyRSSOnly,
		Excerpt:    content.Truncate(in.Summary, summaryExcerpt),
	}
}

// lead3 re-scores with the first paragraphs of the article page
func (e *Engine) lead3(ctx context.Context, in Input, fallback Outcome) Outcome {
	lead, ok := e.fetchLead(ctx, in.Link)
	if !ok {
		return fallback
	}

	res := score.Score(in.Title, in.Summary, lead, in.Keywords, in.ContextRules, e.mode)
	out := Outcome{
		Result:     res,
		Label:      score.Classify(res.Score, e.watch, e.red),
		PolicyUsed: domain.PolicyLead3,
		Excerpt:    lead,
	}
	if out.Excerpt == "" {
		out.Excerpt = fallback.Excerpt
	}
	return out
}

// fullText scores the lead first and promotes to full-text scoring only when
// the escalation scope allows it, bounding extraction cost to the items that
// matter
func (e *Engine) fullText(ctx context.Context, in Input, fallback Outcome) Outcome {
	text, err := e.extractor.Extract(ctx, in.Link)
	if err != nil || text == "" {
		if err != nil {
			lgr.Printf("[WARN] article extract failed for %s, degrading to RSS_ONLY: %v", in.Link, err)
		}
		return fallback
	}

	lead := content.LeadParagraphs(text, leadParagraphs)
	leadRes := score.Score(in.Title, in.Summary, lead, in.Keywords, in.ContextRules, e.mode)
	leadLabel := score.Classify(leadRes.Score, e.watch, e.red)

	if e.fullTextScope != "ALL" && leadLabel != score.LabelRed {
		// not worth the full-text pass, report what we actually used
		out := Outcome{
			Result:     leadRes,
			Label:      leadLabel,
			PolicyUsed: domain.PolicyLead3,
			Excerpt:    lead,
		}
		if out.Excerpt == "" {
			out.Excerpt = fallback.Excerpt
		}
		return out
	}

	res := score.Score(in.Title, in.Summary, text, in.Keywords, in.ContextRules, e.mode)
	return Outcome{
		Result:     res,
		Label:      score.Classify(res.Score, e.watch, e.red),
		PolicyUsed: domain.PolicyFullText,
		Excerpt:    content.Truncate(text, fullExcerpt),
	}
}

// fetchLead extracts the article and reduces it to its lead paragraphs
func (e *Engine) fetchLead(ctx context.Context, link string) (string, bool) {
	if link == "" {
		return "", false
	}
	text, err := e.extractor.Extract(ctx, link)
	if err != nil || text == "" {
		if err != nil {
			lgr.Printf("[WARN] article extract failed for %s, degrading to RSS_ONLY: %v", link, err)
		}
		return "", false
	}
	return content.LeadParagraphs(text, leadParagraphs), true
}
