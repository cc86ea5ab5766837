// Package proc runs one full scan: fetch every configured source, score the
// unseen entries, write the daily digest and optionally push a notification.
// Source failures are isolated, one broken feed never fails the run.
package proc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/radar/pkg/config"
	"github.com/umputun/radar/pkg/content"
	"github.com/umputun/radar/pkg/digest"
	"github.com/umputun/radar/pkg/domain"
	"github.com/umputun/radar/pkg/feed"
	"github.com/umputun/radar/pkg/policy"
	"github.com/umputun/radar/pkg/state"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher
//go:generate moq -out mocks/evaluator.go -pkg mocks -skip-ensure -fmt goimports . Evaluator
//go:generate moq -out mocks/notifier.go -pkg mocks -skip-ensure -fmt goimports . Notifier

// Fetcher retrieves and parses a feed
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]feed.Entry, error)
}

// Evaluator applies a source's content policy to one entry
type Evaluator interface {
	Evaluate(ctx context.Context, declared domain.Policy, in policy.Input) policy.Outcome
}

// Notifier delivers the digest message
type Notifier interface {
	Enabled() bool
	Send(ctx context.Context, text string) error
}

// metadata snapshot limits for the dedup store
const (
	metaTitleLimit = 200
	metaLinkLimit  = 500
)

// Processor orchestrates a single run
type Processor struct {
	cfg       *config.Config
	fetcher   Fetcher
	evaluator Evaluator
	notifier  Notifier
	store     *state.Store

	statePath string
	outDir    string
	notify    bool

	now func() time.Time // injectable for tests
}

// Params holds everything a Processor needs
type Params struct {
	Config    *config.Config
	Fetcher   Fetcher
	Evaluator Evaluator
	Notifier  Notifier
	Store     *state.Store
	StatePath string
	OutDir    string
	Notify    bool
}

// Result summarizes a completed run
type Result struct {
	Date       string
	NewItems   int
	Pruned     int
	OutputFile string
	Notified   bool
}

// New creates a run processor
func New(p Params) *Processor {
	return &Processor{
		cfg:       p.Config,
		fetcher:   p.Fetcher,
		evaluator: p.Evaluator,
		notifier:  p.Notifier,
		store:     p.Store,
		statePath: p.StatePath,
		outDir:    p.OutDir,
		notify:    p.Notify,
		now:       time.Now,
	}
}

// Run executes the whole pass for the given date (empty means UTC today).
// Persistence failures are logged and recovered locally, every remaining
// stage is still attempted and the run itself still succeeds; only the
// caller's configuration loading can fail a run before it starts.
func (p *Processor) Run(ctx context.Context, date string) (Result, error) {
	if date == "" {
		date = p.now().UTC().Format("2006-01-02")
	}
	res := Result{Date: date}

	res.Pruned = p.store.Prune(p.cfg.Global.Dedupe.KeepDays)
	lgr.Printf("[INFO] pruned %d expired dedup records", res.Pruned)

	items := p.collect(ctx, date)
	res.NewItems = len(items)
	lgr.Printf("[INFO] %d new items across %d sources", len(items), len(p.cfg.Sources))

	res.OutputFile = filepath.Join(p.outDir, fmt.Sprintf("daily_%s.md", date))
	if err := p.writeDigest(res.OutputFile, date, items); err != nil {
		lgr.Printf("[ERROR] can't write daily digest: %v", err)
	}

	if err := p.store.Save(p.statePath); err != nil {
		lgr.Printf("[ERROR] can't save state: %v", err)
	}

	res.Notified = p.sendNotification(ctx, date, items)
	return res, nil
}

// collect fetches all sources concurrently and returns the scored new items
// sorted by severity. Per-source results are kept in configuration order so
// the final stable sort breaks score ties by discovery order, independent of
// fetch completion order.
func (p *Processor) collect(ctx context.Context, date string) []domain.Item {
	perSource := make([][]domain.Item, len(p.cfg.Sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Global.MaxWorkers)

	for i, src := range p.cfg.Sources {
		g.Go(func() error {
			perSource[i] = p.processSource(gctx, date, src)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, failures are logged and skipped

	var items []domain.Item
	for _, batch := range perSource {
		items = append(items, batch...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Label.Rank() != items[j].Label.Rank() {
			return items[i].Label.Rank() < items[j].Label.Rank()
		}
		return items[i].Score > items[j].Score
	})
	return items
}

// processSource fetches one feed and scores its unseen entries
func (p *Processor) processSource(ctx context.Context, date string, src config.Source) []domain.Item {
	lgr.Printf("[INFO] fetching feed %s (%s)", src.ID, src.URL)

	entries, err := p.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		lgr.Printf("[ERROR] feed fetch failed for %s: %v", src.ID, err)
		return nil
	}

	if limit := p.cfg.Global.Request.MaxFeedItems; len(entries) > limit {
		entries = entries[:limit]
	}

	declared := domain.ParsePolicy(src.Policy)
	var items []domain.Item

	for _, entry := range entries {
		fp := state.Fingerprint(src.ID, entry.GUID, entry.Link, entry.Title)
		if p.store.IsSeen(fp) {
			p.store.Touch(fp)
			continue
		}

		item := p.processEntry(ctx, date, src, declared, entry)

		p.store.MarkSeen(fp, state.Meta{
			Date:     date,
			SourceID: src.ID,
			Title:    content.Truncate(item.Title, metaTitleLimit),
			Link:     content.Truncate(item.Link, metaLinkLimit),
			Label:    string(item.Label),
			Score:    item.Score,
		})
		items = append(items, item)
	}
	return items
}

// processEntry scores a single unseen entry under the source's policy
func (p *Processor) processEntry(ctx context.Context, date string, src config.Source, declared domain.Policy, entry feed.Entry) domain.Item {
	out := p.evaluator.Evaluate(ctx, declared, policy.Input{
		Title:        entry.Title,
		Summary:      content.StripHTML(entry.Summary),
		Link:         entry.Link,
		Keywords:     src.Keywords,
		ContextRules: src.ContextRules,
	})

	title := entry.Title
	if title == "" {
		title = "(no title)"
	}

	return domain.Item{
		Date:       date,
		SourceID:   src.ID,
		SourceName: src.Name,
		Title:      title,
		Link:       entry.Link,
		Published:  entry.Published,
		Score:      out.Result.Score,
		Label:      out.Label,
		PolicyUsed: out.PolicyUsed,
		Matches:    digest.CompactMatches(out.Result),
		Excerpt:    out.Excerpt,
	}
}

// writeDigest renders the markdown digest and writes it under the output dir
func (p *Processor) writeDigest(path, date string, items []domain.Item) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	md := digest.Markdown(date, items, p.cfg.Global.Digest.IncludeGreenInMD)
	if err := os.WriteFile(path, []byte(md), 0o600); err != nil {
		return fmt.Errorf("write digest %s: %w", path, err)
	}
	lgr.Printf("[INFO] wrote %s", path)
	return nil
}

// sendNotification pushes the digest message at most once per calendar date.
// The cooldown is recorded only after a confirmed delivery, a failed send
// leaves it unset so the next run retries.
func (p *Processor) sendNotification(ctx context.Context, date string, items []domain.Item) bool {
	if !p.notify {
		lgr.Printf("[INFO] notification disabled, skipping")
		return false
	}
	if p.notifier == nil || !p.notifier.Enabled() {
		lgr.Printf("[INFO] notifier not configured, skipping")
		return false
	}
	if p.store.LastSentDate() == date {
		lgr.Printf("[INFO] notification already sent for %s, skipping", date)
		return false
	}
	if len(items) == 0 {
		lgr.Printf("[INFO] no new items, notification skipped")
		return false
	}

	msg := digest.Message(date, items, p.cfg.Global.Digest.MaxItemsPerSection, p.cfg.Global.Digest.IncludeGreenInTelegram)
	if err := p.notifier.Send(ctx, msg); err != nil {
		lgr.Printf("[ERROR] notification failed: %v", err)
		return false
	}

	p.store.SetLastSentDate(date)
	if err := p.store.Save(p.statePath); err != nil {
		lgr.Printf("[ERROR] can't save state after notification: %v", err)
	}
	lgr.Printf("[INFO] notification sent for %s", date)
	return true
}
