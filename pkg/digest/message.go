package digest

import (
	"fmt"
	"strings"

	"github.com/umputun/radar/pkg/content"
	"github.com/umputun/radar/pkg/domain"
	"github.com/umputun/radar/pkg/score"
)

// maxMessageLen is the hard cap on the notification message, telegram
// rejects anything above 4096 so leave headroom for the markup it adds
const maxMessageLen = 3800

// truncationMark is appended when the message had to be cut
const truncationMark = "\n…(truncated)"

// Message builds the push notification digest: per-label sections capped at
// maxPerSection items each, hard-bounded at maxMessageLen characters.
func Message(date string, items []domain.Item, maxPerSection int, includeGreen bool) string {
	red := byLabel(items, score.LabelRed)
	watch := byLabel(items, score.LabelWatch)
	green := byLabel(items, score.LabelGreen)

	var b strings.Builder
	fmt.Fprintf(&b, "🛰️ Propaganda Radar — %s\n", date)
	fmt.Fprintf(&b, "NEW: %d | RED %d | WATCH %d | GREEN %d\n\n", len(items), len(red), len(watch), len(green))

	messageSection(&b, "🔴 RED", red, maxPerSection)
	messageSection(&b, "🟠 WATCH", watch, maxPerSection)
	if includeGreen {
		messageSection(&b, "🟢 GREEN", green, maxPerSection)
	}

	b.WriteString("—\nfull digest in out/daily/")

	msg := b.String()
	if len(msg) > maxMessageLen {
		msg = content.Truncate(msg, maxMessageLen) + truncationMark
	}
	return msg
}

func messageSection(b *strings.Builder, tag string, items []domain.Item, maxItems int) {
	if len(items) == 0 {
		return
	}

	b.WriteString(tag + "\n")
	shown := items
	if len(shown) > maxItems {
		shown = shown[:maxItems]
	}
	for i, it := range shown {
		title := strings.TrimSpace(strings.ReplaceAll(it.Title, "\n", " "))
		fmt.Fprintf(b, "%d) %s (score %d)\n", i+1, title, it.Score)
		if it.Link != "" {
			fmt.Fprintf(b, "   %s\n", it.Link)
		}
	}
	if len(items) > maxItems {
		fmt.Fprintf(b, "… and %d more\n", len(items)-maxItems)
	}
	b.WriteString("\n")
}
