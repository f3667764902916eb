// Package source fetches recent inbox messages for the sync run. Every
// implementation returns messages newest first, capped at its limit and
// restricted to those received at or after the cutoff.
package source

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/carrierwatcher/carrierwatcher/model"
)

// DefaultLimit caps a single fetch.
const DefaultLimit = 30

type Source interface {
	Fetch(ctx context.Context, token string, since time.Time) ([]model.Message, error)
}

// window orders msgs newest first, keeps the most recent limit and then
// drops those received before since.
func window(msgs []model.Message, since time.Time, limit int) []model.Message {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].ReceivedAt.After(msgs[j].ReceivedAt)
	})
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	if since.IsZero() {
		return msgs
	}
	out := msgs[:0]
	for _, m := range msgs {
		if !m.ReceivedAt.Before(since) {
			out = append(out, m)
		}
	}
	return out
}

const previewLimit = 255

// preview collapses whitespace and truncates body text the way inbox
// listings show it.
func preview(body string) string {
	text := strings.Join(strings.Fields(body), " ")
	runes := []rune(text)
	if len(runes) > previewLimit {
		return string(runes[:previewLimit])
	}
	return text
}
