// Package stats tallies the per-message outcomes of a sync run.
package stats

import (
	"log/slog"
	"sync"
	"time"
)

type EventType string

const (
	// EventTypeBatch announces how many messages the fetch returned.
	EventTypeBatch     EventType = "batch"
	EventTypeScanned   EventType = "scanned"
	EventTypeDuplicate EventType = "duplicate"
	EventTypeCreated   EventType = "created"
	EventTypeUpdated   EventType = "updated"
	EventTypeUnchanged EventType = "unchanged"
	EventTypeError     EventType = "error"
)

type Event struct {
	Type      EventType
	MessageID string
	Company   string
	Status    string
	Total     int
	Err       error
}

// Observer receives every event of a run, in order.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(evt Event) { f(evt) }

type Summary struct {
	Scanned    int
	Duplicates int
	Created    int
	Updated    int
	Unchanged  int
	Errors     int
	LastError  error
}

// Fetched counts the messages that were new to the ledger.
func (s Summary) Fetched() int {
	return s.Scanned - s.Duplicates
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"scanned", s.Scanned,
		"duplicates", s.Duplicates,
		"created", s.Created,
		"updated", s.Updated,
		"unchanged", s.Unchanged,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Observe(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeScanned:
		c.summary.Scanned++
	case EventTypeDuplicate:
		c.summary.Duplicates++
	case EventTypeCreated:
		c.summary.Created++
	case EventTypeUpdated:
		c.summary.Updated++
	case EventTypeUnchanged:
		c.summary.Unchanged++
	case EventTypeError:
		c.summary.Errors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	return summary
}

// Reporter logs each reconciled message at debug level and the totals when
// the run finishes.
type Reporter struct {
	collector *Collector
	logger    *slog.Logger
	started   time.Time
}

func NewReporter(logger *slog.Logger) *Reporter {
	return &Reporter{
		collector: NewCollector(),
		logger:    logger,
		started:   time.Now(),
	}
}

func (r *Reporter) Observe(evt Event) {
	r.collector.Observe(evt)
	if r.logger == nil {
		return
	}
	switch evt.Type {
	case EventTypeCreated, EventTypeUpdated, EventTypeUnchanged:
		r.logger.Debug("message reconciled", "messageID", evt.MessageID, "outcome", string(evt.Type), "company", evt.Company, "status", evt.Status)
	case EventTypeDuplicate:
		r.logger.Debug("message already processed", "messageID", evt.MessageID)
	case EventTypeError:
		r.logger.Error("sync error", "messageID", evt.MessageID, "err", evt.Err)
	}
}

// Finish logs the collected totals.
func (r *Reporter) Finish() {
	if r.logger == nil {
		return
	}
	attrs := append(r.Summary().LogAttrs(), "duration", time.Since(r.started))
	r.logger.Info("stats summary", attrs...)
}

func (r *Reporter) Summary() Summary {
	return r.collector.Snapshot()
}
