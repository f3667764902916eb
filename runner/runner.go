// Package runner sequences one mail sync: credentials, fetch, per-message
// reconciliation and persistence of the table, ledger and checkpoint.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carrierwatcher/carrierwatcher/auth"
	"github.com/carrierwatcher/carrierwatcher/classify"
	"github.com/carrierwatcher/carrierwatcher/model"
	"github.com/carrierwatcher/carrierwatcher/reconcile"
	"github.com/carrierwatcher/carrierwatcher/source"
	"github.com/carrierwatcher/carrierwatcher/state"
	"github.com/carrierwatcher/carrierwatcher/stats"
)

// TableStore loads and rewrites the whole record table.
type TableStore interface {
	Load() (model.Table, error)
	Save(model.Table) error
}

type Options struct {
	// DataDir holds the ledger and checkpoint files.
	DataDir     string
	Credentials auth.Provider
	Source      source.Source
	Store       TableStore
	// OpenLedger loads the seen-message ledger at the start of each run.
	// Defaults to the file ledger in DataDir.
	OpenLedger func() (state.Tracker, error)
	// DryRun performs the whole run but writes nothing.
	DryRun bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Summary is what a run reports back to the user.
type Summary struct {
	RunID    string `json:"run_id"`
	Fetched  int    `json:"fetched"`
	Created  int    `json:"created"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
	LastSync string `json:"last_sync"`
	DryRun   bool   `json:"dry_run,omitempty"`
}

func (s Summary) LogAttrs() []any {
	return []any{
		"run", s.RunID,
		"fetched", s.Fetched,
		"created", s.Created,
		"updated", s.Updated,
		"skipped", s.Skipped,
		"lastSync", s.LastSync,
		"dryRun", s.DryRun,
	}
}

type Runner struct {
	opts      Options
	logger    *slog.Logger
	observers []stats.Observer
}

func New(opts Options, logger *slog.Logger) (*Runner, error) {
	if opts.DataDir == "" {
		return nil, model.ConfigurationError("runner", errors.New("data directory is empty"))
	}
	if opts.Credentials == nil {
		return nil, model.ConfigurationError("runner", errors.New("credential provider must not be nil"))
	}
	if opts.Source == nil {
		return nil, model.ConfigurationError("runner", errors.New("message source must not be nil"))
	}
	if opts.Store == nil {
		return nil, model.ConfigurationError("runner", errors.New("table store must not be nil"))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OpenLedger == nil {
		dataDir := opts.DataDir
		opts.OpenLedger = func() (state.Tracker, error) {
			return state.NewFileTracker(dataDir)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{opts: opts, logger: logger}, nil
}

// Subscribe registers an observer for the events of subsequent runs.
func (r *Runner) Subscribe(obs stats.Observer) {
	r.observers = append(r.observers, obs)
}

// LastSync returns the stored checkpoint, zero when no run completed yet.
func (r *Runner) LastSync() (time.Time, error) {
	cp, err := state.LoadCheckpoint(r.opts.DataDir)
	if err != nil {
		return time.Time{}, err
	}
	return cp.LastSync(), nil
}

// RunOnce performs one sync. Credential and fetch failures abort before
// anything is written. Messages are handled in the order the source
// returned them; each one is marked seen whether or not it changed the
// table.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	logger := r.logger.With("run", runID)
	started := r.opts.Now()

	collector := stats.NewCollector()
	emit := func(evt stats.Event) {
		collector.Observe(evt)
		for _, obs := range r.observers {
			obs.Observe(evt)
		}
	}
	fail := func(err error) (Summary, error) {
		emit(stats.Event{Type: stats.EventTypeError, Err: err})
		logger.Error("sync failed", "duration", time.Since(started), "err", err)
		return Summary{}, err
	}

	token, err := r.opts.Credentials.Token(ctx)
	if err != nil {
		return fail(fmt.Errorf("acquire token: %w", err))
	}

	ledger, err := r.opts.OpenLedger()
	if err != nil {
		return fail(fmt.Errorf("load ledger: %w", err))
	}
	logger.Debug("ledger loaded", "entries", ledger.Snapshot().Processed)
	checkpoint, err := state.LoadCheckpoint(r.opts.DataDir)
	if err != nil {
		return fail(fmt.Errorf("load checkpoint: %w", err))
	}
	since := checkpoint.LastSync()

	msgs, err := r.opts.Source.Fetch(ctx, token, since)
	if err != nil {
		return fail(fmt.Errorf("fetch messages: %w", err))
	}
	logger.Info("messages fetched", "count", len(msgs), "since", since)
	emit(stats.Event{Type: stats.EventTypeBatch, Total: len(msgs)})

	table, err := r.opts.Store.Load()
	if err != nil {
		return fail(fmt.Errorf("load table: %w", err))
	}

	for _, msg := range msgs {
		emit(stats.Event{Type: stats.EventTypeScanned, MessageID: msg.ID})

		if ledger.AlreadyProcessed(msg.ID) {
			emit(stats.Event{Type: stats.EventTypeDuplicate, MessageID: msg.ID})
			continue
		}

		status, _ := classify.InferStatus(msg.Subject, msg.Preview)
		company, _ := classify.InferCompany(msg.From, msg.Subject)

		var res reconcile.Result
		table, res = reconcile.Reconcile(table, company, status, msg.Received())

		evt := stats.Event{MessageID: msg.ID, Company: company, Status: string(table[res.Index].Status)}
		switch {
		case res.Created:
			evt.Type = stats.EventTypeCreated
		case res.Changed:
			evt.Type = stats.EventTypeUpdated
		default:
			evt.Type = stats.EventTypeUnchanged
		}
		emit(evt)

		if err := ledger.MarkProcessed(msg.ID); err != nil {
			return fail(fmt.Errorf("mark %s seen: %w", msg.ID, err))
		}
	}

	lastSync := checkpoint.SetLastSync(r.opts.Now())

	if !r.opts.DryRun {
		if err := r.opts.Store.Save(table); err != nil {
			return fail(fmt.Errorf("save table: %w", err))
		}
		if err := ledger.Save(); err != nil {
			return fail(fmt.Errorf("save ledger: %w", err))
		}
		if err := checkpoint.Save(); err != nil {
			return fail(fmt.Errorf("save checkpoint: %w", err))
		}
	}

	counts := collector.Snapshot()
	summary := Summary{
		RunID:    runID,
		Fetched:  counts.Fetched(),
		Created:  counts.Created,
		Updated:  counts.Updated,
		Skipped:  counts.Duplicates,
		LastSync: lastSync,
		DryRun:   r.opts.DryRun,
	}
	logger.Info("sync completed", append(summary.LogAttrs(), "duration", time.Since(started))...)
	return summary, nil
}
