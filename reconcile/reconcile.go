// Package reconcile decides whether an inbound message creates a new
// application record or updates an existing one.
package reconcile

import (
	"github.com/carrierwatcher/carrierwatcher/model"
)

// Result reports what a Reconcile call did to the table.
type Result struct {
	Changed bool
	Created bool
	// Index is the row that was appended or matched.
	Index int
	// StatusChanged is set when the matched row's status was overwritten.
	StatusChanged bool
}

// Reconcile folds one classified message into table. A non-empty company
// is matched exactly against existing rows (first match wins); an empty
// company never matches. Without a match a new email-sourced row is
// appended. With a match the inferred status is applied only when it
// ranks at least as high as the current one and differs from it, and the
// last-email timestamp and provenance are refreshed.
//
// The returned table shares no row storage with the input.
func Reconcile(table model.Table, company string, status model.Status, receivedAt string) (model.Table, Result) {
	out := table.Clone()

	idx := -1
	if company != "" {
		for i, row := range out {
			if row.Company == company {
				idx = i
				break
			}
		}
	}

	if idx < 0 {
		if status == "" {
			status = model.StatusPending
		}
		out = append(out, model.Application{
			Company:   company,
			Status:    status,
			LastEmail: receivedAt,
			Source:    model.SourceEmail,
		})
		return out, Result{Changed: true, Created: true, Index: len(out) - 1}
	}

	row := &out[idx]
	res := Result{Index: idx}

	current := row.Status
	if current == "" {
		current = model.StatusPending
	}
	candidate := status
	if candidate == "" {
		candidate = current
	}
	if candidate.Priority() >= current.Priority() && candidate != current {
		row.Status = candidate
		res.Changed = true
		res.StatusChanged = true
	}

	if row.LastEmail != receivedAt {
		row.LastEmail = receivedAt
		res.Changed = true
	}
	if row.Source != model.SourceEmail {
		row.Source = model.SourceEmail
		res.Changed = true
	}

	return out, res
}
