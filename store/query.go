package store

import (
	"sort"

	"github.com/carrierwatcher/carrierwatcher/model"
)

// Criteria selects rows by status, domain and theme. An empty selection
// does not filter on that dimension.
type Criteria struct {
	Statuses []model.Status
	Domains  []string
	Themes   []string
}

// Filter returns the rows matching every non-empty selection, in table order.
func Filter(table model.Table, c Criteria) model.Table {
	selected := Select(table, c)
	out := make(model.Table, 0, len(selected))
	for _, row := range selected {
		out = append(out, row.Application)
	}
	return out
}

// IndexedRow is a row together with its position in the full table, which
// edit and delete operations address.
type IndexedRow struct {
	Index int `json:"index"`
	model.Application
}

type IndexedTable []IndexedRow

// Select is Filter keeping each row's position in table.
func Select(table model.Table, c Criteria) IndexedTable {
	statuses := make(map[string]bool, len(c.Statuses))
	for _, s := range c.Statuses {
		statuses[string(s)] = true
	}
	domains := toSet(c.Domains)
	themes := toSet(c.Themes)

	out := make(IndexedTable, 0, len(table))
	for i, row := range table {
		if len(statuses) > 0 && !statuses[string(row.Status)] {
			continue
		}
		if len(domains) > 0 && !domains[row.Domain] {
			continue
		}
		if len(themes) > 0 && !themes[row.Theme] {
			continue
		}
		out = append(out, IndexedRow{Index: i, Application: row})
	}
	return out
}

// Options returns the sorted distinct non-empty domains and themes, used to
// populate filter menus.
func Options(table model.Table) (domains, themes []string) {
	d := make(map[string]bool)
	th := make(map[string]bool)
	for _, row := range table {
		if row.Domain != "" {
			d[row.Domain] = true
		}
		if row.Theme != "" {
			th[row.Theme] = true
		}
	}
	return sortedKeys(d), sortedKeys(th)
}

// StatusCount is one bar of the per-status breakdown.
type StatusCount struct {
	Status model.Status `json:"status"`
	Count  int          `json:"count"`
}

// Metrics summarizes a table for the dashboard header and status chart.
type Metrics struct {
	Total     int           `json:"total"`
	Pending   int           `json:"pending"`
	Interview int           `json:"interview"`
	Accepted  int           `json:"accepted"`
	Rejected  int           `json:"rejected"`
	ByStatus  []StatusCount `json:"by_status"`
}

func ComputeMetrics(table model.Table) Metrics {
	counts := make(map[model.Status]int, len(model.Statuses))
	for _, row := range table {
		counts[row.Status]++
	}

	m := Metrics{
		Total:     len(table),
		Pending:   counts[model.StatusPending],
		Interview: counts[model.StatusInterview],
		Accepted:  counts[model.StatusAccepted],
		Rejected:  counts[model.StatusRejected],
		ByStatus:  make([]StatusCount, 0, len(model.Statuses)),
	}
	for _, s := range model.Statuses {
		m.ByStatus = append(m.ByStatus, StatusCount{Status: s, Count: counts[s]})
	}
	return m
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
