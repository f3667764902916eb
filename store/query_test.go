package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carrierwatcher/carrierwatcher/model"
)

func queryTable() model.Table {
	return model.Table{
		{Company: "A", Status: model.StatusPending, Domain: "Finance", Theme: "ML"},
		{Company: "B", Status: model.StatusInterview, Domain: "Finance", Theme: "Web"},
		{Company: "C", Status: model.StatusAccepted, Domain: "Energy", Theme: "ML"},
		{Company: "D", Status: model.StatusRejected, Domain: "", Theme: ""},
		{Company: "E", Status: model.StatusInterview, Domain: "Energy", Theme: "Web"},
	}
}

func companies(table model.Table) []string {
	out := make([]string, 0, len(table))
	for _, row := range table {
		out = append(out, row.Company)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{name: "no criteria keeps everything", want: []string{"A", "B", "C", "D", "E"}},
		{name: "status only", criteria: Criteria{Statuses: []model.Status{model.StatusInterview}}, want: []string{"B", "E"}},
		{name: "several statuses", criteria: Criteria{Statuses: []model.Status{model.StatusPending, model.StatusAccepted}}, want: []string{"A", "C"}},
		{name: "domain and theme combine", criteria: Criteria{Domains: []string{"Finance", "Energy"}, Themes: []string{"ML"}}, want: []string{"A", "C"}},
		{name: "all three", criteria: Criteria{Statuses: []model.Status{model.StatusInterview}, Domains: []string{"Energy"}, Themes: []string{"Web"}}, want: []string{"E"}},
		{name: "no match", criteria: Criteria{Domains: []string{"Health"}}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, companies(Filter(queryTable(), tt.criteria)))
		})
	}
}

func TestOptions(t *testing.T) {
	domains, themes := Options(queryTable())
	assert.Equal(t, []string{"Energy", "Finance"}, domains)
	assert.Equal(t, []string{"ML", "Web"}, themes)
}

func TestComputeMetrics(t *testing.T) {
	table := append(queryTable(), model.Application{Company: "F", Status: "Waiting"})

	m := ComputeMetrics(table)

	assert.Equal(t, 6, m.Total)
	assert.Equal(t, 1, m.Pending)
	assert.Equal(t, 2, m.Interview)
	assert.Equal(t, 1, m.Accepted)
	assert.Equal(t, 1, m.Rejected)
	assert.Equal(t, []StatusCount{
		{Status: model.StatusPending, Count: 1},
		{Status: model.StatusInterview, Count: 2},
		{Status: model.StatusAccepted, Count: 1},
		{Status: model.StatusRejected, Count: 1},
	}, m.ByStatus)
}

func TestSelect_KeepsRowPositions(t *testing.T) {
	got := Select(queryTable(), Criteria{Themes: []string{"Web"}})

	if assert.Len(t, got, 2) {
		assert.Equal(t, 1, got[0].Index)
		assert.Equal(t, "B", got[0].Company)
		assert.Equal(t, 4, got[1].Index)
		assert.Equal(t, "E", got[1].Company)
	}
}
