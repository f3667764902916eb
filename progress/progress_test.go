package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"

	"github.com/carrierwatcher/carrierwatcher/model"
	"github.com/carrierwatcher/carrierwatcher/runner"
	"github.com/carrierwatcher/carrierwatcher/stats"
	"github.com/carrierwatcher/carrierwatcher/store"
)

func init() {
	pterm.DisableStyling()
}

func TestPrintTable(t *testing.T) {
	rows := store.IndexedTable{
		{Index: 3, Application: model.Application{Code: "A1", Company: "Acme", Status: model.StatusInterview}},
	}
	var buf bytes.Buffer
	if err := PrintTable(&buf, rows); err != nil {
		t.Fatalf("PrintTable() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Company", "Acme", "Interview", "3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintMetrics(t *testing.T) {
	m := store.ComputeMetrics(model.Table{
		{Company: "Acme", Status: model.StatusAccepted},
		{Company: "Globex", Status: model.StatusPending},
	})
	var buf bytes.Buffer
	if err := PrintMetrics(&buf, m); err != nil {
		t.Fatalf("PrintMetrics() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Total: 2") {
		t.Errorf("output missing total:\n%s", buf.String())
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, runner.Summary{Fetched: 2, Created: 1, Updated: 1, LastSync: "2024-05-01T10:00:00Z", DryRun: true}, time.Second)
	out := buf.String()
	for _, want := range []string{"Created: 1", "Updated: 1", "2024-05-01T10:00:00Z", "Dry run"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBar_DisabledOutsideInfo(t *testing.T) {
	b := New("debug")
	b.Observe(stats.Event{Type: stats.EventTypeBatch, Total: 3})
	b.Observe(stats.Event{Type: stats.EventTypeScanned, MessageID: "m1"})
	b.Stop()
	if b.pb != nil {
		t.Error("progress bar started at debug level")
	}
}
