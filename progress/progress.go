// Package progress renders a sync run in the terminal.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/carrierwatcher/carrierwatcher/runner"
	"github.com/carrierwatcher/carrierwatcher/stats"
	"github.com/carrierwatcher/carrierwatcher/store"
)

// Bar shows a progress bar over the fetched batch. It only renders at the
// info log level so that debug output is not interleaved with it.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	total   int
	mu      sync.Mutex
	enabled bool
	started time.Time
}

func New(logLevel string) *Bar {
	return &Bar{
		enabled: logLevel == "info",
		started: time.Now(),
	}
}

// Observe implements stats.Observer.
func (b *Bar) Observe(evt stats.Event) {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeBatch:
		b.total = evt.Total
		pterm.Info.Printf("Fetched %d messages\n", evt.Total)
		if evt.Total == 0 {
			return
		}
		pb, err := pterm.DefaultProgressbar.
			WithTotal(evt.Total).
			WithTitle("Reconciling messages").
			Start()
		if err == nil {
			b.pb = pb
		}
	case stats.EventTypeScanned:
		if b.pb == nil {
			return
		}
		b.pb.Increment()
		if evt.MessageID != "" {
			displayID := evt.MessageID
			if len(displayID) > 40 {
				displayID = displayID[:37] + "..."
			}
			b.pb.UpdateTitle("Processing: " + displayID)
		}
	case stats.EventTypeError:
		if evt.Err != nil {
			pterm.Error.Printf("Error: %v\n", evt.Err)
		}
	}
}

// Stop finalizes the progress bar.
func (b *Bar) Stop() {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pb == nil {
		return
	}
	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}
	_, _ = b.pb.Stop()
	b.pb = nil
}

// PrintSummary writes the run totals.
func PrintSummary(w io.Writer, s runner.Summary, duration time.Duration) {
	pterm.Fprintln(w)
	section := pterm.DefaultSection.WithWriter(w)
	section.Println("Sync summary")
	info := pterm.Info.WithWriter(w)
	info.Printfln("Scanned: %d new messages (%d already seen)", s.Fetched, s.Skipped)
	info.Printfln("Created: %d", s.Created)
	info.Printfln("Updated: %d", s.Updated)
	info.Printfln("Last sync: %s", s.LastSync)
	info.Printfln("Duration: %v", duration.Round(time.Millisecond))
	if s.DryRun {
		pterm.Warning.WithWriter(w).Println("Dry run: nothing was written")
	}
}

// PrintTable renders applications as a table with their row index.
func PrintTable(w io.Writer, table store.IndexedTable) error {
	data := pterm.TableData{{"#", "Code", "Company", "Theme", "Domain", "Status", "Applied", "Start", "Last email", "Source"}}
	for _, row := range table {
		a := row.Application
		data = append(data, []string{
			fmt.Sprint(row.Index), a.Code, a.Company, a.Theme, a.Domain, string(a.Status),
			a.ApplicationDate, a.StartDate, a.LastEmail, a.Source,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}

// PrintMetrics renders the headline counts and a per-status bar chart.
func PrintMetrics(w io.Writer, m store.Metrics) error {
	section := pterm.DefaultSection.WithWriter(w)
	section.Println("Applications")
	info := pterm.Info.WithWriter(w)
	info.Printfln("Total: %d", m.Total)
	info.Printfln("Accepted: %d  Rejected: %d  Pending: %d  Interview: %d", m.Accepted, m.Rejected, m.Pending, m.Interview)

	if m.Total == 0 {
		return nil
	}
	bars := make(pterm.Bars, 0, len(m.ByStatus))
	for _, c := range m.ByStatus {
		bars = append(bars, pterm.Bar{Label: string(c.Status), Value: c.Count})
	}
	return pterm.DefaultBarChart.WithHorizontal().WithShowValue().WithWriter(w).WithBars(bars).Render()
}
