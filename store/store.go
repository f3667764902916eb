// Package store persists the application table as a spreadsheet file.
// Every save rewrites the whole file; there is no incremental update.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/carrierwatcher/carrierwatcher/model"
)

const (
	// FileName is the table file inside the data directory.
	FileName   = "applications.xlsx"
	sheetName  = "Applications"
	dateLayout = "2006-01-02"
)

var dateColumns = map[string]bool{
	model.ColumnApplicationDate: true,
	model.ColumnStartDate:       true,
}

// Store reads and writes the record table under a data directory.
type Store struct {
	path   string
	logger *slog.Logger
}

func New(dataDir string, logger *slog.Logger) *Store {
	return &Store{
		path:   filepath.Join(dataDir, FileName),
		logger: logger,
	}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the full table. A missing file yields an empty table. Missing
// canonical columns are backfilled with empty strings and unknown columns
// are dropped.
func (s *Store) Load() (model.Table, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return model.Table{}, nil
	} else if err != nil {
		return nil, model.StorageError("stat table", err)
	}

	f, err := excelize.OpenFile(s.path, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, model.StorageError("open table", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return model.Table{}, nil
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, model.StorageError("read table", err)
	}
	if len(rows) == 0 {
		return model.Table{}, nil
	}

	columns := make(map[int]string, len(rows[0]))
	seen := make(map[string]bool, len(rows[0]))
	for i, name := range rows[0] {
		canonical, ok := canonicalColumn(name)
		if !ok || seen[canonical] {
			continue
		}
		seen[canonical] = true
		columns[i] = canonical
	}

	table := make(model.Table, 0, len(rows)-1)
	for r, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		var app model.Application
		for i, value := range cells {
			column, ok := columns[i]
			if !ok {
				continue
			}
			if dateColumns[column] && value != "" {
				value = s.readDate(f, sheet, i+1, r+2, value)
			}
			if column == model.ColumnStatus {
				value = legacyStatus(value)
			}
			app.Set(column, value)
		}
		table = append(table, app)
	}

	if s.logger != nil {
		s.logger.Debug("table loaded", "path", s.path, "rows", len(table))
	}
	return table, nil
}

// readDate converts a date cell stored as an Excel serial number. Cells
// stored as text are returned unchanged.
func (s *Store) readDate(f *excelize.File, sheet string, col, row int, value string) string {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return value
	}
	cellType, err := f.GetCellType(sheet, cell)
	if err != nil {
		return value
	}
	switch cellType {
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeDate:
	default:
		return value
	}
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return value
	}
	return t.Format(dateLayout)
}

// Save normalizes date columns and rewrites the whole file. The new
// content is written to a sibling temporary file and renamed over the
// previous one.
func (s *Store) Save(table model.Table) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.StorageError("create data directory", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return model.StorageError("name sheet", err)
	}

	header := make([]interface{}, len(model.Columns))
	for i, name := range model.Columns {
		header[i] = name
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return model.StorageError("write header", err)
	}

	for r, app := range table {
		app.ApplicationDate = NormalizeDate(app.ApplicationDate)
		app.StartDate = NormalizeDate(app.StartDate)

		row := make([]interface{}, len(model.Columns))
		for i, column := range model.Columns {
			row[i] = app.Get(column)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return model.StorageError("write row", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return model.StorageError(fmt.Sprintf("write row %d", r+1), err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".applications-*.xlsx")
	if err != nil {
		return model.StorageError("create temporary table", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := f.Write(tmp); err != nil {
		_ = tmp.Close()
		return model.StorageError("write table", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return model.StorageError("sync table", err)
	}
	if err := tmp.Close(); err != nil {
		return model.StorageError("close table", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return model.StorageError("replace table", err)
	}

	if s.logger != nil {
		s.logger.Debug("table saved", "path", s.path, "rows", len(table))
	}
	return nil
}

var dateInputLayouts = []string{
	dateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006",
}

// NormalizeDate rewrites a date-like value as YYYY-MM-DD. Empty and
// unparsable values are returned unchanged.
func NormalizeDate(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return value
	}
	for _, layout := range dateInputLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format(dateLayout)
		}
	}
	return value
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
