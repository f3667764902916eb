package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/carrierwatcher/carrierwatcher/model"
	"github.com/carrierwatcher/carrierwatcher/progress"
	"github.com/carrierwatcher/carrierwatcher/store"
)

func newListCommand(a *app) *cobra.Command {
	var (
		statuses []string
		domains  []string
		themes   []string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := store.New(a.cfg.DataDir, a.logger).Load()
			if err != nil {
				return err
			}

			criteria := store.Criteria{Domains: domains, Themes: themes}
			for _, s := range statuses {
				criteria.Statuses = append(criteria.Statuses, model.Status(s))
			}
			rows := store.Select(table, criteria)

			switch format {
			case "table":
				return progress.PrintTable(a.out(cmd), rows)
			case "csv":
				return writeCSV(a.out(cmd), rows)
			case "json":
				if rows == nil {
					rows = store.IndexedTable{}
				}
				enc := json.NewEncoder(a.out(cmd))
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			return model.ValidationError("list", fmt.Errorf("unknown format %q (want table, csv or json)", format))
		},
	}

	cmd.Flags().StringArrayVar(&statuses, "status", nil, "Only show applications with this status (repeatable)")
	cmd.Flags().StringArrayVar(&domains, "domain", nil, "Only show applications in this domain (repeatable)")
	cmd.Flags().StringArrayVar(&themes, "theme", nil, "Only show applications with this theme (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, csv or json")
	return cmd
}

func writeCSV(w io.Writer, rows store.IndexedTable) error {
	cw := csv.NewWriter(w)
	header := append([]string{"Index"}, model.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{strconv.Itoa(row.Index)}
		for _, col := range model.Columns {
			record = append(record, row.Get(col))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
