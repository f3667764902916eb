package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/carrierwatcher/carrierwatcher/model"
	"github.com/carrierwatcher/carrierwatcher/store"
)

// inputFlags are the editable columns shared by add and edit.
type inputFlags struct {
	company string
	code    string
	theme   string
	domain  string
	status  string
	applied string
	start   string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.company, "company", "", "Company name")
	cmd.Flags().StringVar(&f.code, "code", "", "Offer code")
	cmd.Flags().StringVar(&f.theme, "theme", "", "Theme")
	cmd.Flags().StringVar(&f.domain, "domain", "", "Domain")
	cmd.Flags().StringVar(&f.status, "status", "", "Status: Pending, Interview, Accepted or Rejected (default Pending)")
	cmd.Flags().StringVar(&f.applied, "applied", "", "Application date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD)")
}

// apply copies the flags the user actually set onto in.
func (f *inputFlags) apply(cmd *cobra.Command, in *store.Input) {
	set := func(name string, dst *string, value string) {
		if cmd.Flags().Changed(name) {
			*dst = value
		}
	}
	set("company", &in.Company, f.company)
	set("code", &in.Code, f.code)
	set("theme", &in.Theme, f.theme)
	set("domain", &in.Domain, f.domain)
	set("applied", &in.ApplicationDate, f.applied)
	set("start", &in.StartDate, f.start)
	if cmd.Flags().Changed("status") {
		in.Status = model.Status(f.status)
	}
}

func inputFrom(a model.Application) store.Input {
	return store.Input{
		Company:         a.Company,
		Code:            a.Code,
		Theme:           a.Theme,
		Domain:          a.Domain,
		Status:          a.Status,
		ApplicationDate: a.ApplicationDate,
		StartDate:       a.StartDate,
	}
}

func parseIndex(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return 0, model.ValidationError("select application", fmt.Errorf("invalid row index %q", arg))
	}
	return index, nil
}

func newAddCommand(a *app) *cobra.Command {
	var flags inputFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an application by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store.New(a.cfg.DataDir, a.logger)
			table, err := st.Load()
			if err != nil {
				return err
			}

			var in store.Input
			flags.apply(cmd, &in)
			table, err = store.Add(table, in)
			if err != nil {
				return err
			}
			if err := st.Save(table); err != nil {
				return err
			}

			index := len(table) - 1
			a.logger.Info("application added", "index", index, "company", table[index].Company)
			fmt.Fprintf(a.out(cmd), "Added %s (%s) as row %d\n", table[index].Company, table[index].Code, index)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newEditCommand(a *app) *cobra.Command {
	var flags inputFlags

	cmd := &cobra.Command{
		Use:   "edit <index>",
		Short: "Change the fields of one application",
		Long:  "Change the fields of one application. Only the flags given are changed; the last email and source columns are kept.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}

			st := store.New(a.cfg.DataDir, a.logger)
			table, err := st.Load()
			if err != nil {
				return err
			}
			if index < 0 || index >= len(table) {
				return model.ValidationError("select application", fmt.Errorf("row %d out of range (%d rows)", index, len(table)))
			}

			in := inputFrom(table[index])
			flags.apply(cmd, &in)
			table, err = store.Update(table, index, in)
			if err != nil {
				return err
			}
			if err := st.Save(table); err != nil {
				return err
			}

			a.logger.Info("application updated", "index", index, "company", table[index].Company)
			fmt.Fprintf(a.out(cmd), "Updated row %d: %s (%s) %s\n", index, table[index].Company, table[index].Code, table[index].Status)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <index>",
		Short: "Remove one application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}

			st := store.New(a.cfg.DataDir, a.logger)
			table, err := st.Load()
			if err != nil {
				return err
			}
			table, err = store.Delete(table, index)
			if err != nil {
				return err
			}
			if err := st.Save(table); err != nil {
				return err
			}

			a.logger.Info("application deleted", "index", index)
			fmt.Fprintf(a.out(cmd), "Deleted row %d\n", index)
			return nil
		},
	}
}
