package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JonMunkholm/PayrollRecon/internal/core"
	"github.com/JonMunkholm/PayrollRecon/internal/logging"
	"github.com/JonMunkholm/PayrollRecon/internal/table"
)

const envPrefix = "PAYRECON"

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "payrecon",
		Short:         "Compare payroll periods",
		Long:          "payrecon matches employees across two payroll files and reports each net salary change.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	_ = v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newReconcileCmd(v))
	return root
}

func newReconcileCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare an old and a new payroll file",
		Long: `Compare an old and a new payroll file on Employee Number.

Both files must contain Employee Number, Net Salary, Employee Name,
Supplier ID, Gross Salary and Deductions. The report lists every matched
employee with the old and new net salary, the difference and whether it
is an Increase, Decrease or No Change.

Every flag can also be set through the environment, e.g. PAYRECON_JOIN_MODE=outer.`,
		Example: `  payrecon reconcile --old march.xlsx --new april.xlsx
  payrecon reconcile --old march.csv --new april.csv --out changes.xlsx --join-mode outer`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runReconcile(cmd, v)
			if err == nil {
				return nil
			}
			if !core.IsUserFacing(err) {
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "error:", core.FormatUserError(err))
			return core.NewUserError(err)
		},
	}

	f := cmd.Flags()
	f.String("old", "", "previous period payroll file (.xlsx or .csv)")
	f.String("new", "", "current period payroll file (.xlsx or .csv)")
	f.String("out", "", "report path (default: \"Payroll Comparison\" in the current directory)")
	f.String("join-mode", string(core.JoinInner), "inner keeps matched employees only; outer adds new hires and departures")
	f.String("format", "auto", "report format: auto, xlsx or csv; auto follows --out, then the new file")
	f.Bool("allow-empty", false, "write an empty report when no employees match")
	f.String("report-name", core.DefaultReportName, "report file name used when --out is not set")
	_ = v.BindPFlags(f)

	return cmd
}

func runReconcile(cmd *cobra.Command, v *viper.Viper) error {
	log := logging.New(cmd.ErrOrStderr(), v.GetString("log-level"), "text")

	oldPath, newPath := v.GetString("old"), v.GetString("new")
	if oldPath == "" || newPath == "" {
		return core.ErrMissingUpload
	}

	mode, err := core.ParseJoinMode(v.GetString("join-mode"))
	if err != nil {
		return err
	}

	out := v.GetString("out")
	format, err := reportFormat(v.GetString("format"), out)
	if err != nil {
		return err
	}

	oldData, err := os.ReadFile(oldPath)
	if err != nil {
		return fmt.Errorf("read old file: %w", err)
	}
	newData, err := os.ReadFile(newPath)
	if err != nil {
		return fmt.Errorf("read new file: %w", err)
	}
	log.Debug("files loaded", "old", oldPath, "old_bytes", len(oldData), "new", newPath, "new_bytes", len(newData))

	engine := core.NewEngine(core.Options{
		Reconcile: core.ReconcileOptions{Mode: mode, AllowEmpty: v.GetBool("allow-empty")},
		Format:    format,
	})
	res, err := engine.Run(oldData, newData)
	if err != nil {
		return err
	}

	if out == "" {
		out = v.GetString("report-name") + res.Format.Extension()
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	log.Info("report written", "path", out, "rows", res.Report.Len())

	printSummary(cmd.OutOrStdout(), out, res.Summary, mode)
	return nil
}

// reportFormat resolves --format. "auto" takes the extension of out when it
// names a known format and otherwise leaves the choice to the engine.
func reportFormat(flag, out string) (table.Format, error) {
	if flag != "" && flag != "auto" {
		return table.ParseFormat(flag)
	}
	if ext := filepath.Ext(out); ext != "" {
		if f, err := table.ParseFormat(ext); err == nil {
			return f, nil
		}
	}
	return "", nil
}

func printSummary(w io.Writer, path string, s core.Summary, mode core.JoinMode) {
	fmt.Fprintf(w, "Report written to %s\n", path)
	fmt.Fprintf(w, "  old rows:   %d\n", s.OldRows)
	fmt.Fprintf(w, "  new rows:   %d\n", s.NewRows)
	fmt.Fprintf(w, "  matched:    %d (%d increase, %d decrease, %d no change)\n",
		s.Matched, s.Increases, s.Decreases, s.Unchanged)
	if mode == core.JoinOuter || s.Departed+s.NewHires > 0 {
		fmt.Fprintf(w, "  departed:   %d\n", s.Departed)
		fmt.Fprintf(w, "  new hires:  %d\n", s.NewHires)
	}
	if n := s.OldNullKeys + s.NewNullKeys; n > 0 {
		fmt.Fprintf(w, "  skipped %d rows without an Employee Number\n", n)
	}
}

