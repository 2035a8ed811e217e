package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/focusd/internal/export"
	"github.com/sadopc/focusd/internal/store"
)

var (
	exportFormat string
	exportOut    string
)

// exportLedgerLimit is the most ledger rows the history endpoint returns.
const exportLedgerLimit = 100

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export daily focus records and point history",
	Long: `Write every daily record and the most recent point transactions to disk.

CSV writes two files, <out>-days.csv and <out>-points.csv. JSON writes a
single document with a summary.

Examples:
  focusd export
  focusd export --format json --out ~/focus.json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv or json")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output path (default: ./focusd-export-<date>)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	format := strings.ToLower(exportFormat)
	if format != "csv" && format != "json" {
		return fmt.Errorf("unknown format %q (want csv or json)", exportFormat)
	}

	cfg, log, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	c := newClient(cfg, log)

	all, err := c.All(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching days: %w", err)
	}
	txs, err := c.History(cmd.Context(), exportLedgerLimit)
	if err != nil {
		return fmt.Errorf("fetching point history: %w", err)
	}
	days := make([]store.DailySession, len(all))
	for i, d := range all {
		days[i] = d.DailySession
	}
	goal := cfg.Goal.DailyMinutes
	if len(all) > 0 && all[0].GoalMinutes > 0 {
		goal = all[0].GoalMinutes
	}

	base := exportOut
	if base == "" {
		base = "focusd-export-" + time.Now().Format("2006-01-02")
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))

	out := cmd.OutOrStdout()
	if format == "json" {
		path := base + ".json"
		if err := export.ToJSON(days, txs, goal, path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported %d days and %d transactions to %s\n", len(days), len(txs), path)
		return nil
	}

	daysPath, ledgerPath := base+"-days.csv", base+"-points.csv"
	if err := export.DaysToCSV(days, goal, daysPath); err != nil {
		return err
	}
	if err := export.LedgerToCSV(txs, ledgerPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %d days to %s and %d transactions to %s\n", len(days), daysPath, len(txs), ledgerPath)
	return nil
}
