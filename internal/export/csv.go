package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/focusd/internal/store"
)

// DaysToCSV writes one row per daily record.
func DaysToCSV(days []store.DailySession, goal int, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"Date", "Completed (min)", "Active (min)", "Total", "Sessions", "Goal (min)", "Achieved"}); err != nil {
		return err
	}

	for _, d := range days {
		row := []string{
			d.Day,
			strconv.Itoa(d.CompletedMinutes),
			strconv.Itoa(d.ActiveMinutes),
			formatMinutes(d.TotalMinutes()),
			strconv.Itoa(d.SessionsCompleted),
			strconv.Itoa(goal),
			strconv.FormatBool(d.Achieved),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// LedgerToCSV writes one row per point transaction.
func LedgerToCSV(txs []store.Transaction, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"ID", "Time", "Type", "Points", "Balance", "Reason"}); err != nil {
		return err
	}

	for _, t := range txs {
		row := []string{
			strconv.FormatInt(t.ID, 10),
			t.CreatedAt.Local().Format(time.RFC3339),
			string(t.Type),
			fmt.Sprintf("%+d", t.Points),
			strconv.Itoa(t.Metadata.NewBalance),
			t.Reason,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// formatMinutes renders minutes as H:MM.
func formatMinutes(mins int) string {
	return fmt.Sprintf("%d:%02d", mins/60, mins%60)
}
