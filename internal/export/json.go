package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/focusd/internal/store"
)

type jsonExport struct {
	ExportedAt   string     `json:"exported_at"`
	GoalMinutes  int        `json:"goal_minutes"`
	Days         []jsonDay  `json:"days"`
	Transactions []jsonTx   `json:"transactions"`
	Summary      jsonTotals `json:"summary"`
}

type jsonDay struct {
	Date             string `json:"date"`
	CompletedMinutes int    `json:"completed_minutes"`
	ActiveMinutes    int    `json:"active_minutes"`
	Total            string `json:"total"`
	Sessions         int    `json:"sessions"`
	Achieved         bool   `json:"achieved"`
}

type jsonTx struct {
	ID      int64  `json:"id"`
	Time    string `json:"time"`
	Type    string `json:"type"`
	Points  int    `json:"points"`
	Balance int    `json:"balance"`
	Reason  string `json:"reason"`
}

type jsonTotals struct {
	Days           int `json:"days"`
	AchievedDays   int `json:"achieved_days"`
	FocusMinutes   int `json:"focus_minutes"`
	PointsEarned   int `json:"points_earned"`
	PointsDeducted int `json:"points_deducted"`
}

// ToJSON writes daily records and ledger history to one document.
func ToJSON(days []store.DailySession, txs []store.Transaction, goal int, path string) error {
	export := jsonExport{
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		GoalMinutes: goal,
	}

	for _, d := range days {
		export.Days = append(export.Days, jsonDay{
			Date:             d.Day,
			CompletedMinutes: d.CompletedMinutes,
			ActiveMinutes:    d.ActiveMinutes,
			Total:            formatMinutes(d.TotalMinutes()),
			Sessions:         d.SessionsCompleted,
			Achieved:         d.Achieved,
		})
		export.Summary.Days++
		export.Summary.FocusMinutes += d.CompletedMinutes
		if d.Achieved {
			export.Summary.AchievedDays++
		}
	}

	for _, t := range txs {
		export.Transactions = append(export.Transactions, jsonTx{
			ID:      t.ID,
			Time:    t.CreatedAt.Local().Format(time.RFC3339),
			Type:    string(t.Type),
			Points:  t.Points,
			Balance: t.Metadata.NewBalance,
			Reason:  t.Reason,
		})
		if t.Points >= 0 {
			export.Summary.PointsEarned += t.Points
		} else {
			export.Summary.PointsDeducted -= t.Points
		}
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
