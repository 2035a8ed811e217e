package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/focusd/internal/client"
	"github.com/sadopc/focusd/internal/progress"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's focus time, level and streak",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusReport struct {
	Today   *client.Day      `json:"today"`
	Points  progress.Status  `json:"points"`
	Streaks progress.Streaks `json:"streaks"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	c := newClient(cfg, log)

	var r statusReport
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() (err error) {
		r.Today, err = c.Today(ctx)
		return err
	})
	g.Go(func() (err error) {
		r.Points, err = c.Points(ctx)
		return err
	})
	g.Go(func() (err error) {
		r.Streaks, err = c.Streak(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fetching status: %w", err)
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), r)
	}

	out := cmd.OutOrStdout()
	d := r.Today
	fmt.Fprintf(out, "Today (%s)\n", d.Day)
	fmt.Fprintf(out, "  Focus      %d / %d min", d.TotalMinutes, d.GoalMinutes)
	if d.Achieved {
		fmt.Fprint(out, "  goal reached")
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Completed  %d min in %d sessions\n", d.CompletedMinutes, d.SessionsCompleted)
	if d.ActiveMinutes > 0 {
		fmt.Fprintf(out, "  Active     %d min\n", d.ActiveMinutes)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Level %d  %d XP (%d%% to next level at %d)\n",
		r.Points.Level, r.Points.XP, r.Points.ProgressToNextLevel, r.Points.XPForNextLevel)
	fmt.Fprintf(out, "Streak %d days, longest %d\n", r.Streaks.Current, r.Streaks.Longest)
	return nil
}
