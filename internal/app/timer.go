package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sadopc/focusd/internal/client"
	"github.com/sadopc/focusd/internal/config"
	"github.com/sadopc/focusd/internal/elapsed"
	"github.com/sadopc/focusd/internal/timer"
	"github.com/sadopc/focusd/internal/tui"
)

var timerHeadless bool

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Run the focus timer",
	Long: `Run the focus timer against the configured server.

In a terminal this opens the interactive timer. Without one (or with
--headless) a focus interval starts immediately and progress is logged
until the process is interrupted.

A timer that was running when focusd last exited resumes with the time
that passed in between; if the interval ran out meanwhile it is reported
as completed on startup.`,
	RunE: runTimer,
}

func init() {
	timerCmd.Flags().BoolVar(&timerHeadless, "headless", false, "Run without the interactive interface")
	rootCmd.AddCommand(timerCmd)
}

// logFilePath is where the interactive timer logs, keeping stderr clear of
// the alternate screen.
func logFilePath() string {
	return filepath.Join(config.ConfigDir(), "focusd.log")
}

func runTimer(cmd *cobra.Command, _ []string) error {
	interactive := !timerHeadless && isatty.IsTerminal(os.Stdout.Fd())

	logOut := os.Stderr
	if interactive {
		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		f, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}
	cfg, log, err := loadConfig(logOut)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newClient(cfg, log)
	bus := timer.NewBus()
	m := timer.New(timer.Config{
		FocusMinutes: cfg.Timer.FocusMinutes,
		BreakMinutes: cfg.Timer.BreakMinutes,
		Store:        timer.NewFileStore(cfg.Timer.StateFile),
		Reporter:     c,
		Bus:          bus,
		Logger:       log,
	})
	restoreTimer(ctx, m, c, cfg, log)

	if interactive {
		app := tui.NewApp(tui.Options{
			Machine:     m,
			Bus:         bus,
			Backend:     c,
			GoalMinutes: cfg.Goal.DailyMinutes,
			OnSaveDurations: func(focus, brk int) error {
				return config.SaveTimer(cfg.File, focus, brk)
			},
		})
		p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
		_, err := p.Run()
		if ctx.Err() != nil {
			// A signal skips the quit key, which normally unloads.
			m.Unload()
			err = nil
		}
		if !m.Drain(timer.DrainTimeout) {
			log.Warn("exiting before the last save was acknowledged")
		}
		return err
	}

	return runHeadless(ctx, m, bus, log)
}

// restoreTimer brings the machine back to where the last run left it and
// loads today's completed minutes. Failures are logged; the timer still works
// offline.
func restoreTimer(ctx context.Context, m *timer.Machine, c *client.Client, cfg *config.Config, log *slog.Logger) {
	pending, err := m.Restore()
	if err != nil {
		log.Warn("restore timer snapshot, starting fresh", "err", err)
	}
	if pending {
		if err := m.Complete(ctx); err != nil {
			log.Warn("report interval finished while away", "err", err)
		}
	}
	if m.State() == timer.StateIdle {
		if err := m.SetDurations(cfg.Timer.FocusMinutes, cfg.Timer.BreakMinutes); err != nil {
			log.Warn("apply configured durations", "err", err)
		}
	}
	day, err := c.Today(ctx)
	if err != nil {
		log.Warn("load today", "err", err)
		return
	}
	m.SetCompleted(day.CompletedMinutes)
}

func runHeadless(ctx context.Context, m *timer.Machine, bus *timer.Bus, log *slog.Logger) error {
	if m.State() == timer.StateIdle {
		if err := m.Start(ctx, elapsed.ModeFocus); err != nil {
			return fmt.Errorf("start focus: %w", err)
		}
	}
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	go func() {
		for e := range events {
			switch e.Kind {
			case timer.EventState:
				continue
			case timer.EventSaveFailed, timer.EventCompleteFailed:
				log.Warn("timer event", "kind", e.Kind, "minutes", e.Minutes, "err", e.Err)
			default:
				totals := m.Totals()
				log.Info("timer event", "kind", e.Kind, "minutes", e.Minutes,
					"mode", e.Snapshot.Mode, "today", totals.TotalMinutes)
			}
		}
	}()

	snap := m.Snapshot()
	log.Info("timer running", "mode", snap.Mode, "left", snap.TimeLeft, "interval", snap.IntervalID)
	return m.Run(ctx, timer.DefaultSchedule)
}
