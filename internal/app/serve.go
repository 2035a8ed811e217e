package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sadopc/focusd/internal/points"
	"github.com/sadopc/focusd/internal/server"
	"github.com/sadopc/focusd/internal/session"
	"github.com/sadopc/focusd/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the focusd HTTP server",
	Long: `Serve the session, task and points API.

The user is taken from the X-Auth-User, X-Forwarded-User or Remote-User
header set by an authenticating proxy. Set server.dev_user to accept
requests without one during development.

Examples:
  focusd serve
  focusd serve --addr :9090
  FOCUSD_DB_DRIVER=postgres FOCUSD_DB_DSN=postgres://... focusd serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	db, err := store.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	engine := points.NewEngine(db, points.Options{
		DailyFocusCap: cfg.Points.DailyFocusCap,
		Logger:        log,
	})
	sessions := session.NewService(db, engine, session.Options{
		DailyGoalMinutes: cfg.Goal.DailyMinutes,
		Location:         loc,
		Logger:           log,
	})
	srv := server.New(server.Config{
		Sessions: sessions,
		Points:   engine,
		Tasks:    db,
		DB:       db,
		DevUser:  cfg.Server.DevUser,
		Logger:   log,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting server", "driver", cfg.DB.Driver, "tz", loc.String(), "goal", cfg.Goal.DailyMinutes, "version", appVersion)
	return srv.ListenAndServe(ctx, addr)
}
