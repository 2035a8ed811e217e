package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sadopc/focusd/internal/points"
	"github.com/sadopc/focusd/internal/store"
)

var ledgerUser string

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Maintain the points ledger",
}

var ledgerRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute a user's balance and level from the ledger",
	Long: `Recompute the cached balance and level of a user by summing every ledger
transaction. Runs against the server's database directly.

Examples:
  focusd ledger rebuild --user alice`,
	Args: cobra.NoArgs,
	RunE: runLedgerRebuild,
}

func init() {
	ledgerRebuildCmd.Flags().StringVar(&ledgerUser, "user", "", "User to rebuild (default: the configured user)")
	ledgerCmd.AddCommand(ledgerRebuildCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func runLedgerRebuild(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	user := ledgerUser
	if user == "" {
		user = cfg.User
	}

	db, err := store.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	engine := points.NewEngine(db, points.Options{Logger: log})
	st, err := engine.Rebuild(cmd.Context(), user)
	if err != nil {
		return fmt.Errorf("rebuilding balance: %w", err)
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), st)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d XP, level %d\n", user, st.XP, st.Level)
	return nil
}
