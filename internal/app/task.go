package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/focusd/internal/client"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
	Long: `Create and complete tasks. Completing a task earns points once; undoing
a completion more than five minutes later costs points.

Examples:
  focusd task add "write the quarterly report"
  focusd task list
  focusd task done 3
  focusd task undo 3`,
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := taskClient()
		if err != nil {
			return err
		}
		t, err := c.CreateTask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), t)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created task %d: %s\n", t.ID, t.Title)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := taskClient()
		if err != nil {
			return err
		}
		tasks, err := c.Tasks(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), tasks)
		}
		if len(tasks) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
			return nil
		}
		for _, t := range tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %3d  %s\n", mark, t.ID, t.Title)
		}
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setTask(cmd, args[0], true) },
}

var taskUndoCmd = &cobra.Command{
	Use:   "undo <id>",
	Short: "Mark a task not completed",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setTask(cmd, args[0], false) },
}

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskDoneCmd, taskUndoCmd)
	rootCmd.AddCommand(taskCmd)
}

func taskClient() (*client.Client, error) {
	cfg, log, err := loadConfig(os.Stderr)
	if err != nil {
		return nil, err
	}
	return newClient(cfg, log), nil
}

func setTask(cmd *cobra.Command, rawID string, completed bool) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid task id %q", rawID)
	}
	c, err := taskClient()
	if err != nil {
		return err
	}
	res, err := c.SetTaskCompleted(cmd.Context(), id, completed)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}

	out := cmd.OutOrStdout()
	state := "open"
	if res.Completed {
		state = "completed"
	}
	fmt.Fprintf(out, "Task %d is %s\n", res.ID, state)
	if p := res.Points; p != nil {
		if p.Awarded {
			fmt.Fprintf(out, "%+d points, balance %d\n", p.Points, p.NewBalance)
		} else if p.Reason != "" {
			fmt.Fprintf(out, "No points: %s\n", p.Reason)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
