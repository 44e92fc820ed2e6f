package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder/relay/internal/archive"
	"github.com/calder/relay/internal/db"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show task history and daily summary",
	Long: `Show recently completed tasks from the archive along with a
summary of today's activity and whether the daemon is running.`,
	RunE: runStatus,
}

var (
	statusLastFlag  int
	statusTodayFlag bool
)

func init() {
	statusCmd.Flags().IntVarP(&statusLastFlag, "last", "n", 10, "Number of recent tasks to show")
	statusCmd.Flags().BoolVar(&statusTodayFlag, "today", false, "Show only today's summary")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = database.Close() }()

	store, err := archive.New(database)
	if err != nil {
		return err
	}

	if running, pid := isDaemonRunning(); running {
		fmt.Printf("daemon: running (pid %d)\n", pid)
	} else {
		fmt.Println("daemon: not running")
	}

	summary, err := store.TodaySummary()
	if err != nil {
		return fmt.Errorf("reading summary: %w", err)
	}
	fmt.Printf("today: %d tasks (%d completed, %d failed)\n",
		summary.Total, summary.Completed, summary.Failed)
	for agent, count := range summary.ByAgent {
		fmt.Printf("  %-14s %d\n", agent, count)
	}

	if statusTodayFlag {
		return nil
	}

	history, err := store.History(statusLastFlag)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if len(history) == 0 {
		fmt.Println("\nno archived tasks")
		return nil
	}

	fmt.Printf("\nlast %d tasks:\n", len(history))
	for _, t := range history {
		fmt.Println("  " + formatTaskLine(t))
	}
	return nil
}
