package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/calder/relay/internal/archive"
	"github.com/calder/relay/internal/db"
	"github.com/calder/relay/internal/dispatch"
	"github.com/calder/relay/internal/logging"
	"github.com/calder/relay/internal/spool"
	"github.com/calder/relay/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run dispatcher with a live terminal view",
	Long: `Run the dispatch loop in the foreground with a terminal UI that
refreshes queue and history state every second. Tasks dropped into the
spool directory are picked up while the view is open.

Press q to quit.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := initLogging(cfg); err != nil {
		return fmt.Errorf("init logging: %w", err)
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d := dispatch.New(
		dispatch.WithRegistry(buildRegistry(cfg)),
		dispatch.WithArchive(store),
		dispatch.WithLogger(logging.Component("dispatch")),
		dispatch.WithConfig(dispatch.Config{
			PollInterval: cfg.Queue.PollInterval,
			HistoryLimit: cfg.Queue.HistoryLimit,
		}),
	)
	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	defer d.Stop()

	watcher, err := spool.New(cfg.Spool.Dir, d, logging.Component("spool"))
	if err != nil {
		return fmt.Errorf("init spool: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start spool watcher: %w", err)
	}

	program := tea.NewProgram(ui.NewWatch(d.Status, d.History))
	go func() {
		<-ctx.Done()
		program.Quit()
	}()
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running view: %w", err)
	}
	return nil
}
