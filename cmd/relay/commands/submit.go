package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder/relay/internal/tasks"
)

var (
	submitType    string
	submitContent string
	submitID      string
	submitPrio    int
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Drop a task into the spool",
	Long: `Write a task file into the spool directory. A running daemon picks it
up immediately; otherwise the next sweep or one-shot run does.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		t := tasks.New(submitID, submitType, submitContent)
		if submitPrio > 0 {
			t.Priority = submitPrio
		}

		path, err := tasks.WriteFile(cfg.Spool.Dir, t)
		if err != nil {
			return err
		}

		fmt.Printf("queued %s (%s) -> %s\n", t.ID, t.Type, path)
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVarP(&submitType, "type", "t", "", "Task type (required)")
	submitCmd.Flags().StringVarP(&submitContent, "content", "c", "", "Task content")
	submitCmd.Flags().StringVar(&submitID, "id", "", "Task id (generated when empty)")
	submitCmd.Flags().IntVar(&submitPrio, "priority", 1, "Task priority (recorded, not consulted for ordering)")
	_ = submitCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(submitCmd)
}
