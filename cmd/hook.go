package cmd

import (
	"fmt"
	"log/slog"

	"github.com/boozedog/chronicle/internal/hook"
	"github.com/boozedog/chronicle/internal/project"
	"github.com/spf13/cobra"
)

var hookCmd = &cobra.Command{
	Use:   "hook <event-type> [path]",
	Short: "Record Claude Code hook events",
	Long: `Reads a hook payload from stdin and records it. Supported event types:

  post-tool   FILE_ADDED / FILE_MODIFIED for Write, Edit, MultiEdit and NotebookEdit

Without a path, events go to <project>/activity.sage, where the project is the
origin remote's owner/repo or the working directory's name.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runHook,
}

func init() {
	addTimeoutFlag(hookCmd)
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	input, err := hook.ReadInputFrom(cmd.InOrStdin())
	if err != nil {
		return err
	}

	switch args[0] {
	case "post-tool":
		path := project.ChroniclePath(input.CWD)
		if len(args) == 2 {
			path = args[1]
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		id, err := hook.HandlePostTool(store, path, input, lockTimeout())
		if err != nil {
			return err
		}
		if id != "" {
			slog.Debug("recorded tool use", "tool", input.ToolName, "path", path, "eventId", id)
		}
		return nil
	default:
		return fmt.Errorf("unknown hook event type: %s", args[0])
	}
}
