package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Manage Claude Code hook integration",
}

var hooksInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the chronicle hooks into Claude Code settings",
	Long:  `Adds the chronicle hook commands to ~/.claude/settings.json. Existing hooks and settings are preserved.`,
	Args:  cobra.NoArgs,
	RunE:  runHooksInstall,
}

func init() {
	hooksCmd.AddCommand(hooksInstallCmd)
	rootCmd.AddCommand(hooksCmd)
}

const hookCommandPrefix = "chronicle hook "

// chronicleHooks maps Claude Code hook events to the matcher and command
// chronicle installs for them.
var chronicleHooks = map[string]struct{ matcher, command string }{
	"PostToolUse": {"Write|Edit|MultiEdit|NotebookEdit", hookCommandPrefix + "post-tool"},
}

func runHooksInstall(_ *cobra.Command, _ []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("get home dir: %w", err)
	}
	settingsPath := filepath.Join(home, ".claude", "settings.json")

	settings := make(map[string]any)
	data, err := os.ReadFile(settingsPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &settings); err != nil {
			return fmt.Errorf("parse %s: %w", settingsPath, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("read %s: %w", settingsPath, err)
	}

	hooks, _ := settings["hooks"].(map[string]any)
	if hooks == nil {
		hooks = make(map[string]any)
	}

	var installed []string
	for eventName, h := range chronicleHooks {
		groups, _ := hooks[eventName].([]any)
		if hasChronicleHook(groups) {
			fmt.Printf("  = %s\n", eventName)
			continue
		}
		hooks[eventName] = append(groups, map[string]any{
			"matcher": h.matcher,
			"hooks": []any{map[string]any{
				"type":    "command",
				"command": h.command,
				"async":   true,
			}},
		})
		installed = append(installed, eventName)
		fmt.Printf("  + %s\n", eventName)
	}
	if len(installed) == 0 {
		fmt.Println("All chronicle hooks already installed.")
		return nil
	}
	settings["hooks"] = hooks

	if err := os.MkdirAll(filepath.Dir(settingsPath), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	out, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(settingsPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", settingsPath, err)
	}
	fmt.Printf("Installed %d hook(s) in %s\n", len(installed), settingsPath)
	return nil
}

// hasChronicleHook reports whether any group already runs a chronicle hook.
func hasChronicleHook(groups []any) bool {
	for _, g := range groups {
		group, _ := g.(map[string]any)
		entries, _ := group["hooks"].([]any)
		for _, h := range entries {
			entry, _ := h.(map[string]any)
			if cmd, _ := entry["command"].(string); strings.HasPrefix(cmd, hookCommandPrefix) {
				return true
			}
		}
	}
	return false
}
