package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/boozedog/chronicle/internal/chronicle"
	"github.com/boozedog/chronicle/internal/config"
	"github.com/boozedog/chronicle/internal/identity"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Append-only event logs for agent toolchains",
	Long: `Records planning, build, file and deploy events in append-only .sage logs.
Appends are idempotent, safe across processes, and never leave a torn file.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	rootDir     string
	verbose     bool
	sessionFlag string
	timeoutFlag time.Duration
)

// cfg is loaded once per invocation by setup.
var cfg *config.Config

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "directory chronicle paths are resolved against (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&sessionFlag, "session", "", "session id recorded as the actor id")
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = loaded

	level := cfg.Level()
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if sessionFlag != "" {
		identity.SetSessionID(sessionFlag)
	}
	return nil
}

// openStore builds a store from the loaded config and the --root flag.
func openStore() (*chronicle.Store, error) {
	root := rootDir
	if root == "" {
		root = cfg.Settings.Root
	}
	root, err := config.ExpandPath(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	return chronicle.NewStore(root, cfg.StoreOptions(slog.Default())), nil
}

// lockTimeout is --timeout when given, else the configured default.
func lockTimeout() time.Duration {
	if timeoutFlag > 0 {
		return timeoutFlag
	}
	return cfg.AppendTimeout()
}

// addTimeoutFlag registers --timeout on commands that take the writer lock.
func addTimeoutFlag(c *cobra.Command) {
	c.Flags().DurationVar(&timeoutFlag, "timeout", 0, "how long to wait for the writer lock (default from config)")
}
