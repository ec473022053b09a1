package cmd

import (
	"fmt"
	"os"

	"github.com/boozedog/chronicle/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config and create the chronicle root",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	path, err := config.DefaultPath()
	if err != nil {
		return err
	}

	if rootDir != "" {
		cfg.Settings.Root = rootDir
	}
	if err := cfg.EnsureDirs(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists at %s\n", path)
		return nil
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	root, err := cfg.RootDir()
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (root %s)\n", path, root)
	return nil
}
