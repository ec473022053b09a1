package cmd

import (
	"fmt"
	"os"

	"github.com/boozedog/chronicle/internal/report"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Recompute event ids and report any that do not match",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

var compactCmd = &cobra.Command{
	Use:   "compact <path>",
	Short: "Remove exact consecutive duplicate lines",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompact,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex <path>",
	Short: "Rebuild the event id index side-car",
	Args:  cobra.ExactArgs(1),
	RunE:  runReindex,
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <path>",
	Short: "Remove the writer lock if its holder is gone",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlock,
}

func init() {
	addTimeoutFlag(compactCmd)
	addTimeoutFlag(reindexCmd)
	rootCmd.AddCommand(verifyCmd, compactCmd, reindexCmd, unlockCmd)
}

func runVerify(_ *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	ms, err := store.Verify(args[0])
	if err != nil {
		return err
	}
	if err := report.WriteMismatches(os.Stdout, args[0], ms); err != nil {
		return err
	}
	if len(ms) > 0 {
		return fmt.Errorf("%s: %d events failed verification", args[0], len(ms))
	}
	return nil
}

func runCompact(_ *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	removed, err := store.Compact(args[0], lockTimeout())
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d duplicate lines from %s\n", removed, args[0])
	return nil
}

func runReindex(_ *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	n, err := store.Reindex(args[0], lockTimeout())
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d events in %s\n", n, args[0])
	return nil
}

func runUnlock(_ *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	file, err := store.FilePath(args[0])
	if err != nil {
		return err
	}
	removed, err := store.Locks().CleanStaleLocks(file)
	if err != nil {
		return fmt.Errorf("clean stale lock: %w", err)
	}
	if removed {
		fmt.Printf("Removed stale lock on %s\n", args[0])
		return nil
	}

	info, held, err := store.Locks().Holder(file)
	if err != nil {
		return fmt.Errorf("read lock: %w", err)
	}
	if held && info.PID == 0 {
		fmt.Printf("Lock on %s is unreadable and not yet stale\n", args[0])
		return nil
	}
	if held {
		fmt.Printf("Lock on %s is held by live pid %d since %s\n", args[0], info.PID, info.Acquired.Format("2006-01-02 15:04:05"))
		return nil
	}
	fmt.Printf("No lock on %s\n", args[0])
	return nil
}
