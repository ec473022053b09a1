package cmd

import (
	"fmt"
	"os"

	"github.com/boozedog/chronicle/internal/report"
	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain <path>",
	Short: "Validate the prevEventId links of a chronicle",
	Long: `Reports events whose prevEventId is unknown, points at the event itself,
or points at a later event, and events that are cut off from the chain.`,
	Args: cobra.ExactArgs(1),
	RunE: runChain,
}

var (
	chainFormat string
	chainStrict bool
)

func init() {
	chainCmd.Flags().StringVar(&chainFormat, "format", "text", "output format: text, json, markdown or html")
	chainCmd.Flags().BoolVar(&chainStrict, "strict", false, "exit non-zero when any link is broken")
	rootCmd.AddCommand(chainCmd)
}

func runChain(_ *cobra.Command, args []string) error {
	format, err := report.ParseFormat(chainFormat, report.ChainFormats)
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	r, err := store.ValidateCausalChain(args[0])
	if err != nil {
		return err
	}
	if err := report.WriteChain(os.Stdout, r, format); err != nil {
		return err
	}
	if chainStrict && !r.Valid() {
		return fmt.Errorf("%s: %d broken links", args[0], len(r.BrokenLinks))
	}
	return nil
}
