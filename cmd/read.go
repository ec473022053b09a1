package cmd

import (
	"os"

	"github.com/boozedog/chronicle/internal/chronicle"
	"github.com/boozedog/chronicle/internal/report"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Print every event in a chronicle",
	Args:  cobra.ExactArgs(1),
	RunE:  runRead,
}

var tailCmd = &cobra.Command{
	Use:   "tail <path>",
	Short: "Print the last events in a chronicle",
	Args:  cobra.ExactArgs(1),
	RunE:  runTail,
}

var (
	readFormat string
	tailCount  int
)

func init() {
	for _, c := range []*cobra.Command{readCmd, tailCmd} {
		c.Flags().StringVar(&readFormat, "format", "json", "output format: json or yaml")
	}
	tailCmd.Flags().IntVarP(&tailCount, "lines", "n", chronicle.DefaultTailCount, "number of events")
	rootCmd.AddCommand(readCmd, tailCmd)
}

func runRead(_ *cobra.Command, args []string) error {
	format, err := report.ParseFormat(readFormat, report.EventFormats)
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	events, err := store.ReadChronicle(args[0])
	if err != nil {
		return err
	}
	return report.WriteEvents(os.Stdout, events, format)
}

func runTail(_ *cobra.Command, args []string) error {
	format, err := report.ParseFormat(readFormat, report.EventFormats)
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	events, err := store.TailChronicle(args[0], tailCount)
	if err != nil {
		return err
	}
	return report.WriteEvents(os.Stdout, events, format)
}
