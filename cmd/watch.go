package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/boozedog/chronicle/internal/chronicle"
	"github.com/boozedog/chronicle/internal/follow"
	"github.com/boozedog/chronicle/internal/report"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Print events as they are appended",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var watchFromStart bool

func init() {
	watchCmd.Flags().BoolVar(&watchFromStart, "from-start", false, "print existing events first")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	var opts []follow.Option
	if watchFromStart {
		opts = append(opts, follow.FromStart())
	}
	f, err := follow.New(store, args[0], opts...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return f.Run(ctx, func(e chronicle.Event) error {
		return report.WriteEvents(os.Stdout, []chronicle.Event{e}, report.JSON)
	})
}
