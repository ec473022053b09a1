package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/boozedog/chronicle/internal/web"
	"github.com/spf13/cobra"
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start the read-only web viewer",
	Long:  `Starts a local web server listing chronicles, their recent events and chain reports, with a JSON API and a live update stream.`,
	RunE:  runWeb,
}

var webPort int

func init() {
	webCmd.Flags().IntVar(&webPort, "port", 0, "port to listen on (default from config)")
	rootCmd.AddCommand(webCmd)
}

func runWeb(_ *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	webCfg := cfg.Web
	if webPort != 0 {
		webCfg.Port = webPort
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(store, webCfg)
	return srv.ListenAndServe(ctx)
}
