package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pkg.jsn.cam/synthgen/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generator API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, _, err := openService(ctx)
		if err != nil {
			return err
		}
		scope, err := cfg.Scope()
		if err != nil {
			return err
		}

		addr := cfg.HTTP.Addr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		return httpapi.NewServer(svc, scope, logger).ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}
