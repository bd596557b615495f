package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nutricoach/internal/server"
)

var serveAddr string

// serveCmd runs the HTTP chat surface
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat interface over HTTP",
	Long: `Starts an HTTP server with two endpoints:

  POST /chat     {"message": "..."} -> {"response": "..."}
  GET  /healthz  liveness probe

The server drains in-flight requests on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: config server.addr, \":8080\")")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	logger.Info("Starting HTTP server", zap.String("addr", addr))
	srv := server.New(a, addr)
	return srv.Run(cmd.Context())
}
