package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sides/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sides server",
	Long: `Start the sides HTTP server.

The server provides:
  - POST /pdf/extract - Extract dialogue from a base64 PDF data URL
  - /health           - Basic server health check
  - /ready            - Readiness check (default provider registered)
  - /status           - Providers and rate limiter state
  - /swagger          - API documentation

Provider and extraction settings are reloaded when the config file changes.

Examples:
  sides serve                    # Start on 127.0.0.1:3000
  sides serve --port 8080        # Start on custom port
  sides serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, logger, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		host, port := cfg.Server.Host, cfg.Server.Port
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			WriteTimeout:  time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
			MaxBodyBytes:  int64(cfg.Server.MaxBodyMB) << 20,
			ConfigManager: mgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		if file := mgr.ConfigFile(); file != "" {
			logger.Info("watching config file", "file", file)
			mgr.WatchConfig()
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to (default: server.host from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "3000", "Port to listen on (default: server.port from config)")

	rootCmd.AddCommand(serveCmd)
}
