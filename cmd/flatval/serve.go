package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/flatval/internal/metrics"
	"github.com/aretw0/flatval/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP console",
	Long: `Serves the browser console and its JSON API. Entries are rendered on the
server; the page only posts toggles back. Sessions live in memory unless
redis.addr is set, in which case any number of replicas can share them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m := metrics.New()
		c, closeFn, err := newConsole(ctx, cfg, logger, m.Hooks().Merge(createDebugHooks(logger)))
		if err != nil {
			return err
		}
		defer func() {
			if err := closeFn(); err != nil {
				logger.Warn("Failed to close history store", "err", err)
			}
		}()

		go sweepViews(ctx, c, time.Minute, cfg.Server.ViewIdle, logger)

		srv := &http.Server{
			Addr: cfg.Server.Addr,
			Handler: server.NewHandler(c,
				server.WithLogger(logger),
				server.WithMetrics(m),
				server.WithExpandLimit(cfg.Render.ExpandLimit),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return server.Run(ctx, srv, cfg.Server.ShutdownTimeout, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addEvaluatorFlags(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().Duration("view-idle", 30*time.Minute, "Drop the display state of sessions unused this long (0 keeps it)")
}
