package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/equipoapa2-hub/autopic/api"
	"github.com/equipoapa2-hub/autopic/applog"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serves the assistant over HTTP:

  POST /api/ai/chat           {"message", "sessionId"}
  POST /api/ai/clear-context  {"sessionId"}
  GET  /active
  GET  /metrics               Prometheus
  GET  /health`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides config and PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if servePort != "" {
		appCfg.Server.Port = servePort
	}

	logger, closer := applog.New(applog.Options{Stdout: true, Level: applog.ParseLevel(logLevel)})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, appCfg, logger)
	if err != nil {
		logger.Error("Startup failed", "error", err)
		return err
	}
	defer rt.Close()

	rt.runJanitor(ctx)

	router := api.NewRouter(api.NewHandler(rt.assistant, logger), api.RouterOptions{
		AllowedOrigins: appCfg.Server.AllowedOrigins,
		Gatherer:       rt.registry,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + appCfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout: appCfg.Assistant.TurnTimeout() + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", "error", err)
			return err
		}
	case <-ctx.Done():
	}
	stop()

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return err
	}
	logger.Info("Server stopped successfully")
	return nil
}
