package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/borgmon/transit-snoozer/pkg/bridge"
	"github.com/borgmon/transit-snoozer/pkg/metrics"
	"github.com/borgmon/transit-snoozer/pkg/models"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run the background notification listener",
	Long: `Capture notifications from the session bus, sound the alarm when the
monitored app announces your stop, and mirror everything to the tray app
over NATS.`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var b bridge.Background
	if cfg.Bridge.NATSURL != "" {
		nc, err := connectNATS("transit-snoozer-listener")
		if err != nil {
			return err
		}
		defer nc.Close()
		b = natsBridge(nc, models.OriginBackground)
	} else {
		logger.Warn("no bridge.nats_url configured, notifications will only be queued")
		b = bridge.NewLocal()
	}

	if cfg.Metrics.Addr != "" {
		metrics.Init()
		srv := metricsServer(cfg.Metrics.Addr)
		go func() {
			logger.Info("metrics listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	svc, _, cleanup := newListener(b)
	defer cleanup()

	err := svc.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
