package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/filament-dev/filament/pkg/filament"
	"github.com/filament-dev/filament/pkg/inspect"
	"github.com/filament-dev/filament/pkg/observe"
)

func serveCmd() *cobra.Command {
	var address string
	var interval time.Duration
	var workers int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a synthetic workload behind the inspect server",
		Long: `serve drives a continuous reactive workload and exposes it at the
given address: /stats and /ws for live counters, /metrics for
Prometheus. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			registry := prometheus.NewRegistry()
			rt := filament.New()
			rt.Instrument(observe.NewMetrics(observe.WithRegistry(registry)))

			server := inspect.New(rt, &inspect.Config{
				Address:        address,
				StreamInterval: interval,
				Gatherer:       registry,
			})

			for i := 0; i < workers; i++ {
				go worker(ctx, rt, i)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()
			fmt.Printf("inspect server on http://%s (workers=%d)\n", address, workers)

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&address, "address", "localhost:6070", "listen address")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "stats stream interval")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent workload goroutines")
	return cmd
}

// worker runs an endless write/derive/notify loop so the inspect surface has
// something to show.
func worker(ctx context.Context, rt *filament.Runtime, n int) {
	sig := filament.NewSignalIn(rt, 0)
	doubled := filament.NewComputedIn(rt, func() int { return sig.Get() * 2 })
	eff := filament.NewEffectIn(rt, func() filament.Cleanup {
		_ = doubled.Get()
		return nil
	})
	defer eff.Dispose()

	logger := slog.Default().With("worker", n)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopping")
			return
		case <-ticker.C:
			filament.Batch(func() {
				for j := 0; j < 100; j++ {
					i++
					sig.Set(i)
				}
			})
		}
	}
}
