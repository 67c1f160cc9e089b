//go:build linux

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/code-sauce/procmetrics/internal/hoststat"
	"github.com/code-sauce/procmetrics/internal/logger"
	"github.com/code-sauce/procmetrics/internal/monconfig"
	"github.com/code-sauce/procmetrics/internal/monitor"
	"github.com/code-sauce/procmetrics/internal/monserver"
	"github.com/code-sauce/procmetrics/internal/procfile"
	"github.com/code-sauce/procmetrics/internal/procselect"
	"github.com/code-sauce/procmetrics/internal/proctrack"
)

func main() {
	cfg := monconfig.InitConfig()

	sugar := logger.NewLogger()
	defer sugar.Sync()

	var selector monitor.Selector
	if cfg.Pattern != nil {
		selector = procselect.NewCommandLine(cfg.Pattern, sugar)
	} else {
		selector = procselect.NewPids(cfg.Pids, sugar)
	}

	kinds := procfile.DefaultKinds()
	if cfg.NetReaders {
		kinds = append(kinds, procfile.NetKinds()...)
	}

	sink := monitor.LogSink{Log: sugar}
	mon := monitor.New(cfg.ID, selector, proctrack.NewStore(sugar), sink, kinds, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				mon.RunCycle()
				if cfg.HostMetrics {
					reportHostMetrics(cfg.ID, sink, sugar)
				}
			}
		}
	})

	if cfg.Address != "" {
		srv := &http.Server{Addr: cfg.Address, Handler: monserver.NewRouter(mon, sugar)}

		g.Go(func() error {
			sugar.Infof("debug server listening on %s", cfg.Address)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		sugar.Fatalf("agent stopped: %v", err)
	}
}

func reportHostMetrics(id string, sink monitor.Sink, log *zap.SugaredLogger) {
	values, err := hoststat.Collect()
	if err != nil {
		log.Warnf("cannot collect host metrics: %v", err)
		return
	}
	for name, value := range values {
		sink.EmitValue(name, value, map[string]string{"app": id})
	}
}
