// Package app assembles the swap station service from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anhkiet307/swapstation/api"
	"github.com/anhkiet307/swapstation/config"
	"github.com/anhkiet307/swapstation/core/dispatch"
	"github.com/anhkiet307/swapstation/core/dispatch/logging"
	"github.com/anhkiet307/swapstation/core/inventory"
	coremetrics "github.com/anhkiet307/swapstation/core/metrics"
	coremon "github.com/anhkiet307/swapstation/core/monitoring"
	_ "github.com/anhkiet307/swapstation/infra/inventory"
	_ "github.com/anhkiet307/swapstation/infra/lock"
	"github.com/anhkiet307/swapstation/infra/logger"
	"github.com/anhkiet307/swapstation/infra/metrics"
	"github.com/anhkiet307/swapstation/infra/monitoring"
	"github.com/anhkiet307/swapstation/infra/mqtt"
	"github.com/anhkiet307/swapstation/internal/eventbus"
)

// Service owns every long-lived component of the process.
type Service struct {
	Manager *dispatch.DispatchManager
	Store   inventory.Store
	Logs    logging.LogStore
	Handler http.Handler

	cfg      *config.Config
	bus      *eventbus.Bus
	sink     coremetrics.MetricsSink
	notifier *mqtt.PahoNotifier
	log      logger.Logger
}

// New creates a Service from the configuration. Backends are built through
// their registries; the inventory is seeded from cfg.Inventory.Seed.
func New(ctx context.Context, cfg *config.Config) (_ *Service, err error) {
	logger.SetLevel(cfg.LogLevel)
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	svc := &Service{cfg: cfg, log: logg}
	defer func() {
		if err != nil {
			if cerr := svc.Close(); cerr != nil {
				logg.Errorf("cleanup after init failure: %v", cerr)
			}
		}
	}()

	svc.Store, err = inventory.New(cfg.Inventory.Module())
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}
	if err := inventory.Seed(ctx, svc.Store, cfg.Inventory.Seed); err != nil {
		return nil, err
	}

	locker, err := dispatch.NewLocker(cfg.Lock)
	if err != nil {
		return nil, fmt.Errorf("locker: %w", err)
	}
	engine, err := dispatch.NewEngine(cfg.Dispatch.Policy)
	if err != nil {
		return nil, err
	}
	opts := []dispatch.ExecutorOption{
		dispatch.WithTimeout(cfg.Dispatch.ExecuteTimeout()),
		dispatch.WithLogger(logger.New("executor")),
	}
	if locker != nil {
		opts = append(opts, dispatch.WithLocker(locker))
	}
	executor, err := dispatch.NewExecutor(svc.Store, opts...)
	if err != nil {
		return nil, err
	}

	svc.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	svc.bus = eventbus.New(eventbus.WithBuffer(64))

	svc.Manager, err = dispatch.NewDispatchManager(svc.Store, engine, executor, svc.sink, svc.bus, logger.New("dispatch"))
	if err != nil {
		return nil, fmt.Errorf("dispatch manager: %w", err)
	}
	svc.Manager.SetHistorySize(cfg.Dispatch.HistorySize)

	svc.Logs, err = logging.New(cfg.Logging.Module())
	if err != nil {
		return nil, fmt.Errorf("audit log: %w", err)
	}
	if svc.Logs != nil {
		svc.Manager.SetLogStore(svc.Logs)
	}

	if cfg.MQTT.Broker != "" {
		svc.notifier, err = mqtt.NewPahoNotifier(cfg.MQTT, logger.New("mqtt"))
		if err != nil {
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		svc.Manager.SetNotifier(svc.notifier)
	}

	svc.Handler = api.NewRouter(api.Deps{
		Dispatch:  svc.Manager,
		Slots:     svc.Store,
		Logs:      svc.Logs,
		LogsToken: cfg.HTTP.LogsToken,
		Timeout:   cfg.HTTP.RequestTimeout(),
		RateLimit: cfg.HTTP.RateLimit,
		Burst:     cfg.HTTP.Burst,
		Logger:    logger.New("http"),
	})
	return svc, nil
}

// Run serves the API until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink, s.log)
	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, port, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: s.cfg.HTTP.Addr, Handler: s.Handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("http listening on %s", s.cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.Manager != nil {
		// closes the bus and the audit log
		errs = append(errs, s.Manager.Close())
	} else {
		if s.bus != nil {
			s.bus.Close()
		}
		if s.Logs != nil {
			errs = append(errs, s.Logs.Close())
		}
	}
	if s.notifier != nil {
		s.notifier.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
