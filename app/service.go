package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kilianp07/clipcast/api/operator"
	"github.com/kilianp07/clipcast/config"
	"github.com/kilianp07/clipcast/core/dispatch"
	"github.com/kilianp07/clipcast/core/events"
	coremetrics "github.com/kilianp07/clipcast/core/metrics"
	"github.com/kilianp07/clipcast/core/model"
	"github.com/kilianp07/clipcast/core/platform"
	"github.com/kilianp07/clipcast/core/selector"
	"github.com/kilianp07/clipcast/infra/adapters"
	"github.com/kilianp07/clipcast/infra/content"
	"github.com/kilianp07/clipcast/infra/logger"
	"github.com/kilianp07/clipcast/infra/metrics"
	"github.com/kilianp07/clipcast/infra/sqlite"
	"github.com/kilianp07/clipcast/internal/eventbus"
)

// Service wires the store, selector, coordinator and operator surfaces
// together from the configuration.
type Service struct {
	Coordinator *dispatch.Coordinator
	Store       *sqlite.Store

	registry *platform.Registry
	cfg      *config.Config
	bus      eventbus.EventBus
	log      logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	st, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	reg, err := adapters.BuildRegistry(cfg.Platforms)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("platform registry: %w", err)
	}
	policy := cfg.Retry.Policy()
	sel, err := selector.New(st, st, reg, policy)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("selector: %w", err)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.Sink
	switch len(sinks) {
	case 0:
		sink = coremetrics.NopSink{}
	case 1:
		sink = sinks[0]
	default:
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New()
	blobs := content.NewFSBlobs(cfg.Storage.UploadDir)
	coord, err := dispatch.NewCoordinator(sel, reg, st, st, policy, cfg.Scheduler, sink, bus, blobs, logg)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("coordinator: %w", err)
	}

	return &Service{Coordinator: coord, Store: st, registry: reg, cfg: cfg, bus: bus, log: logg}, nil
}

// Run starts the dispatch loop and the HTTP surfaces, blocking until the
// context is cancelled. The first cycle runs immediately so that attempts
// left in flight by a crash are reaped without waiting a full interval.
func (s *Service) Run(ctx context.Context) error {
	go s.consumeEvents(ctx)

	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.API.Addr != "" {
		go s.serveAPI(ctx)
	}

	s.cycle(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	spec := fmt.Sprintf("@every %ds", s.cfg.Scheduler.PollIntervalSeconds)
	if _, err := c.AddFunc(spec, func() { s.cycle(ctx) }); err != nil {
		return fmt.Errorf("schedule cycles: %w", err)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Service) cycle(ctx context.Context) {
	rep, err := s.Coordinator.RunCycle(ctx, time.Now().UTC())
	if err != nil {
		s.log.Errorf("cycle error: %v", err)
		return
	}
	if rep.Attempted > 0 || rep.Reaped > 0 {
		s.log.Infof("cycle done: attempted=%d succeeded=%d failed=%d skipped=%d reaped=%d",
			rep.Attempted, rep.Succeeded, rep.Failed, rep.Skipped, rep.Reaped)
	}
}

func (s *Service) serveAPI(ctx context.Context) {
	mux := operator.Routes(s.Store, s.Store, s.registry, s.bus, s.cfg.API.Token)
	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Errorf("api server: %v", err)
	}
}

func (s *Service) consumeEvents(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			switch ev := e.(type) {
			case events.AttemptEvent:
				if ev.Status.Terminal() && ev.Status != model.StatusSucceeded {
					s.log.Warnf("attempt %s/%s #%d %s: %s", ev.ContentHash, ev.Platform, ev.Seq, ev.Status, ev.Detail)
				} else {
					s.log.Infof("attempt %s/%s #%d %s ref=%s", ev.ContentHash, ev.Platform, ev.Seq, ev.Status, ev.RemoteRef)
				}
			case events.CycleEvent:
				s.log.Debugf("cycle event: attempted=%d reaped=%d duration=%s", ev.Attempted, ev.Reaped, ev.Duration)
			case events.RetryRequestedEvent:
				s.log.Infof("retry requested for %s/%s: %s", ev.ContentHash, ev.Platform, ev.Note)
			}
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	return s.Store.Close()
}
