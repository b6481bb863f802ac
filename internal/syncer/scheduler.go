package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fieldvisor/auditsync/internal/common"
	"github.com/fieldvisor/auditsync/internal/logging"
	"github.com/fieldvisor/auditsync/internal/netx"
)

// Scheduler owns the background triggers for drain cycles: a periodic timer
// and connectivity-restored notifications from the monitor. Triggers that
// collide with a running cycle are dropped, not deferred; the next tick
// picks the work up.
type Scheduler struct {
	engine  *Engine
	monitor *netx.Monitor
	log     logging.Logger

	interval time.Duration

	mu          sync.Mutex
	running     bool
	stop        chan struct{}
	unsubscribe func()
	wg          sync.WaitGroup
}

type SchedulerOption func(*Scheduler)

func WithSchedulerInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.interval = d }
}

func WithSchedulerLogger(log logging.Logger) SchedulerOption {
	return func(s *Scheduler) { s.log = log }
}

func NewScheduler(engine *Engine, monitor *netx.Monitor, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		engine:   engine,
		monitor:  monitor,
		log:      logging.NewDiscard(),
		interval: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the periodic loop and subscribes to connectivity
// transitions. Starting a started scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.unsubscribe = s.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		s.log.Info(ctx, "connectivity restored, triggering drain")
		s.trigger(ctx)
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				s.trigger(ctx)
			}
		}
	}()

	s.log.Info(ctx, "sync scheduler started", "interval", s.interval)
}

// Stop halts the loop and detaches from the monitor. It blocks until the
// background goroutine exits; an in-flight drain cycle finishes on its own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.wg.Wait()
}

func (s *Scheduler) trigger(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, err := s.engine.Drain(ctx)
		switch {
		case err == nil:
		case errors.Is(err, common.ErrSyncInProgress), errors.Is(err, common.ErrOffline):
			// expected; dropped triggers are picked up by the next tick
		default:
			s.log.Error(ctx, "drain trigger failed", "error", err)
		}
	}()
}
