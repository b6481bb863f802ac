// Package netx implements the connectivity monitor: a fail-closed
// point-in-time connectivity check plus a subscription mechanism for
// online/offline transitions.
//
// A device is "online" only when the platform reports a link AND an
// internet-reachability probe succeeds; Wi-Fi with no internet counts as
// offline.
package netx

import (
	"context"
	"sync"
	"time"

	"github.com/fieldvisor/auditsync/internal/logging"
)

// State is one reachability sample from the platform layer.
// InternetReachable is the platform's own internet verdict: when false it
// vetoes the sample without running the probe. Links that cannot assess
// reachability report it mirroring Connected and let the probe decide.
type State struct {
	Connected         bool
	InternetReachable bool
	Type              string
}

// Link reports the current platform link state. It is the boundary to the
// platform reachability API.
type Link interface {
	State(ctx context.Context) (State, error)
}

// Monitor answers point-in-time connectivity queries and notifies
// subscribers on every online/offline transition.
type Monitor struct {
	link   Link
	prober Prober
	log    logging.Logger

	interval time.Duration

	mu     sync.Mutex
	online bool
	known  bool
	subs   map[int]func(online bool)
	nextID int
}

type MonitorOption func(*Monitor)

func WithProber(p Prober) MonitorOption {
	return func(m *Monitor) { m.prober = p }
}

func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.interval = d }
}

func WithLogger(log logging.Logger) MonitorOption {
	return func(m *Monitor) { m.log = log }
}

func NewMonitor(link Link, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		link:     link,
		prober:   NewHTTPProber(""),
		log:      logging.NewDiscard(),
		interval: 15 * time.Second,
		subs:     make(map[int]func(bool)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Check queries current connectivity. It never returns an error: any failure
// in the underlying link or probe is treated as offline, so the engine does
// not attempt doomed network calls on uncertain connectivity.
func (m *Monitor) Check(ctx context.Context) bool {
	online := m.sample(ctx)
	m.setOnline(ctx, online)
	return online
}

func (m *Monitor) sample(ctx context.Context) bool {
	state, err := m.link.State(ctx)
	if err != nil {
		m.log.Warn(ctx, "link state query failed, treating as offline", "error", err)
		return false
	}
	if !state.Connected || !state.InternetReachable {
		return false
	}
	if err := m.prober.Probe(ctx); err != nil {
		m.log.Debug(ctx, "reachability probe failed", "type", state.Type, "error", err)
		return false
	}
	return true
}

// Online returns the last known connectivity state without touching the
// network. Before the first sample it reports false.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers fn to be invoked on every online/offline transition
// and returns a disposer. A panicking subscriber does not prevent delivery
// to the others.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Update feeds a platform-pushed reachability event into the monitor, for
// platforms that deliver change notifications instead of being polled.
// The probe conjunction still applies.
func (m *Monitor) Update(ctx context.Context, state State) {
	online := false
	if state.Connected && state.InternetReachable {
		online = m.prober.Probe(ctx) == nil
	}
	m.setOnline(ctx, online)
}

// Run samples connectivity on a fixed interval until ctx is canceled,
// driving transition notifications. Callers run it in a goroutine.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

func (m *Monitor) setOnline(ctx context.Context, online bool) {
	m.mu.Lock()
	changed := !m.known || m.online != online
	m.online = online
	m.known = true

	var subs []func(bool)
	if changed {
		subs = make([]func(bool), 0, len(m.subs))
		for _, fn := range m.subs {
			subs = append(subs, fn)
		}
	}
	m.mu.Unlock()

	if !changed {
		return
	}

	m.log.Info(ctx, "connectivity changed", "online", online)
	for _, fn := range subs {
		notify(ctx, m.log, fn, online)
	}
}

func notify(ctx context.Context, log logging.Logger, fn func(bool), online bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "connectivity subscriber panicked", "panic", r)
		}
	}()
	fn(online)
}
