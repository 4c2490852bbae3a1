// Package connectivity publishes an advisory network reachability signal.
// The signal is eventually consistent: a remote call may still fail while
// Reachable reports true, so callers use it only as a routing hint.
package connectivity

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Veraticus/woodsnap/internal/common"
)

// Observer exposes the current reachability signal.
type Observer interface {
	Reachable() bool
}

// Static is an Observer with a fixed answer.
type Static bool

// Reachable implements Observer.
func (s Static) Reachable() bool { return bool(s) }

// DialFunc opens a connection; it matches (*net.Dialer).DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

const (
	defaultInterval     = 15 * time.Second
	defaultProbeTimeout = 3 * time.Second
)

// Monitor probes a TCP address in the background and stores the outcome.
type Monitor struct {
	dial     DialFunc
	logger   *slog.Logger
	stopCh   chan struct{}
	address  string
	interval time.Duration
	timeout  time.Duration
	stopOnce sync.Once
	state    atomic.Bool
}

// MonitorOption customizes a Monitor.
type MonitorOption func(*Monitor)

// WithDialer overrides how probes connect (useful for tests).
func WithDialer(dial DialFunc) MonitorOption {
	return func(m *Monitor) {
		if dial != nil {
			m.dial = dial
		}
	}
}

// WithProbeTimeout bounds a single probe.
func WithProbeTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the logger used to report transitions.
func WithLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// NewMonitor creates a Monitor for address ("host:port"). The signal starts
// reachable so the first identification is not forced offline before a probe completes.
func NewMonitor(address string, interval time.Duration, opts ...MonitorOption) *Monitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	m := &Monitor{
		address:  address,
		interval: interval,
		timeout:  defaultProbeTimeout,
		dial:     (&net.Dialer{}).DialContext,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = common.LoggerOrDefault(m.logger)
	m.state.Store(true)
	return m
}

// Reachable implements Observer.
func (m *Monitor) Reachable() bool {
	return m.state.Load()
}

// Start probes once synchronously, then keeps probing until ctx ends or Close is called.
func (m *Monitor) Start(ctx context.Context) {
	m.Probe(ctx)
	go m.loop(ctx)
}

// Probe runs a single reachability check and updates the signal.
func (m *Monitor) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	reachable := false
	conn, err := m.dial(probeCtx, "tcp", m.address)
	if err == nil {
		reachable = true
		_ = conn.Close()
	}

	if prev := m.state.Swap(reachable); prev != reachable {
		m.logger.Info("network reachability changed",
			"address", m.address,
			"reachable", reachable)
	}
	return reachable
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// Close stops background probing. It is safe to call more than once, and
// before Start.
func (m *Monitor) Close() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}
