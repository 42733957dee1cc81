package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/KNICEX/quantflow/internal/service/journal"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/metric"
)

var _ Registry = (*Manager)(nil)

// ExitFunc is called when a worker ends on its own while still registered,
// i.e. it failed to start or left its schedule window.
type ExitFunc func(id string, final State)

type handle struct {
	id     string
	gen    uint64
	worker *Worker
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager 策略 id -> 运行中的 worker, 同一个 id 同时最多一个 worker
type Manager struct {
	mu      sync.Mutex
	handles map[string]*handle
	gen     uint64
	closed  bool
	wg      conc.WaitGroup

	baseCtx   context.Context
	cfg       Config
	connector *Connector
	sink      journal.Sink
	metrics   *metrics
	onExit    ExitFunc
}

type Option func(*Manager)

func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		m.cfg = cfg
	}
}

func WithConnector(c *Connector) Option {
	return func(m *Manager) {
		m.connector = c
	}
}

func WithSink(sink journal.Sink) Option {
	return func(m *Manager) {
		m.sink = sink
	}
}

func WithOnExit(fn ExitFunc) Option {
	return func(m *Manager) {
		m.onExit = fn
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(m *Manager) {
		m.metrics = newMetrics(mp)
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		handles: map[string]*handle{},
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cfg = m.cfg.withDefaults()
	if m.connector == nil {
		m.connector = NewConnector()
	}
	if m.metrics == nil {
		m.metrics = newMetrics(nil)
	}
	return m
}

// SetOnExit replaces the exit hook. It must be called before the first Start.
func (m *Manager) SetOnExit(fn ExitFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExit = fn
}

// Start registers a new worker for spec.Id and launches it. An existing
// worker for the id is cancelled, and the new one only begins once the old
// one has fully released its resources.
func (m *Manager) Start(spec Spec, creds exchange.Credentials) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		slog.Warn("engine closed, ignore start", "strategy_id", spec.Id)
		return
	}

	var prev <-chan struct{}
	if old, ok := m.handles[spec.Id]; ok {
		old.cancel()
		prev = old.done
		delete(m.handles, spec.Id)
	}

	m.gen++
	ctx, cancel := context.WithCancel(m.baseCtx)
	h := &handle{
		id:     spec.Id,
		gen:    m.gen,
		worker: NewWorker(spec, creds, m.cfg, m.connector, m.sink, m.metrics),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.handles[spec.Id] = h
	m.wg.Go(func() {
		m.run(ctx, h, prev)
	})
}

func (m *Manager) run(ctx context.Context, h *handle, prev <-chan struct{}) {
	defer close(h.done)
	defer h.cancel()
	if prev != nil {
		// 必须等旧 worker 完全退出, 即使自己已经被取消
		<-prev
	}

	if err := h.worker.Run(ctx); err != nil {
		slog.Warn("strategy worker ended", "strategy_id", h.id, "gen", h.gen, "error", err)
	}
	m.release(h)
}

// release deregisters h if it is still the current handle for its id.
func (m *Manager) release(h *handle) {
	m.mu.Lock()
	cur, ok := m.handles[h.id]
	self := ok && cur == h
	if self {
		delete(m.handles, h.id)
	}
	onExit := m.onExit
	m.mu.Unlock()

	if self && onExit != nil {
		onExit(h.id, h.worker.State())
	}
}

// Stop cancels the worker for id without waiting for it. The returned channel
// is closed once the worker has fully exited, and is already closed for
// unknown ids.
func (m *Manager) Stop(id string) <-chan struct{} {
	m.mu.Lock()
	h, ok := m.handles[id]
	if ok {
		delete(m.handles, id)
	}
	m.mu.Unlock()
	if !ok {
		return closedChan
	}
	h.cancel()
	return h.done
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (m *Manager) StopAll() {
	m.mu.Lock()
	handles := lo.Values(m.handles)
	m.handles = map[string]*handle{}
	m.mu.Unlock()
	for _, h := range handles {
		h.cancel()
	}
}

// Shutdown stops every worker, refuses further starts and waits for all
// worker goroutines or ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.StopAll()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if r := m.wg.WaitAndRecover(); r != nil {
			slog.Error("strategy worker panic", "panic", r.String())
		}
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) Running(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handles[id]
	return ok
}

func (m *Manager) State(id string) (State, bool) {
	m.mu.Lock()
	h, ok := m.handles[id]
	m.mu.Unlock()
	if !ok {
		return 0, false
	}
	return h.worker.State(), true
}

func (m *Manager) Ids() []string {
	m.mu.Lock()
	ids := lo.Keys(m.handles)
	m.mu.Unlock()
	sort.Strings(ids)
	return ids
}
