package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WatcherMetrics records chain watcher progress and failures.
type WatcherMetrics struct {
	cycles        prometheus.Counter
	eventsApplied *prometheus.CounterVec
	rpcErrors     prometheus.Counter
	cursorBlock   prometheus.Gauge
}

// NewWatcherMetrics registers the watcher metrics on the provided registerer.
func NewWatcherMetrics(reg prometheus.Registerer) *WatcherMetrics {
	if reg == nil {
		return &WatcherMetrics{}
	}
	cycles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watcher_cycles_total",
		Help: "Completed chain watcher poll cycles.",
	})
	eventsApplied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "watcher_events_applied_total",
		Help: "Settlement events applied to orders, by event type.",
	}, []string{"event"})
	rpcErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watcher_rpc_errors_total",
		Help: "Chain RPC failures observed by the watcher.",
	})
	cursorBlock := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "watcher_cursor_block",
		Help: "Last block number the watcher has fully applied.",
	})
	reg.MustRegister(cycles, eventsApplied, rpcErrors, cursorBlock)
	return &WatcherMetrics{
		cycles:        cycles,
		eventsApplied: eventsApplied,
		rpcErrors:     rpcErrors,
		cursorBlock:   cursorBlock,
	}
}

// IncCycle counts a completed poll cycle.
func (w *WatcherMetrics) IncCycle() {
	if w == nil || w.cycles == nil {
		return
	}
	w.cycles.Inc()
}

// IncEventApplied counts one applied settlement event.
func (w *WatcherMetrics) IncEventApplied(event string) {
	if w == nil || w.eventsApplied == nil {
		return
	}
	w.eventsApplied.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncRPCError counts a chain RPC failure.
func (w *WatcherMetrics) IncRPCError() {
	if w == nil || w.rpcErrors == nil {
		return
	}
	w.rpcErrors.Inc()
}

// SetCursorBlock records the last applied block number.
func (w *WatcherMetrics) SetCursorBlock(block uint64) {
	if w == nil || w.cursorBlock == nil {
		return
	}
	w.cursorBlock.Set(float64(block))
}
