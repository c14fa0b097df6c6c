package marlin

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/virtualmarlin/internal/interfaces"
)

// Metrics tracks operational statistics for a running Printer.
type Metrics struct {
	CommandsHandled   atomic.Uint64 // commands a handler claimed
	CommandsUnhandled atomic.Uint64 // commands that fell through to the generic ok
	Resends           atomic.Uint64 // resend requests issued to the host
	BytesIn           atomic.Uint64 // bytes read off the channel
	BytesOut          atomic.Uint64 // bytes written to the channel

	QueueDepthTotal atomic.Uint64
	QueueDepthCount atomic.Uint64
	MaxQueueDepth   atomic.Uint32

	mu          sync.Mutex
	temperature map[int]tempSample

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

type tempSample struct {
	current, target float64
}

// NewMetrics creates a Metrics instance with its start time set to now.
func NewMetrics() *Metrics {
	m := &Metrics{temperature: make(map[int]tempSample)}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// ObserveCommand records whether a dispatched command was claimed by a
// handler or fell through to the generic trailing ok.
func (m *Metrics) ObserveCommand(letter byte, code int, handled bool) {
	_ = letter
	_ = code
	if handled {
		m.CommandsHandled.Add(1)
	} else {
		m.CommandsUnhandled.Add(1)
	}
}

// ObserveResend records a resend request issued for the given line number.
func (m *Metrics) ObserveResend(lineNo int) {
	_ = lineNo
	m.Resends.Add(1)
}

func (m *Metrics) ObserveBytesIn(n uint64)  { m.BytesIn.Add(n) }
func (m *Metrics) ObserveBytesOut(n uint64) { m.BytesOut.Add(n) }

// ObserveTemperature records the latest current/target reading for a tool.
// Tool -1 denotes the heated bed.
func (m *Metrics) ObserveTemperature(tool int, current, target float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.temperature[tool] = tempSample{current: current, target: target}
}

// ObserveQueueDepth records a move-queue depth sample.
func (m *Metrics) ObserveQueueDepth(depth uint32) {
	m.QueueDepthTotal.Add(uint64(depth))
	m.QueueDepthCount.Add(1)
	for {
		current := m.MaxQueueDepth.Load()
		if depth <= current {
			break
		}
		if m.MaxQueueDepth.CompareAndSwap(current, depth) {
			break
		}
	}
}

// Stop marks the printer as stopped for uptime accounting.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time, race-free copy of Metrics.
type MetricsSnapshot struct {
	CommandsHandled   uint64
	CommandsUnhandled uint64
	Resends           uint64
	BytesIn           uint64
	BytesOut          uint64
	AvgQueueDepth     float64
	MaxQueueDepth     uint32
	Temperatures      map[int]struct{ Current, Target float64 }
	UptimeNs          uint64
}

// Snapshot returns a consistent point-in-time copy of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		CommandsHandled:   m.CommandsHandled.Load(),
		CommandsUnhandled: m.CommandsUnhandled.Load(),
		Resends:           m.Resends.Load(),
		BytesIn:           m.BytesIn.Load(),
		BytesOut:          m.BytesOut.Load(),
		MaxQueueDepth:     m.MaxQueueDepth.Load(),
		Temperatures:      make(map[int]struct{ Current, Target float64 }),
	}

	if count := m.QueueDepthCount.Load(); count > 0 {
		snap.AvgQueueDepth = float64(m.QueueDepthTotal.Load()) / float64(count)
	}

	m.mu.Lock()
	for tool, s := range m.temperature {
		snap.Temperatures[tool] = struct{ Current, Target float64 }{s.current, s.target}
	}
	m.mu.Unlock()

	start := m.StartTime.Load()
	if stop := m.StopTime.Load(); stop > 0 {
		snap.UptimeNs = uint64(stop - start)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - start)
	}
	return snap
}

// Reset zeroes all counters, useful between test cases.
func (m *Metrics) Reset() {
	m.CommandsHandled.Store(0)
	m.CommandsUnhandled.Store(0)
	m.Resends.Store(0)
	m.BytesIn.Store(0)
	m.BytesOut.Store(0)
	m.QueueDepthTotal.Store(0)
	m.QueueDepthCount.Store(0)
	m.MaxQueueDepth.Store(0)
	m.mu.Lock()
	m.temperature = make(map[int]tempSample)
	m.mu.Unlock()
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// NoOpObserver discards every observation. It is the default when a Printer
// is constructed without an explicit Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveCommand(byte, int, bool)        {}
func (NoOpObserver) ObserveResend(int)                     {}
func (NoOpObserver) ObserveBytesIn(uint64)                 {}
func (NoOpObserver) ObserveBytesOut(uint64)                {}
func (NoOpObserver) ObserveTemperature(int, float64, float64) {}
func (NoOpObserver) ObserveQueueDepth(uint32)              {}

var (
	_ interfaces.Observer = (*Metrics)(nil)
	_ interfaces.Observer = NoOpObserver{}
)
