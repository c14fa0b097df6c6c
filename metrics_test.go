package marlin

import (
	"testing"
	"time"
)

func TestMetricsCommandCounts(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.CommandsHandled != 0 || snap.CommandsUnhandled != 0 {
		t.Errorf("Expected zero command counts initially, got %+v", snap)
	}

	m.ObserveCommand('G', 1, true)
	m.ObserveCommand('M', 105, true)
	m.ObserveCommand('G', 999, false)

	snap = m.Snapshot()
	if snap.CommandsHandled != 2 {
		t.Errorf("Expected 2 handled commands, got %d", snap.CommandsHandled)
	}
	if snap.CommandsUnhandled != 1 {
		t.Errorf("Expected 1 unhandled command, got %d", snap.CommandsUnhandled)
	}
}

func TestMetricsResends(t *testing.T) {
	m := NewMetrics()

	m.ObserveResend(42)
	m.ObserveResend(43)

	snap := m.Snapshot()
	if snap.Resends != 2 {
		t.Errorf("Expected 2 resends, got %d", snap.Resends)
	}
}

func TestMetricsBytesInOut(t *testing.T) {
	m := NewMetrics()

	m.ObserveBytesIn(128)
	m.ObserveBytesOut(64)
	m.ObserveBytesIn(32)

	snap := m.Snapshot()
	if snap.BytesIn != 160 {
		t.Errorf("Expected 160 bytes in, got %d", snap.BytesIn)
	}
	if snap.BytesOut != 64 {
		t.Errorf("Expected 64 bytes out, got %d", snap.BytesOut)
	}
}

func TestMetricsTemperature(t *testing.T) {
	m := NewMetrics()

	m.ObserveTemperature(0, 200.0, 210.0)
	m.ObserveTemperature(-1, 60.0, 60.0)

	snap := m.Snapshot()
	tool0 := snap.Temperatures[0]
	if tool0.Current != 200.0 || tool0.Target != 210.0 {
		t.Errorf("Expected tool 0 at 200/210, got %+v", tool0)
	}
	bed := snap.Temperatures[-1]
	if bed.Current != 60.0 || bed.Target != 60.0 {
		t.Errorf("Expected bed at 60/60, got %+v", bed)
	}
}

func TestMetricsQueueDepth(t *testing.T) {
	m := NewMetrics()

	m.ObserveQueueDepth(10)
	m.ObserveQueueDepth(20)
	m.ObserveQueueDepth(15)

	snap := m.Snapshot()
	if snap.MaxQueueDepth != 20 {
		t.Errorf("Expected max queue depth 20, got %d", snap.MaxQueueDepth)
	}

	expectedAvg := float64(10+20+15) / 3.0
	if snap.AvgQueueDepth < expectedAvg-0.1 || snap.AvgQueueDepth > expectedAvg+0.1 {
		t.Errorf("Expected avg queue depth %.1f, got %.1f", expectedAvg, snap.AvgQueueDepth)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*1_000_000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+2*1_000_000 {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.ObserveCommand('G', 1, true)
	m.ObserveBytesIn(100)
	m.ObserveQueueDepth(10)
	m.ObserveTemperature(0, 200, 210)

	snap := m.Snapshot()
	if snap.CommandsHandled == 0 {
		t.Error("Expected some commands recorded before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.CommandsHandled != 0 || snap.BytesIn != 0 || snap.MaxQueueDepth != 0 {
		t.Errorf("Expected zeroed metrics after reset, got %+v", snap)
	}
	if len(snap.Temperatures) != 0 {
		t.Errorf("Expected no temperature samples after reset, got %+v", snap.Temperatures)
	}
}

func TestNoOpObserverDoesNotPanic(t *testing.T) {
	var observer NoOpObserver
	observer.ObserveCommand('G', 1, true)
	observer.ObserveResend(1)
	observer.ObserveBytesIn(1)
	observer.ObserveBytesOut(1)
	observer.ObserveTemperature(0, 1, 1)
	observer.ObserveQueueDepth(1)
}
