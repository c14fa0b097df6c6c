package motion

import (
	"math"
	"testing"
	"time"
)

func TestSetPositionG92Explicit(t *testing.T) {
	s := NewState(nil)
	s.SetPosition("X1 Y2 Z3 E4")

	x, y, z, e := s.Position()
	if x != 1 || y != 2 || z != 3 || e != 4 {
		t.Errorf("Position() = %v,%v,%v,%v, want 1,2,3,4", x, y, z, e)
	}
}

func TestSetPositionG92NoAxisZeroesAll(t *testing.T) {
	s := NewState(nil)
	s.SetPosition("X5 Y5")
	s.SetPosition("G92")

	x, y, z, e := s.Position()
	if x != 0 || y != 0 || z != 0 || e != 0 {
		t.Errorf("Position() = %v,%v,%v,%v, want all zero", x, y, z, e)
	}
}

func TestUnitRoundTripIsIdempotent(t *testing.T) {
	s := NewState(nil)
	s.SetPosition("X10 Y20 Z5 E1")

	beforeX, beforeY, beforeZ, beforeE := s.Position()

	s.SetInches()
	s.SetMillimeters()

	afterX, afterY, afterZ, afterE := s.Position()

	const eps = 1e-9
	if math.Abs(beforeX-afterX) > eps || math.Abs(beforeY-afterY) > eps ||
		math.Abs(beforeZ-afterZ) > eps || math.Abs(beforeE-afterE) > eps {
		t.Errorf("G20;G21 round trip changed position: before=(%v,%v,%v,%v) after=(%v,%v,%v,%v)",
			beforeX, beforeY, beforeZ, beforeE, afterX, afterY, afterZ, afterE)
	}
}

func TestComputeDurationFirstSightingUsesAbsoluteValue(t *testing.T) {
	s := NewState(map[byte]float64{'x': 6000, 'y': 6000, 'z': 300, 'e': 200})
	d := s.computeDuration("G1 X600")
	// 600mm / 6000mm-per-min * 60s = 6s
	if math.Abs(d-6.0) > 1e-9 {
		t.Errorf("computeDuration() = %v, want 6.0", d)
	}
}

func TestComputeDurationAbsoluteModeUsesDelta(t *testing.T) {
	s := NewState(map[byte]float64{'x': 6000, 'y': 6000, 'z': 300, 'e': 200})
	s.SetRelative(false)
	s.computeDuration("G1 X600")
	d := s.computeDuration("G1 X1200")
	if math.Abs(d-6.0) > 1e-9 {
		t.Errorf("computeDuration() delta = %v, want 6.0", d)
	}
}

func TestComputeDurationRelativeModeIgnoresLast(t *testing.T) {
	s := NewState(map[byte]float64{'x': 6000, 'y': 6000, 'z': 300, 'e': 200})
	s.computeDuration("G1 X600")
	s.SetRelative(true)
	d := s.computeDuration("G1 X60")
	if math.Abs(d-0.6) > 1e-9 {
		t.Errorf("computeDuration() relative = %v, want 0.6", d)
	}
}

func TestPerformMoveSlicesAndHonorsKill(t *testing.T) {
	s := NewState(map[byte]float64{'x': 60, 'y': 6000, 'z': 300, 'e': 200})
	// 30mm at 60mm/min -> 30s duration, sliced at 5ms; kill after first slice.
	var calls int
	killed := func() bool {
		calls++
		return calls > 1
	}
	start := time.Now()
	s.PerformMove("G1 X30", 5*time.Millisecond, killed)
	if time.Since(start) > 100*time.Millisecond {
		t.Error("PerformMove did not honor kill signal promptly")
	}
}

func TestMovesAcrossMultipleAxesTakeTheMax(t *testing.T) {
	s := NewState(map[byte]float64{'x': 6000, 'y': 300, 'z': 300, 'e': 200})
	d := s.computeDuration("G1 X600 Y60")
	// X: 600/6000*60=6s, Y: 60/300*60=12s -> Y dominates.
	if math.Abs(d-12.0) > 1e-9 {
		t.Errorf("computeDuration() = %v, want 12.0", d)
	}
}
