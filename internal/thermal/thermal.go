// Package thermal simulates hotend and bed temperatures advancing toward
// their targets, and implements the blocking heat-up wait used by M109/M190.
package thermal

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"sync"
	"time"
)

var (
	toolPattern = regexp.MustCompile(`T([0-9]+)`)
	sPattern    = regexp.MustCompile(`S([0-9]+)`)
)

// ParseHotendTarget extracts the optional tool number (default 0) and
// target temperature from an M104/M109 line, the way the firmware's
// _parseHotendCommand does. ok is false if no S value is present.
func ParseHotendTarget(line string) (tool int, value float64, ok bool) {
	tool = 0
	if m := toolPattern.FindStringSubmatch(line); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			tool = v
		}
	}
	m := sPattern.FindStringSubmatch(line)
	if m == nil {
		return tool, 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return tool, 0, false
	}
	return tool, v, true
}

// ParseBedTarget extracts the target temperature from an M140/M190 line.
func ParseBedTarget(line string) (value float64, ok bool) {
	m := sPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// State holds per-extruder and bed temperatures. Both the reader loop (every
// tick) and the heat-up waiter read and write it, so it is guarded by a
// mutex.
type State struct {
	mu         sync.Mutex
	temp       []float64
	target     []float64
	bedTemp    float64
	bedTarget  float64
	lastTempAt time.Time
	delta      float64
}

// NewState creates thermal state for the given extruder count, with hotend
// temperatures and targets starting at 0.0 and the bed's at 1.0 (matching
// the firmware's boot readings), and delta as the heat-up/settle tolerance.
func NewState(extruders int, delta float64) *State {
	if extruders < 1 {
		extruders = 1
	}
	s := &State{
		temp:       make([]float64, extruders),
		target:     make([]float64, extruders),
		bedTemp:    1.0,
		bedTarget:  1.0,
		lastTempAt: time.Now(),
		delta:      delta,
	}
	return s
}

// SetTarget sets the target temperature for a hotend (tool index) or the
// bed (isBed=true).
func (s *State) SetTarget(tool int, isBed bool, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if isBed {
		s.bedTarget = value
		return
	}
	if tool >= 0 && tool < len(s.target) {
		s.target[tool] = value
	}
}

// Tick advances every heater one step toward its target, at time now. The
// step size is derived from elapsed wall-clock time since the last tick,
// deliberately preserving the original's double-negation through
// math.Copysign (see spec's Design Notes on _simulateTemps).
func (s *State) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timeDiff := s.lastTempAt.Sub(now).Seconds()
	s.lastTempAt = now

	for i := range s.temp {
		s.temp[i] = step(s.temp[i], s.target[i], timeDiff, s.delta)
	}
	s.bedTemp = step(s.bedTemp, s.bedTarget, timeDiff, s.delta)
}

func step(cur, target, timeDiff, delta float64) float64 {
	if math.Abs(cur-target) <= delta {
		return cur
	}
	old := cur
	cur += math.Copysign(timeDiff*10, target-cur)
	if math.Copysign(1, target-old) != math.Copysign(1, target-cur) {
		cur = target
	}
	if cur < 0 {
		cur = 0
	}
	return cur
}

// Snapshot returns the current temperature/target pairs for every hotend
// plus the bed.
func (s *State) Snapshot() (temps, targets []float64, bedTemp, bedTarget float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	temps = append([]float64(nil), s.temp...)
	targets = append([]float64(nil), s.target...)
	return temps, targets, s.bedTemp, s.bedTarget
}

// Report formats the M105 temperature line. Single-extruder firmwares
// report "T:.. /.. B:.. /.. @:64"; multi-extruder firmwares lead with the
// bed and enumerate each tool as "T0:.. /..".
func (s *State) Report() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.temp) <= 1 {
		t, tt := s.temp[0], s.target[0]
		return fmt.Sprintf("T:%.2f /%.2f B:%.2f /%.2f @:64", t, tt, s.bedTemp, s.bedTarget)
	}

	line := fmt.Sprintf("B:%.2f /%.2f", s.bedTemp, s.bedTarget)
	for i := range s.temp {
		line += fmt.Sprintf(" T%d:%.2f /%.2f", i, s.temp[i], s.target[i])
	}
	line += " @:64"
	return line
}

// WaitForHeatup blocks, ticking the simulator and reporting the single
// heater's temperature once per second, until it settles within delta of
// target or killed() reports true. emit is called with each progress line
// ("T:<v>" or "B:<v>").
func (s *State) WaitForHeatup(tool int, isBed bool, killed func() bool, emit func(string)) {
	for !killed() {
		s.Tick(time.Now())

		var cur, target float64
		var label string
		s.mu.Lock()
		if isBed {
			cur, target, label = s.bedTemp, s.bedTarget, "B"
		} else if tool >= 0 && tool < len(s.temp) {
			cur, target, label = s.temp[tool], s.target[tool], "T"
		} else {
			s.mu.Unlock()
			return
		}
		delta := s.delta
		s.mu.Unlock()

		if math.Abs(cur-target) <= delta {
			return
		}
		emit(fmt.Sprintf("%s:%.2f", label, cur))
		time.Sleep(time.Second)
	}
}
