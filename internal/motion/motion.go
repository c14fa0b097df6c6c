// Package motion tracks print-head position, unit mode, and speed, and
// computes the duration of a move the way the firmware's buffered-move
// worker sleeps it out.
package motion

import (
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/ehrlich-b/virtualmarlin/internal/constants"
)

var (
	matchX = regexp.MustCompile(`X([0-9.]+)`)
	matchY = regexp.MustCompile(`Y([0-9.]+)`)
	matchZ = regexp.MustCompile(`Z([0-9.]+)`)
	matchE = regexp.MustCompile(`E([0-9.]+)`)
)

const inchToMM = 2.54

// State is the position/unit/speed bookkeeping a single owner goroutine
// mutates per tick (either the reader, for synchronous G28, or the move
// worker, for queued G0-G3) — guarded by a mutex per the spec's "make
// sharing explicit" guidance rather than relying on a language GIL.
type State struct {
	mu           sync.Mutex
	lastX        *float64
	lastY        *float64
	lastZ        *float64
	lastE        *float64
	relative     bool
	unitModifier float64
	speeds       map[byte]float64
}

// NewState creates motion state in relative mode, millimeters, with the
// given per-axis speed table (falls back to constants.DefaultSpeeds when
// speeds is nil). The firmware boots relative, not absolute.
func NewState(speeds map[byte]float64) *State {
	if speeds == nil {
		speeds = constants.DefaultSpeeds
	}
	return &State{relative: true, unitModifier: 1.0, speeds: speeds}
}

// SetRelative toggles relative (G91) vs absolute (G90) mode.
func (s *State) SetRelative(relative bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relative = relative
}

// SetInches switches to inch mode (G20), rescaling any known last_*
// positions from mm to inches so a subsequent absolute move's delta stays
// correct in the new unit.
func (s *State) SetInches() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unitModifier = 1.0 / inchToMM
	scale(s.lastX, inchToMM)
	scale(s.lastY, inchToMM)
	scale(s.lastZ, inchToMM)
	scale(s.lastE, inchToMM)
}

// SetMillimeters switches to millimeter mode (G21), rescaling any known
// last_* positions back from inches to mm.
func (s *State) SetMillimeters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unitModifier = 1.0
	unscale(s.lastX, inchToMM)
	unscale(s.lastY, inchToMM)
	unscale(s.lastZ, inchToMM)
	unscale(s.lastE, inchToMM)
}

func scale(p *float64, factor float64) {
	if p != nil {
		*p *= factor
	}
}

func unscale(p *float64, factor float64) {
	if p != nil {
		*p /= factor
	}
}

// Position reports the last known X, Y, Z, E (zero when unknown, matching
// the firmware's "unknown == origin" convention for reporting).
func (s *State) Position() (x, y, z, e float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deref(s.lastX), deref(s.lastY), deref(s.lastZ), deref(s.lastE)
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// SetPosition implements G92: sets last_* to the given axis values, or
// zeroes all four when no axis is mentioned in line.
func (s *State) SetPosition(line string) {
	x, hasX := findFloat(matchX, line)
	y, hasY := findFloat(matchY, line)
	z, hasZ := findFloat(matchZ, line)
	e, hasE := findFloat(matchE, line)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !hasX && !hasY && !hasZ && !hasE {
		zero := 0.0
		s.lastX, s.lastY, s.lastZ, s.lastE = &zero, &zero, &zero, &zero
		return
	}
	if hasX {
		s.lastX = &x
	}
	if hasY {
		s.lastY = &y
	}
	if hasZ {
		s.lastZ = &z
	}
	if hasE {
		s.lastE = &e
	}
}

// PerformMove implements G0-G3/G28: computes the move's duration from the
// axes mentioned in line and sleeps it out in slices of sliceInterval so a
// cancellation signal can be observed between slices. killed is polled
// before each slice; PerformMove returns early if it ever reports true.
func (s *State) PerformMove(line string, sliceInterval time.Duration, killed func() bool) {
	duration := s.computeDuration(line)
	if duration <= 0 {
		return
	}
	slept := time.Duration(0)
	total := time.Duration(duration * float64(time.Second))
	for total-slept > sliceInterval {
		if killed != nil && killed() {
			return
		}
		time.Sleep(sliceInterval)
		slept += sliceInterval
	}
}

func (s *State) computeDuration(line string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	duration := 0.0
	if v, ok := findFloat(matchX, line); ok {
		duration = maxAxisDuration(duration, v, s.lastX, s.relative, s.unitModifier, s.speeds['x'])
		s.lastX = &v
	}
	if v, ok := findFloat(matchY, line); ok {
		duration = maxAxisDuration(duration, v, s.lastY, s.relative, s.unitModifier, s.speeds['y'])
		s.lastY = &v
	}
	if v, ok := findFloat(matchZ, line); ok {
		duration = maxAxisDuration(duration, v, s.lastZ, s.relative, s.unitModifier, s.speeds['z'])
		s.lastZ = &v
	}
	if v, ok := findFloat(matchE, line); ok {
		duration = maxAxisDuration(duration, v, s.lastE, s.relative, s.unitModifier, s.speeds['e'])
		s.lastE = &v
	}
	return duration
}

func maxAxisDuration(current, value float64, last *float64, relative bool, unitModifier, speed float64) float64 {
	if speed == 0 {
		return current
	}
	var d float64
	if relative || last == nil {
		d = value * unitModifier / speed * 60.0
	} else {
		d = (value - *last) * unitModifier / speed * 60.0
	}
	if d > current {
		return d
	}
	return current
}

func findFloat(re *regexp.Regexp, line string) (float64, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
