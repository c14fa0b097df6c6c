// Package dispatch parses a G-code command token and routes it to the
// per-letter and per-opcode handlers that mutate motion, thermal, and SD
// state -- the two-level lookup the reader loop drives once per accepted
// line.
package dispatch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ehrlich-b/virtualmarlin/internal/constants"
	"github.com/ehrlich-b/virtualmarlin/internal/motion"
	"github.com/ehrlich-b/virtualmarlin/internal/thermal"
)

// Result reports whether a handler fully answered the command. Handled
// suppresses only the generic trailing ok for that command -- post-dispatch
// hooks such as sleep_after still run on every path.
type Result int

const (
	NotHandled Result = iota
	Handled
)

// SDCard is the subset of the virtual SD subsystem the dispatcher drives.
// internal/sdcard.State satisfies it.
type SDCard interface {
	Ready() bool
	Mount()
	Unmount()
	List() []string
	Select(name string) []string
	WriteBegin(name string) []string
	WriteEnd()
	Delete(name string)
	Status() []string
	Start()
	Pause()
	SetPos(pos int64)
}

// Config holds the dialect options a handler needs to format its own
// response when it returns Handled.
type Config struct {
	SupportF    bool
	EchoM117    bool
	OkBefore    bool
	ReadTimeout time.Duration
}

// Dependencies wires the dispatcher to the rest of the printer. Emit sends a
// line to the host; Ok formats the generic "ok" (or "ok <N>") response for
// handlers that must prefix their own output with it.
type Dependencies struct {
	Motion      *motion.State
	Thermal     *thermal.State
	SD          SDCard
	Emit        func(line string)
	Ok          func() string
	EnqueueMove func(line string) error
	MoveBusy    func() bool
	Killed      func() bool
}

// Dispatcher routes a single command line to its letter and opcode handlers.
type Dispatcher struct {
	cfg  Config
	deps Dependencies
}

// New creates a Dispatcher. deps.Killed and deps.Ok must be non-nil.
func New(cfg Config, deps Dependencies) *Dispatcher {
	return &Dispatcher{cfg: cfg, deps: deps}
}

var tokenPattern = regexp.MustCompile(`^([GMTF])(\d+)`)

// ParseToken extracts the leading [GMTF]<code> token from line, for callers
// (the reader loop's post-dispatch hooks) that need the same token the
// dispatcher itself keys handlers on.
func ParseToken(line string) (letter byte, code int, ok bool) {
	m := tokenPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	code, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return m[1][0], code, true
}

// Dispatch parses the leading [GMTF]<code> token and routes it. A line with
// no recognizable token, or an opcode with no registered handler, is
// tolerated silently and reported as NotHandled.
func (d *Dispatcher) Dispatch(line string) Result {
	m := tokenPattern.FindStringSubmatch(line)
	if m == nil {
		return NotHandled
	}
	letter := m[1][0]
	code, err := strconv.Atoi(m[2])
	if err != nil {
		return NotHandled
	}

	if res, stop := d.dispatchLetter(letter, code); stop {
		return res
	}
	return d.dispatchOpcode(letter, code, line)
}

// dispatchLetter consults the per-letter handler. Only T and F have one in
// the original; G and M always fall through to the opcode table.
func (d *Dispatcher) dispatchLetter(letter byte, code int) (Result, bool) {
	switch letter {
	case 'T':
		d.deps.Emit(fmt.Sprintf("Active Extruder: %d", code))
		return NotHandled, true
	case 'F':
		if d.cfg.SupportF {
			d.deps.Emit("echo:changed F value")
			return NotHandled, true
		}
		d.deps.Emit("Error: Unknown command F")
		return Handled, true
	default:
		return NotHandled, false
	}
}

func (d *Dispatcher) dispatchOpcode(letter byte, code int, line string) Result {
	h, ok := opcodeHandlers[fmt.Sprintf("%c%d", letter, code)]
	if !ok {
		return NotHandled
	}
	return h(d, line)
}

type opcodeHandler func(d *Dispatcher, line string) Result

var opcodeHandlers = map[string]opcodeHandler{
	"M104": func(d *Dispatcher, line string) Result { d.setHotendTarget(line); return NotHandled },
	"M109": func(d *Dispatcher, line string) Result {
		tool := d.setHotendTarget(line)
		d.deps.Thermal.WaitForHeatup(tool, false, d.deps.Killed, d.deps.Emit)
		return NotHandled
	},
	"M140": func(d *Dispatcher, line string) Result { d.setBedTarget(line); return NotHandled },
	"M190": func(d *Dispatcher, line string) Result {
		d.setBedTarget(line)
		d.deps.Thermal.WaitForHeatup(0, true, d.deps.Killed, d.deps.Emit)
		return NotHandled
	},
	"M105": handleM105,
	"M114": handleM114,
	"M117": handleM117,
	"M20":  handleM20,
	"M21":  handleM21,
	"M22":  func(d *Dispatcher, line string) Result { d.deps.SD.Unmount(); return NotHandled },
	"M23": handleM23,
	"M24": func(d *Dispatcher, line string) Result {
		if d.deps.SD.Ready() {
			d.deps.SD.Start()
		}
		return NotHandled
	},
	"M25": func(d *Dispatcher, line string) Result {
		if d.deps.SD.Ready() {
			d.deps.SD.Pause()
		}
		return NotHandled
	},
	"M26": handleM26,
	"M27": handleM27,
	"M28": handleM28,
	"M29": func(d *Dispatcher, line string) Result {
		if d.deps.SD.Ready() {
			d.deps.SD.WriteEnd()
		}
		return NotHandled
	},
	"M30": handleM30,
	"M400": handleM400,
	"M999": func(d *Dispatcher, line string) Result { d.deps.Emit("Resend: 1"); return NotHandled },
	"G20":  func(d *Dispatcher, line string) Result { d.deps.Motion.SetInches(); return NotHandled },
	"G21":  func(d *Dispatcher, line string) Result { d.deps.Motion.SetMillimeters(); return NotHandled },
	"G90":  func(d *Dispatcher, line string) Result { d.deps.Motion.SetRelative(false); return NotHandled },
	"G91":  func(d *Dispatcher, line string) Result { d.deps.Motion.SetRelative(true); return NotHandled },
	"G92":  func(d *Dispatcher, line string) Result { d.deps.Motion.SetPosition(line); return NotHandled },
	"G28":  handleG28,
	"G0":   handleMove,
	"G1":   handleMove,
	"G2":   handleMove,
	"G3":   handleMove,
}

func (d *Dispatcher) setHotendTarget(line string) int {
	tool, val, ok := thermal.ParseHotendTarget(line)
	if ok {
		d.deps.Thermal.SetTarget(tool, false, val)
	}
	return tool
}

func (d *Dispatcher) setBedTarget(line string) {
	val, ok := thermal.ParseBedTarget(line)
	if ok {
		d.deps.Thermal.SetTarget(0, true, val)
	}
}

func handleM105(d *Dispatcher, line string) Result {
	report := d.deps.Thermal.Report()
	if !d.cfg.OkBefore {
		report = d.deps.Ok() + " " + report
	}
	d.deps.Emit(report)
	return Handled
}

func handleM114(d *Dispatcher, line string) Result {
	x, y, z, e := d.deps.Motion.Position()
	report := fmt.Sprintf("C: X:%.2f Y:%.2f Z:%.2f E:%.2f", x, y, z, e)
	if !d.cfg.OkBefore {
		report = d.deps.Ok() + " " + report
	}
	d.deps.Emit(report)
	return Handled
}

func handleM117(d *Dispatcher, line string) Result {
	if d.cfg.EchoM117 {
		d.deps.Emit("echo:" + payloadAfterToken(line))
	}
	return NotHandled
}

func handleM20(d *Dispatcher, line string) Result {
	if !d.deps.SD.Ready() {
		return NotHandled
	}
	for _, l := range d.deps.SD.List() {
		d.deps.Emit(l)
	}
	return NotHandled
}

func handleM21(d *Dispatcher, line string) Result {
	d.deps.SD.Mount()
	d.deps.Emit("SD card ok")
	return NotHandled
}

func handleM23(d *Dispatcher, line string) Result {
	if !d.deps.SD.Ready() {
		return NotHandled
	}
	for _, l := range d.deps.SD.Select(payloadAfterToken(line)) {
		d.deps.Emit(l)
	}
	return NotHandled
}

var sPosPattern = regexp.MustCompile(`S(-?\d+)`)

func handleM26(d *Dispatcher, line string) Result {
	if !d.deps.SD.Ready() {
		return NotHandled
	}
	m := sPosPattern.FindStringSubmatch(line)
	if m == nil {
		return NotHandled
	}
	pos, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return NotHandled
	}
	d.deps.SD.SetPos(pos)
	return NotHandled
}

func handleM27(d *Dispatcher, line string) Result {
	if !d.deps.SD.Ready() {
		return NotHandled
	}
	for _, l := range d.deps.SD.Status() {
		d.deps.Emit(l)
	}
	return NotHandled
}

func handleM28(d *Dispatcher, line string) Result {
	if !d.deps.SD.Ready() {
		return NotHandled
	}
	for _, l := range d.deps.SD.WriteBegin(payloadAfterToken(line)) {
		d.deps.Emit(l)
	}
	return NotHandled
}

func handleM30(d *Dispatcher, line string) Result {
	if !d.deps.SD.Ready() {
		return NotHandled
	}
	d.deps.SD.Delete(payloadAfterToken(line))
	return NotHandled
}

func handleM400(d *Dispatcher, line string) Result {
	for d.deps.MoveBusy() {
		if d.deps.Killed() {
			return NotHandled
		}
		time.Sleep(constants.MoveQueuePoll)
	}
	return NotHandled
}

func handleG28(d *Dispatcher, line string) Result {
	d.deps.Motion.PerformMove(line, d.cfg.ReadTimeout, d.deps.Killed)
	return NotHandled
}

func handleMove(d *Dispatcher, line string) Result {
	if d.deps.EnqueueMove != nil {
		_ = d.deps.EnqueueMove(line)
	}
	return NotHandled
}

// payloadAfterToken returns the trimmed text following the leading
// [GMTF]<code> token, used by handlers that take a filename or message
// argument.
func payloadAfterToken(line string) string {
	m := tokenPattern.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(line[len(m[0]):])
}
