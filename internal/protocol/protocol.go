// Package protocol implements the line-numbered, checksummed handshake a
// RepRap/Marlin host uses to detect and recover from corrupted lines:
// checksum stripping, N-line sequence validation, and resend emission. It
// corresponds to the spec's "incoming_lock" bookkeeping.
package protocol

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/ehrlich-b/virtualmarlin/internal/constants"
)

// Config holds the dialect options fixed for the life of a connection.
type Config struct {
	ForceChecksums  bool
	OkWithLineno    bool
	OkBefore        bool
	RepetierResends bool
}

// State is the line-number/checksum bookkeeping shared by the reader loop
// and resend emission, guarded by one mutex (the spec's incoming_lock).
type State struct {
	mu          sync.Mutex
	cfg         Config
	currentLine uint64
	lastN       int64
}

// NewState creates protocol bookkeeping with last_n starting at 0.
func NewState(cfg Config) *State {
	return &State{cfg: cfg}
}

func (s *State) Config() Config { return s.cfg }

// CurrentLine returns the count of accepted checksummed lines.
func (s *State) CurrentLine() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLine
}

// LastN returns the last accepted N line number.
func (s *State) LastN() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastN
}

// StripChecksum truncates line at the last '*' separator and reports
// whether one was present. Presence increments current_line, per the spec's
// "count of checksummed lines actually processed."
func (s *State) StripChecksum(line string) (stripped string, hadChecksum bool) {
	idx := strings.LastIndexByte(line, '*')
	if idx < 0 {
		return line, false
	}
	s.mu.Lock()
	s.currentLine++
	s.mu.Unlock()
	return line[:idx], true
}

// Result classifies the outcome of HandleLineNumber.
type Result int

const (
	// NoLineNumber means the line carried no leading N<seq> token.
	NoLineNumber Result = iota
	// Accepted means the line number matched the expected sequence.
	Accepted
	// M110Reset means the line was an M110 line-number reset, accepted
	// unconditionally.
	M110Reset
	// ResendRequired means the line number did not match; the caller must
	// call TriggerResend and must not advance dispatch for this line.
	ResendRequired
)

var lineNoPattern = regexp.MustCompile(`^N(-?\d+)\s*(.*)$`)

// Outcome reports what HandleLineNumber decided.
type Outcome struct {
	Result   Result
	Payload  string // remaining text with the N<seq> prefix stripped
	Expected int64  // meaningful only when Result == ResendRequired
	Actual   int64
}

// HandleLineNumber inspects a checksum-stripped line for a leading N<seq>
// token and validates it against the expected sequence. It does not itself
// emit any resend lines — callers use the Outcome to invoke TriggerResend.
func (s *State) HandleLineNumber(payload string) Outcome {
	m := lineNoPattern.FindStringSubmatch(payload)
	if m == nil {
		return Outcome{Result: NoLineNumber, Payload: payload}
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Outcome{Result: NoLineNumber, Payload: payload}
	}
	rest := m[2]

	if strings.Contains(rest, "M110") {
		s.mu.Lock()
		s.lastN = n
		s.currentLine = uint64(n)
		s.mu.Unlock()
		return Outcome{Result: M110Reset, Payload: rest}
	}

	s.mu.Lock()
	expected := s.lastN + 1
	if n != expected {
		s.mu.Unlock()
		return Outcome{Result: ResendRequired, Expected: expected, Actual: n}
	}
	forced := s.currentLine == constants.ForcedResendAtLine
	s.lastN = n
	s.mu.Unlock()

	if forced {
		return Outcome{Result: ResendRequired, Expected: 100, Actual: -1}
	}
	return Outcome{Result: Accepted, Payload: rest}
}

// TriggerResend computes the resend lines to emit and updates last_n so the
// next accepted N is `expected`. Pass hasActual=false to get the generic
// "Wrong checksum" message (used for the forced-101 test hook and the debug
// injector's checksum-resend verb); pass hasActual=true for the "expected
// line E got A" message (used on an ordinary sequence mismatch).
func (s *State) TriggerResend(expected int64, hasActual bool, actual int64) []string {
	s.mu.Lock()
	s.lastN = expected - 1
	repetier := s.cfg.RepetierResends
	s.mu.Unlock()

	var lines []string
	if hasActual {
		lines = append(lines, fmt.Sprintf("Error: expected line %d got %d", expected, actual))
	} else {
		lines = append(lines, "Error: Wrong checksum")
	}
	pair := []string{fmt.Sprintf("Resend:%d", expected), "ok"}
	lines = append(lines, pair...)
	if repetier {
		lines = append(lines, pair...)
	}
	return lines
}

// Ok formats a generic ok response, including the last accepted N when the
// dialect calls for ok_with_lineno.
func (s *State) Ok() string {
	if !s.cfg.OkWithLineno {
		return "ok"
	}
	return fmt.Sprintf("ok %d", s.LastN())
}
