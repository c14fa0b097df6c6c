// Package debuginject parses the "!!DEBUG:" test-injection surface that lets
// a host deterministically perturb the firmware: forcing resends, dropping
// the connection, delaying responses, and emitting synthetic action lines.
package debuginject

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Resender is the subset of internal/protocol.State the resend-injection
// verbs need. *protocol.State satisfies it directly.
type Resender interface {
	LastN() int64
	TriggerResend(expected int64, hasActual bool, actual int64) []string
}

// State holds the sticky/one-shot debug flags. Guarded by one mutex since
// both the reader (consuming dont_answer/sleep_after) and the injector
// itself (setting them) touch it.
type State struct {
	mu             sync.Mutex
	dontAnswer     bool
	dropConnection bool
	sleepAfter     map[string]time.Duration
	sleepAfterNext map[string]time.Duration
}

// NewState creates debug-injection state with no flags set.
func NewState() *State {
	return &State{
		sleepAfter:     make(map[string]time.Duration),
		sleepAfterNext: make(map[string]time.Duration),
	}
}

// DropConnection reports whether drop_connection has been triggered. Once
// set it is sticky until the connection is closed.
func (s *State) DropConnection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropConnection
}

// ConsumeDontAnswer reports and clears the one-shot dont_answer flag.
func (s *State) ConsumeDontAnswer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.dontAnswer
	s.dontAnswer = false
	return v
}

// PostDelay returns the delay registered for cmd, if any, consuming the
// one-shot sleep_after_next registration in preference to the persistent
// sleep_after one.
func (s *State) PostDelay(cmd string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.sleepAfterNext[cmd]; ok {
		delete(s.sleepAfterNext, cmd)
		return d, true
	}
	if d, ok := s.sleepAfter[cmd]; ok {
		return d, true
	}
	return 0, false
}

var helpLines = []string{
	"Available extended commands:",
	"help, ? - print this help",
	"action_pause, action_resume, action_disconnect - simulate action commands",
	"action_custom <name> [<params>] - simulate a custom action command",
	"dont_answer - discard the next received line without processing or acknowledging it",
	"drop_connection - make the connection unresponsive",
	"sleep <seconds> - sleep synchronously before continuing",
	"sleep_after <command> <seconds> - sleep after every occurrence of command",
	"sleep_after_next <command> <seconds> - sleep after the next occurrence of command, once",
	"trigger_resend_lineno - simulate a line-number mismatch and request a resend",
	"trigger_resend_checksum - simulate a checksum error and request a resend",
}

// Handle parses a single !!DEBUG: payload (with the prefix already
// stripped) and applies its effect. Unrecognized verbs and malformed
// arguments are swallowed silently, matching the firmware's lenient parser.
func (s *State) Handle(payload string, resend Resender, emit func(string)) {
	payload = strings.TrimSpace(payload)
	if payload == "" || payload == "help" || payload == "?" {
		for _, l := range helpLines {
			emit("echo: " + l)
		}
		return
	}

	fields := strings.SplitN(payload, " ", 2)
	verb := fields[0]
	rest := ""
	if len(fields) > 1 {
		rest = strings.TrimSpace(fields[1])
	}

	switch verb {
	case "action_pause", "action_resume", "action_disconnect":
		emit("// action:" + strings.TrimPrefix(verb, "action_"))
	case "action_custom":
		emit(formatActionCustom(rest))
	case "dont_answer":
		s.mu.Lock()
		s.dontAnswer = true
		s.mu.Unlock()
	case "drop_connection":
		s.mu.Lock()
		s.dropConnection = true
		s.mu.Unlock()
	case "trigger_resend_lineno":
		if resend == nil {
			return
		}
		l := resend.LastN()
		for _, line := range resend.TriggerResend(l, true, l+1) {
			emit(line)
		}
	case "trigger_resend_checksum":
		if resend == nil {
			return
		}
		l := resend.LastN()
		for _, line := range resend.TriggerResend(l, false, 0) {
			emit(line)
		}
	case "sleep":
		if d, ok := parseSeconds(rest); ok {
			emit(fmt.Sprintf("// sleeping for %s seconds", rest))
			time.Sleep(d)
		}
	case "sleep_after":
		if cmd, d, ok := splitCmdAndSeconds(rest); ok {
			s.mu.Lock()
			s.sleepAfter[cmd] = d
			s.mu.Unlock()
		}
	case "sleep_after_next":
		if cmd, d, ok := splitCmdAndSeconds(rest); ok {
			s.mu.Lock()
			s.sleepAfterNext[cmd] = d
			s.mu.Unlock()
		}
	}
}

func formatActionCustom(rest string) string {
	parts := strings.SplitN(rest, " ", 2)
	name := parts[0]
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return "// action:" + name
	}
	return "// action:" + name + " " + strings.TrimSpace(parts[1])
}

func parseSeconds(s string) (time.Duration, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(v * float64(time.Second)), true
}

// FormatInterval renders a duration the way the "sleeping for N seconds"
// announcement expects: as plain seconds, trimmed of trailing zeros.
func FormatInterval(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func splitCmdAndSeconds(rest string) (cmd string, d time.Duration, ok bool) {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return "", 0, false
	}
	secs, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return "", 0, false
	}
	return fields[0], time.Duration(secs * float64(time.Second)), true
}
