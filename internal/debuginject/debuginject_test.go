package debuginject

import (
	"fmt"
	"testing"
	"time"
)

type fakeResender struct {
	lastN int64
}

func (f *fakeResender) LastN() int64 { return f.lastN }

func (f *fakeResender) TriggerResend(expected int64, hasActual bool, actual int64) []string {
	f.lastN = expected - 1
	if hasActual {
		return []string{fmt.Sprintf("Error: expected line %d got %d", expected, actual), fmt.Sprintf("Resend:%d", expected), "ok"}
	}
	return []string{"Error: Wrong checksum", fmt.Sprintf("Resend:%d", expected), "ok"}
}

func TestHelpEmitsEchoPrefixedLines(t *testing.T) {
	s := NewState()
	var emitted []string
	s.Handle("", nil, func(l string) { emitted = append(emitted, l) })
	if len(emitted) == 0 {
		t.Fatal("expected help lines")
	}
	for _, l := range emitted {
		if l[:6] != "echo: " {
			t.Errorf("line %q missing echo: prefix", l)
		}
	}
}

func TestQuestionMarkAlsoEmitsHelp(t *testing.T) {
	s := NewState()
	var emitted []string
	s.Handle("?", nil, func(l string) { emitted = append(emitted, l) })
	if len(emitted) == 0 {
		t.Fatal("expected help lines for ?")
	}
}

func TestActionVerbs(t *testing.T) {
	s := NewState()
	var emitted []string
	emit := func(l string) { emitted = append(emitted, l) }

	s.Handle("action_pause", nil, emit)
	s.Handle("action_resume", nil, emit)
	s.Handle("action_disconnect", nil, emit)

	want := []string{"// action:pause", "// action:resume", "// action:disconnect"}
	for i, w := range want {
		if emitted[i] != w {
			t.Errorf("emitted[%d] = %q, want %q", i, emitted[i], w)
		}
	}
}

func TestActionCustomWithParams(t *testing.T) {
	s := NewState()
	var emitted []string
	s.Handle("action_custom notify hello world", nil, func(l string) { emitted = append(emitted, l) })
	if len(emitted) != 1 || emitted[0] != "// action:notify hello world" {
		t.Errorf("emitted = %v", emitted)
	}
}

func TestActionCustomWithoutParams(t *testing.T) {
	s := NewState()
	var emitted []string
	s.Handle("action_custom notify", nil, func(l string) { emitted = append(emitted, l) })
	if len(emitted) != 1 || emitted[0] != "// action:notify" {
		t.Errorf("emitted = %v", emitted)
	}
}

func TestDontAnswerIsOneShot(t *testing.T) {
	s := NewState()
	s.Handle("dont_answer", nil, func(string) {})
	if !s.ConsumeDontAnswer() {
		t.Fatal("expected dont_answer set")
	}
	if s.ConsumeDontAnswer() {
		t.Error("expected dont_answer consumed after first read")
	}
}

func TestDropConnectionIsSticky(t *testing.T) {
	s := NewState()
	s.Handle("drop_connection", nil, func(string) {})
	if !s.DropConnection() {
		t.Fatal("expected drop_connection set")
	}
	if !s.DropConnection() {
		t.Error("expected drop_connection to remain set")
	}
}

func TestTriggerResendLinenoScenario(t *testing.T) {
	s := NewState()
	r := &fakeResender{lastN: 5}
	var emitted []string
	s.Handle("trigger_resend_lineno", r, func(l string) { emitted = append(emitted, l) })

	want := []string{"Error: expected line 5 got 6", "Resend:5", "ok"}
	if len(emitted) != len(want) {
		t.Fatalf("emitted = %v", emitted)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Errorf("emitted[%d] = %q, want %q", i, emitted[i], want[i])
		}
	}
	if r.lastN != 4 {
		t.Errorf("lastN after resend = %d, want 4 (L-1)", r.lastN)
	}
}

func TestTriggerResendChecksum(t *testing.T) {
	s := NewState()
	r := &fakeResender{lastN: 10}
	var emitted []string
	s.Handle("trigger_resend_checksum", r, func(l string) { emitted = append(emitted, l) })

	want := []string{"Error: Wrong checksum", "Resend:10", "ok"}
	if len(emitted) != len(want) {
		t.Fatalf("emitted = %v", emitted)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Errorf("emitted[%d] = %q, want %q", i, emitted[i], want[i])
		}
	}
	if r.lastN != 9 {
		t.Errorf("lastN after resend = %d, want 9 (expected-1)", r.lastN)
	}
}

func TestSleepSleepsInline(t *testing.T) {
	s := NewState()
	var emitted []string
	start := time.Now()
	s.Handle("sleep 0.01", nil, func(l string) { emitted = append(emitted, l) })
	if time.Since(start) < 10*time.Millisecond {
		t.Error("sleep verb did not sleep")
	}
	if len(emitted) != 1 || emitted[0] != "// sleeping for 0.01 seconds" {
		t.Errorf("emitted = %v, want announcement line", emitted)
	}
}

func TestSleepAfterRegistersPersistentDelay(t *testing.T) {
	s := NewState()
	s.Handle("sleep_after M105 1.5", nil, func(string) {})
	d, ok := s.PostDelay("M105")
	if !ok || d != 1500*time.Millisecond {
		t.Errorf("PostDelay = %v,%v", d, ok)
	}
	// Persistent: still present on a second lookup.
	d2, ok2 := s.PostDelay("M105")
	if !ok2 || d2 != d {
		t.Errorf("expected sleep_after to persist, got %v,%v", d2, ok2)
	}
}

func TestSleepAfterNextIsOneShot(t *testing.T) {
	s := NewState()
	s.Handle("sleep_after_next G28 2", nil, func(string) {})
	d, ok := s.PostDelay("G28")
	if !ok || d != 2*time.Second {
		t.Errorf("PostDelay = %v,%v", d, ok)
	}
	if _, ok := s.PostDelay("G28"); ok {
		t.Error("expected sleep_after_next to be consumed")
	}
}

func TestMalformedVerbsAreSwallowed(t *testing.T) {
	s := NewState()
	var emitted []string
	emit := func(l string) { emitted = append(emitted, l) }
	s.Handle("sleep notanumber", nil, emit)
	s.Handle("sleep_after M105", nil, emit)
	s.Handle("totally_unknown_verb", nil, emit)
	if len(emitted) != 0 {
		t.Errorf("expected no output for malformed/unknown verbs, got %v", emitted)
	}
}
