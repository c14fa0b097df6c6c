package protocol

import (
	"strconv"
	"testing"
)

func TestStripChecksum(t *testing.T) {
	s := NewState(Config{})

	stripped, ok := s.StripChecksum("N1 M110*0")
	if !ok {
		t.Fatal("expected checksum present")
	}
	if stripped != "N1 M110" {
		t.Errorf("StripChecksum() = %q, want %q", stripped, "N1 M110")
	}
	if s.CurrentLine() != 1 {
		t.Errorf("CurrentLine() = %d, want 1", s.CurrentLine())
	}

	stripped, ok = s.StripChecksum("G1 X10")
	if ok {
		t.Error("expected no checksum present")
	}
	if stripped != "G1 X10" {
		t.Errorf("StripChecksum() = %q, want unchanged", stripped)
	}
	if s.CurrentLine() != 1 {
		t.Errorf("CurrentLine() should not advance without a checksum, got %d", s.CurrentLine())
	}
}

func TestM110ResetsSequence(t *testing.T) {
	s := NewState(Config{})

	out := s.HandleLineNumber("N42 M110")
	if out.Result != M110Reset {
		t.Fatalf("Result = %v, want M110Reset", out.Result)
	}
	if s.LastN() != 42 {
		t.Errorf("LastN() = %d, want 42", s.LastN())
	}

	// The reset N becomes the new baseline; the next line must follow it.
	out = s.HandleLineNumber("N43 G0 X10")
	if out.Result != Accepted {
		t.Fatalf("Result after reset = %v, want Accepted", out.Result)
	}
}

func TestLineNumberHandshakeScenario(t *testing.T) {
	s := NewState(Config{})

	out := s.HandleLineNumber("N1 M110")
	if out.Result != M110Reset {
		t.Fatalf("N1 M110 Result = %v, want M110Reset", out.Result)
	}

	out = s.HandleLineNumber("N3 G0 X10")
	if out.Result != ResendRequired {
		t.Fatalf("N3 Result = %v, want ResendRequired", out.Result)
	}
	if out.Expected != 2 || out.Actual != 3 {
		t.Errorf("expected=%d actual=%d, want 2,3", out.Expected, out.Actual)
	}

	lines := s.TriggerResend(out.Expected, true, out.Actual)
	want := []string{"Error: expected line 2 got 3", "Resend:2", "ok"}
	if !equalLines(lines, want) {
		t.Errorf("TriggerResend lines = %v, want %v", lines, want)
	}
	if s.LastN() != 1 {
		t.Errorf("LastN() after resend = %d, want 1", s.LastN())
	}

	out = s.HandleLineNumber("N2 G0 X10")
	if out.Result != Accepted {
		t.Fatalf("N2 retry Result = %v, want Accepted", out.Result)
	}
}

func TestRepetierResendsDoublesThePair(t *testing.T) {
	s := NewState(Config{RepetierResends: true})
	lines := s.TriggerResend(5, true, 6)
	want := []string{
		"Error: expected line 5 got 6",
		"Resend:5", "ok",
		"Resend:5", "ok",
	}
	if !equalLines(lines, want) {
		t.Errorf("lines = %v, want %v", lines, want)
	}
}

func TestForcedResendAtCurrentLine101(t *testing.T) {
	s := NewState(Config{})
	s.HandleLineNumber("N1 M110")

	for i := 2; i <= 101; i++ {
		// Stripping the checksum is what advances current_line, as in the reader.
		stripped, _ := s.StripChecksum(lineFor(i))
		out := s.HandleLineNumber(stripped)
		if i < 101 {
			if out.Result != Accepted {
				t.Fatalf("line %d Result = %v, want Accepted", i, out.Result)
			}
			continue
		}
		if out.Result != ResendRequired {
			t.Fatalf("line 101 Result = %v, want ResendRequired", out.Result)
		}
		if out.Expected != 100 || out.Actual != -1 {
			t.Errorf("expected=%d actual=%d, want 100,-1", out.Expected, out.Actual)
		}
	}
}

func TestOkWithLineno(t *testing.T) {
	s := NewState(Config{OkWithLineno: true})
	s.HandleLineNumber("N7 M110")
	if got := s.Ok(); got != "ok 7" {
		t.Errorf("Ok() = %q, want %q", got, "ok 7")
	}
}

func lineFor(n int) string {
	return "N" + strconv.Itoa(n) + " G0 X10*0"
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
