package jobmodel

import (
	"encoding/json"
	"testing"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"pending", false},
		{"queued", false},
		{"running", false},
		{"completed", false},
		{"failed", false},
		{"cancelled", false},
		{"bogus", true},
		{"", true},
	}
	for _, c := range cases {
		got, err := ParseStatus(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseStatus(%q): expected error, got %v", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStatus(%q): unexpected error: %v", c.in, err)
		}
		if string(got) != c.in {
			t.Errorf("ParseStatus(%q) = %q", c.in, got)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%q: expected Terminal() true", s)
		}
	}
	nonTerminal := []Status{StatusPending, StatusQueued, StatusRunning}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("%q: expected Terminal() false", s)
		}
	}
}

func TestStatusJSONRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusQueued, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled} {
		b, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("Marshal(%q): %v", s, err)
		}
		var out Status
		if err := json.Unmarshal(b, &out); err != nil {
			t.Fatalf("Unmarshal(%s): %v", b, err)
		}
		if out != s {
			t.Errorf("round trip: got %q, want %q", out, s)
		}
	}
}

func TestStatusUnmarshalRejectsInvalid(t *testing.T) {
	var s Status
	if err := json.Unmarshal([]byte(`"nonsense"`), &s); err == nil {
		t.Fatal("expected error unmarshaling invalid status")
	}
}

func TestStatusMarshalRejectsInvalid(t *testing.T) {
	var s Status = "nonsense"
	if _, err := json.Marshal(s); err == nil {
		t.Fatal("expected error marshaling invalid status")
	}
}

func TestParseTarget(t *testing.T) {
	for _, in := range []string{"emulator", "device", "cloud"} {
		if _, err := ParseTarget(in); err != nil {
			t.Errorf("ParseTarget(%q): unexpected error: %v", in, err)
		}
	}
	if _, err := ParseTarget("toaster"); err == nil {
		t.Fatal("expected error for invalid target")
	}
}

func TestParsePriority(t *testing.T) {
	for _, in := range []string{"low", "normal", "high", "urgent"} {
		if _, err := ParsePriority(in); err != nil {
			t.Errorf("ParsePriority(%q): unexpected error: %v", in, err)
		}
	}
	if _, err := ParsePriority("meh"); err == nil {
		t.Fatal("expected error for invalid priority")
	}
}

func TestPriorityWeightOrdering(t *testing.T) {
	if !(PriorityUrgent.Weight() > PriorityHigh.Weight() &&
		PriorityHigh.Weight() > PriorityNormal.Weight() &&
		PriorityNormal.Weight() > PriorityLow.Weight()) {
		t.Fatalf("priority weights not strictly ordered: urgent=%d high=%d normal=%d low=%d",
			PriorityUrgent.Weight(), PriorityHigh.Weight(), PriorityNormal.Weight(), PriorityLow.Weight())
	}
}

func TestTargetJSONRoundTrip(t *testing.T) {
	for _, tg := range []Target{TargetEmulator, TargetDevice, TargetCloud} {
		b, err := json.Marshal(tg)
		if err != nil {
			t.Fatalf("Marshal(%q): %v", tg, err)
		}
		var out Target
		if err := json.Unmarshal(b, &out); err != nil {
			t.Fatalf("Unmarshal(%s): %v", b, err)
		}
		if out != tg {
			t.Errorf("round trip: got %q, want %q", out, tg)
		}
	}
}
