package lab

import (
	"strings"
	"testing"
	"time"
)

func TestCanAdvance(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusSampleCollected, true},
		{StatusPending, StatusCompleted, true},
		{StatusSampleCollected, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusCompleted, StatusInProgress, false},
		{StatusSampleCollected, StatusPending, false},
		{StatusPending, StatusPending, false},
	}
	for _, tt := range tests {
		if got := CanAdvance(tt.from, tt.to); got != tt.want {
			t.Errorf("CanAdvance(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("SAMPLE_COLLECTED"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseStatus("pending"); err == nil {
		t.Error("expected error for lowercase status")
	}
}

func TestParsePriority(t *testing.T) {
	for _, s := range []string{"URGENT", "NORMAL"} {
		if _, err := ParsePriority(s); err != nil {
			t.Errorf("ParsePriority(%q): %v", s, err)
		}
	}
	if _, err := ParsePriority("STAT"); err == nil {
		t.Error("expected error for unknown priority")
	}
}

func TestNewSharedSampleID(t *testing.T) {
	now := time.Date(2026, 4, 2, 14, 30, 15, 0, time.UTC)
	id := newSharedSampleID(now)

	if !strings.HasPrefix(id, "SMP260402") {
		t.Errorf("sample id %q should start with prefix and date", id)
	}
	// Prefix + 6 date digits + 5 time digits + 4 random digits.
	if len(id) != len("SMP")+6+5+4 {
		t.Errorf("sample id %q has unexpected length %d", id, len(id))
	}
}
