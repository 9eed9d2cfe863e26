package model

import "testing"

func TestDailyLogRecordClone(t *testing.T) {
	r := DailyLogRecord{"gym": {Done: true, Note: "legs"}}
	c := r.Clone()
	c["sleep"] = LogEntry{Done: true}

	if _, ok := r["sleep"]; ok {
		t.Error("clone shares state with original")
	}
	if c["gym"].Note != "legs" {
		t.Errorf("clone note = %q, want %q", c["gym"].Note, "legs")
	}

	var nilRecord DailyLogRecord
	if got := nilRecord.Clone(); got == nil {
		t.Error("expected non-nil clone of nil record")
	}
}

func TestDoneCount(t *testing.T) {
	r := DailyLogRecord{
		"gym":   {Done: true},
		"sleep": {Done: false, Note: "late"},
		"stale": {Done: true},
	}
	if got := r.DoneCount(); got != 2 {
		t.Errorf("DoneCount = %d, want 2", got)
	}
}

func TestDefaultHabitsIsCopy(t *testing.T) {
	a := DefaultHabits()
	a[0].Label = "changed"
	b := DefaultHabits()
	if b[0].Label != "Gym" {
		t.Errorf("defaults mutated: %q", b[0].Label)
	}
	if len(b) != 12 {
		t.Errorf("len = %d, want 12", len(b))
	}
}
