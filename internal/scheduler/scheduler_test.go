package scheduler

import (
	"testing"
	"time"

	"nvc-coach/internal/auditlog"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 8, 28, 21, 0, 0, 0, time.UTC)
	events := []auditlog.Event{
		{Timestamp: now.Add(-2 * time.Hour), UserID: 1, Tokens: 100},
		{Timestamp: now.Add(-3 * time.Hour), UserID: 1, Tokens: 50},
		{Timestamp: now.Add(-4 * time.Hour), UserID: 2, Tokens: 30},
		{Timestamp: now.Add(-30 * time.Hour), UserID: 3, Tokens: 999}, // outside window
	}

	got := Summarize(events, now)
	want := "Daily report: 3 turns, 2 users, 180 tokens"
	if got != want {
		t.Errorf("Summarize = %q, want %q", got, want)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil, time.Now())
	want := "Daily report: 0 turns, 0 users, 0 tokens"
	if got != want {
		t.Errorf("Summarize = %q, want %q", got, want)
	}
}
