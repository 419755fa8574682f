package main

import (
	"errors"
	"testing"
	"time"

	"github.com/lutefd/pongboard/internal/domain/matches"
)

func TestParseSubmission(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sub, err := parseSubmission([]string{"alice", "11", "7", "bob"}, now, 10*time.Minute)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sub.Player1IntraID != "alice" || sub.Player2IntraID != "bob" || sub.Player1Score != 11 || sub.Player2Score != 7 {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if !sub.EndTime.Before(now) || sub.EndTime.Sub(sub.StartTime) != 10*time.Minute {
		t.Fatalf("unexpected times %v..%v", sub.StartTime, sub.EndTime)
	}
}

func TestParseSubmissionRejectsBadInput(t *testing.T) {
	now := time.Now()
	if _, err := parseSubmission([]string{"alice", "x", "7", "bob"}, now, time.Minute); err == nil {
		t.Fatalf("expected score parse error")
	}
	_, err := parseSubmission([]string{"alice", "11", "7", "alice"}, now, time.Minute)
	if !errors.Is(err, matches.ErrInvalidRecord) {
		t.Fatalf("expected invalid record, got %v", err)
	}
}

func TestTournamentColumn(t *testing.T) {
	cases := map[string]matches.Record{
		"":                  {},
		"spring R1":         {Tournament: &matches.Tournament{Name: "spring", Round: 1}},
		"spring R3 (final)": {Tournament: &matches.Tournament{Name: "spring", Round: 3, Final: true}},
	}
	for want, r := range cases {
		if got := tournament(r); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}
