package stats

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/domain/players"
)

func participant(h players.House) matches.Participant {
	return matches.Participant{ID: uuid.New(), House: h}
}

func TestHouseWinSharesCountsEachPlayerGame(t *testing.T) {
	gr := participant(players.Gryffindor)
	sl := participant(players.Slytherin)
	ra := participant(players.Ravenclaw)

	records := []matches.Record{
		{Player1: gr, Player2: sl, Player1Score: 11, Player2Score: 5},
		{Player1: sl, Player2: gr, Player1Score: 11, Player2Score: 9},
		{Player1: ra, Player2: gr, Player1Score: 3, Player2Score: 11},
	}
	got := HouseWinShares(records)

	wantKeys := []string{"GR", "RA", "SL", "HU"}
	keys := got.Keys()
	if len(keys) != len(wantKeys) {
		t.Fatalf("expected %d keys, got %v", len(wantKeys), keys)
	}
	for i := range wantKeys {
		if keys[i] != wantKeys[i] {
			t.Fatalf("unexpected key order: %v", keys)
		}
	}

	cases := map[string]float64{"GR": 0.6667, "RA": 0, "SL": 0.5, "HU": 0}
	for k, want := range cases {
		if v, _ := got.Get(k); v != want {
			t.Fatalf("%s: expected %.4f, got %.4f", k, want, v)
		}
	}
}

func TestUserRatesIncludesTotal(t *testing.T) {
	me := participant(players.Hufflepuff)
	gr := participant(players.Gryffindor)
	sl := participant(players.Slytherin)
	other := participant(players.Ravenclaw)

	records := []matches.Record{
		{Player1: me, Player2: gr, Player1Score: 11, Player2Score: 2},
		{Player1: gr, Player2: me, Player1Score: 11, Player2Score: 2},
		{Player1: sl, Player2: me, Player1Score: 4, Player2Score: 11},
		{Player1: other, Player2: gr, Player1Score: 11, Player2Score: 0},
	}
	got := UserRates(me.ID, records)

	if got.Len() != 5 {
		t.Fatalf("expected 4 houses plus total, got %v", got.Keys())
	}
	if last := got.Keys()[4]; last != TotalKey {
		t.Fatalf("expected total last, got %s", last)
	}
	if v, _ := got.Get("GR"); v != 0.5 {
		t.Fatalf("expected GR 0.5, got %.4f", v)
	}
	if v, _ := got.Get("SL"); v != 1 {
		t.Fatalf("expected SL 1, got %.4f", v)
	}
	if v, _ := got.Get(TotalKey); v != 0.6667 {
		t.Fatalf("expected total 0.6667, got %.4f", v)
	}
}

func TestTieIsNotAWin(t *testing.T) {
	me := participant(players.Gryffindor)
	opp := participant(players.Ravenclaw)
	records := []matches.Record{{Player1: me, Player2: opp, Player1Score: 7, Player2Score: 7}}
	rates := UserRates(me.ID, records)
	if got, _ := rates.Get(TotalKey); got != 0 {
		t.Fatalf("expected total 0, got %.4f", got)
	}
	if got, _ := rates.Get("RA"); got != 0 {
		t.Fatalf("expected RA 0, got %.4f", got)
	}
}
