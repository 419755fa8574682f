package stats

import (
	"math"

	"github.com/google/uuid"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/domain/players"
)

type tally struct {
	played int
	won    int
}

func (t tally) rate() float64 {
	if t.played == 0 {
		return 0
	}
	return float64(t.won) / float64(t.played)
}

// HouseWinShares counts every player-game by the player's house and reports
// the fraction of those that were won.
func HouseWinShares(records []matches.Record) RateTable {
	byHouse := make(map[players.House]*tally, len(players.Houses))
	for _, h := range players.Houses {
		byHouse[h] = &tally{}
	}
	count := func(p matches.Participant, won bool) {
		t, ok := byHouse[p.House]
		if !ok {
			return
		}
		t.played++
		if won {
			t.won++
		}
	}
	for _, r := range records {
		count(r.Player1, r.Player1Score > r.Player2Score)
		count(r.Player2, r.Player2Score > r.Player1Score)
	}

	out := NewRateTable()
	for _, h := range players.Houses {
		out.Set(string(h), Round(byHouse[h].rate()))
	}
	return out
}

// UserRates is the user's win rate against each opponent house, followed by
// the overall rate under TotalKey. Records the user did not play are skipped.
func UserRates(userID uuid.UUID, records []matches.Record) RateTable {
	byHouse := make(map[players.House]*tally, len(players.Houses))
	for _, h := range players.Houses {
		byHouse[h] = &tally{}
	}
	var total tally
	for _, r := range records {
		won, opponent, ok := r.Outcome(userID)
		if !ok {
			continue
		}
		total.played++
		if won {
			total.won++
		}
		if t, ok := byHouse[opponent.House]; ok {
			t.played++
			if won {
				t.won++
			}
		}
	}

	out := NewRateTable()
	for _, h := range players.Houses {
		out.Set(string(h), Round(byHouse[h].rate()))
	}
	out.Set(TotalKey, Round(total.rate()))
	return out
}

func Chart(userID uuid.UUID, records []matches.Record) ChartData {
	return ChartData{
		House: HouseWinShares(records),
		Rate:  UserRates(userID, records),
	}
}

func Round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
