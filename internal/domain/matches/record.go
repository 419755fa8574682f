package matches

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lutefd/pongboard/internal/domain/players"
)

var ErrInvalidRecord = errors.New("invalid game record")

const (
	MaxTournamentNameLength = 20
	// reservedTournamentName is the lobby name game servers use while
	// players are still joining.
	reservedTournamentName = "wait"
)

// Tournament marks a game played as a round of a named tournament.
type Tournament struct {
	Name  string `json:"tournament_name"`
	Round int    `json:"round"`
	Final bool   `json:"is_final"`
}

type Participant struct {
	ID       uuid.UUID     `json:"userId"`
	IntraID  string        `json:"intraId"`
	Nickname string        `json:"nickname"`
	House    players.House `json:"house"`
}

type Record struct {
	GameID       uuid.UUID   `json:"gameId"`
	Player1      Participant `json:"player1"`
	Player2      Participant `json:"player2"`
	Player1Score int         `json:"player1_score"`
	Player2Score int         `json:"player2_score"`
	StartTime    time.Time   `json:"startTime"`
	EndTime      time.Time   `json:"endTime"`
	Tournament   *Tournament `json:"tournament,omitempty"`
}

// Submission is a finished game as reported by a game server, with players
// identified by intra id.
type Submission struct {
	GameID         uuid.UUID `json:"game_id"`
	Player1IntraID string    `json:"player1_intra_id"`
	Player2IntraID string    `json:"player2_intra_id"`
	Player1Score   int       `json:"player1_score"`
	Player2Score   int       `json:"player2_score"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	TournamentName string    `json:"tournament_name,omitempty"`
	Round          int       `json:"round,omitempty"`
	IsFinal        bool      `json:"is_final,omitempty"`
}

// Tournament is nil for a general game.
func (s Submission) Tournament() *Tournament {
	if s.TournamentName == "" {
		return nil
	}
	return &Tournament{Name: s.TournamentName, Round: s.Round, Final: s.IsFinal}
}

func (s Submission) Validate(now time.Time) error {
	if s.Player1IntraID == "" || s.Player2IntraID == "" {
		return fmt.Errorf("%w: both players are required", ErrInvalidRecord)
	}
	if s.Player1IntraID == s.Player2IntraID {
		return fmt.Errorf("%w: winner and loser must be different", ErrInvalidRecord)
	}
	if !s.StartTime.Before(s.EndTime) {
		return fmt.Errorf("%w: end time must be later than start time", ErrInvalidRecord)
	}
	if s.EndTime.After(now) {
		return fmt.Errorf("%w: end time must not be in the future", ErrInvalidRecord)
	}
	if s.Player1Score < 0 || s.Player2Score < 0 {
		return fmt.Errorf("%w: score must be a non-negative number", ErrInvalidRecord)
	}
	return s.validateTournament()
}

func (s Submission) validateTournament() error {
	if s.TournamentName == "" {
		if s.Round != 0 || s.IsFinal {
			return fmt.Errorf("%w: round given without a tournament name", ErrInvalidRecord)
		}
		return nil
	}
	if utf8.RuneCountInString(s.TournamentName) > MaxTournamentNameLength {
		return fmt.Errorf("%w: tournament name is longer than %d characters", ErrInvalidRecord, MaxTournamentNameLength)
	}
	if s.TournamentName == reservedTournamentName {
		return fmt.Errorf("%w: tournament name %q is reserved", ErrInvalidRecord, reservedTournamentName)
	}
	if s.Round <= 0 {
		return fmt.Errorf("%w: the round must be a positive number", ErrInvalidRecord)
	}
	return nil
}

// Outcome reports whether userID won and who the opponent was. ok is false
// when the user did not play this game.
func (r Record) Outcome(userID uuid.UUID) (won bool, opponent Participant, ok bool) {
	switch userID {
	case r.Player1.ID:
		return r.Player1Score > r.Player2Score, r.Player2, true
	case r.Player2.ID:
		return r.Player2Score > r.Player1Score, r.Player1, true
	default:
		return false, Participant{}, false
	}
}

func (r Record) Line() string {
	return fmt.Sprintf("%s [%d] vs [%d] %s", r.Player1.Nickname, r.Player1Score, r.Player2Score, r.Player2.Nickname)
}
