package projections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/domain/players"
	"github.com/lutefd/pongboard/internal/domain/stats"
	"github.com/lutefd/pongboard/internal/events"
	"github.com/lutefd/pongboard/internal/storage"
)

var ErrUnknownPlayer = errors.New("unknown player")

// MatchLogLimit caps the match log shown on the dashboard. History is
// not capped.
const MatchLogLimit = 200

type Store interface {
	GetPlayerByIntraID(ctx context.Context, intraID string) (players.Player, error)
	UpdateNickname(ctx context.Context, id uuid.UUID, nickname string) (players.Player, error)
	CreateGame(ctx context.Context, r matches.Record) (bool, error)
	ListGames(ctx context.Context) ([]matches.Record, error)
	ListGamesByPlayer(ctx context.Context, userID uuid.UUID, limit int) ([]matches.Record, error)
	ListTournamentGames(ctx context.Context, name string) ([]matches.Record, error)
}

// Profile is a player with their win and loss counts over every game,
// tournament games included. Ties count as neither.
type Profile struct {
	players.Player
	Wins   int `json:"win_count"`
	Losses int `json:"lose_count"`
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

type Service struct {
	store Store
	bus   Publisher
	now   func() time.Time
}

func NewService(store Store, bus Publisher) *Service {
	return &Service{store: store, bus: bus, now: time.Now}
}

func (s *Service) ChartData(ctx context.Context, userID uuid.UUID) (stats.ChartData, error) {
	all, err := s.store.ListGames(ctx)
	if err != nil {
		return stats.ChartData{}, err
	}
	return stats.Chart(userID, all), nil
}

func (s *Service) MatchLog(ctx context.Context, userID uuid.UUID) ([]matches.Record, error) {
	return s.store.ListGamesByPlayer(ctx, userID, MatchLogLimit)
}

// History is every game of the user, most recent first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]matches.Record, error) {
	return s.store.ListGamesByPlayer(ctx, userID, 0)
}

func (s *Service) TournamentLog(ctx context.Context, userID uuid.UUID) ([]matches.Record, error) {
	all, err := s.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	games := make([]matches.Record, 0)
	for _, g := range all {
		if g.Tournament != nil {
			games = append(games, g)
		}
	}
	return games, nil
}

// Tournament lists the games of one tournament by round.
func (s *Service) Tournament(ctx context.Context, name string) ([]matches.Record, error) {
	return s.store.ListTournamentGames(ctx, name)
}

func (s *Service) Profile(ctx context.Context, intraID string) (Profile, error) {
	p, err := s.store.GetPlayerByIntraID(ctx, intraID)
	if err != nil {
		return Profile{}, err
	}
	games, err := s.History(ctx, p.ID)
	if err != nil {
		return Profile{}, err
	}
	profile := Profile{Player: p}
	for _, g := range games {
		won, _, ok := g.Outcome(p.ID)
		switch {
		case !ok || g.Player1Score == g.Player2Score:
		case won:
			profile.Wins++
		default:
			profile.Losses++
		}
	}
	return profile, nil
}

// Rename changes a player's nickname. It fails with
// players.ErrInvalidNickname or storage.ErrConflict.
func (s *Service) Rename(ctx context.Context, userID uuid.UUID, raw string) (players.Player, error) {
	nickname, err := players.NormalizeNickname(raw)
	if err != nil {
		return players.Player{}, err
	}
	return s.store.UpdateNickname(ctx, userID, nickname)
}

// RecordGame validates a submission, stores it and announces it to both
// players. Redelivered games are reported with stored=false and are not
// announced again.
func (s *Service) RecordGame(ctx context.Context, sub matches.Submission) (matches.Record, bool, error) {
	if err := sub.Validate(s.now()); err != nil {
		return matches.Record{}, false, err
	}
	if sub.GameID == uuid.Nil {
		sub.GameID = uuid.New()
	}

	p1, err := s.participant(ctx, sub.Player1IntraID)
	if err != nil {
		return matches.Record{}, false, err
	}
	p2, err := s.participant(ctx, sub.Player2IntraID)
	if err != nil {
		return matches.Record{}, false, err
	}

	record := matches.Record{
		GameID:       sub.GameID,
		Player1:      p1,
		Player2:      p2,
		Player1Score: sub.Player1Score,
		Player2Score: sub.Player2Score,
		StartTime:    sub.StartTime.UTC(),
		EndTime:      sub.EndTime.UTC(),
		Tournament:   sub.Tournament(),
	}
	stored, err := s.store.CreateGame(ctx, record)
	if err != nil {
		return matches.Record{}, false, err
	}
	if !stored || s.bus == nil {
		return record, stored, nil
	}

	err = s.bus.Publish(ctx, events.Event{
		Name:    events.GamesRecorded,
		Payload: events.GamesPayload{GameID: record.GameID, Players: []uuid.UUID{p1.ID, p2.ID}},
	})
	if err != nil {
		return record, stored, fmt.Errorf("announce game: %w", err)
	}
	return record, stored, nil
}

func (s *Service) participant(ctx context.Context, intraID string) (matches.Participant, error) {
	p, err := s.store.GetPlayerByIntraID(ctx, intraID)
	if errors.Is(err, storage.ErrNotFound) {
		return matches.Participant{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, intraID)
	}
	if err != nil {
		return matches.Participant{}, err
	}
	return matches.Participant{ID: p.ID, IntraID: p.IntraID, Nickname: p.Nickname, House: p.House}, nil
}

// Viewer serves one user's dashboard data in-process. The credential was
// checked when the viewer was built, so it is ignored here.
type Viewer struct {
	svc  *Service
	user uuid.UUID
}

func (s *Service) Viewer(userID uuid.UUID) Viewer {
	return Viewer{svc: s, user: userID}
}

func (v Viewer) FetchChartData(ctx context.Context, _ string) (stats.ChartData, error) {
	return v.svc.ChartData(ctx, v.user)
}

func (v Viewer) FetchMatchLog(ctx context.Context, _ string) ([]matches.Record, error) {
	return v.svc.MatchLog(ctx, v.user)
}
