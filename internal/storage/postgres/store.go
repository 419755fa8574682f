package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/domain/players"
	"github.com/lutefd/pongboard/internal/storage"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const gameColumns = `
	g.game_id, g.player1_score, g.player2_score, g.start_time, g.end_time,
	g.tournament_name, g.round, g.is_final,
	p1.id, p1.intra_id, p1.nickname, p1.house,
	p2.id, p2.intra_id, p2.nickname, p2.house`

const gameJoins = `
	FROM game_logs g
	JOIN users p1 ON p1.id = g.player1
	JOIN users p2 ON p2.id = g.player2`

func (s *Store) EnsurePlayer(ctx context.Context, p players.Player) (players.Player, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, intra_id, nickname, house, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (intra_id) DO NOTHING
	`, p.ID, p.IntraID, p.Nickname, string(p.House), p.CreatedAt)
	if err != nil {
		return players.Player{}, mapError(err)
	}
	return s.GetPlayerByIntraID(ctx, p.IntraID)
}

func (s *Store) UpdateNickname(ctx context.Context, id uuid.UUID, nickname string) (players.Player, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET nickname = $2 WHERE id = $1`, id, nickname)
	if err != nil {
		return players.Player{}, mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return players.Player{}, storage.ErrNotFound
	}
	return s.GetPlayer(ctx, id)
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return storage.ErrConflict
	}
	return err
}

func (s *Store) GetPlayer(ctx context.Context, id uuid.UUID) (players.Player, error) {
	return s.scanPlayer(s.pool.QueryRow(ctx, `
		SELECT id, intra_id, nickname, house, created_at FROM users WHERE id = $1
	`, id))
}

func (s *Store) GetPlayerByIntraID(ctx context.Context, intraID string) (players.Player, error) {
	return s.scanPlayer(s.pool.QueryRow(ctx, `
		SELECT id, intra_id, nickname, house, created_at FROM users WHERE intra_id = $1
	`, intraID))
}

func (s *Store) scanPlayer(row pgx.Row) (players.Player, error) {
	var (
		p     players.Player
		house string
	)
	if err := row.Scan(&p.ID, &p.IntraID, &p.Nickname, &house, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return players.Player{}, storage.ErrNotFound
		}
		return players.Player{}, err
	}
	p.House = players.House(house)
	return p, nil
}

// CreateGame reports false when the game id was already stored.
func (s *Store) CreateGame(ctx context.Context, r matches.Record) (bool, error) {
	var (
		name  *string
		round *int
		final bool
	)
	if t := r.Tournament; t != nil {
		name, round, final = &t.Name, &t.Round, t.Final
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO game_logs (game_id, player1, player2, player1_score, player2_score, start_time, end_time,
			tournament_name, round, is_final)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (game_id) DO NOTHING
	`, r.GameID, r.Player1.ID, r.Player2.ID, r.Player1Score, r.Player2Score, r.StartTime, r.EndTime,
		name, round, final)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListGames(ctx context.Context) ([]matches.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+gameColumns+gameJoins+` ORDER BY g.end_time DESC`)
	if err != nil {
		return nil, err
	}
	return collectGames(rows)
}

// ListGamesByPlayer returns every game of the player when limit is not
// positive.
func (s *Store) ListGamesByPlayer(ctx context.Context, userID uuid.UUID, limit int) ([]matches.Record, error) {
	var bound *int
	if limit > 0 {
		bound = &limit
	}
	rows, err := s.pool.Query(ctx, `SELECT `+gameColumns+gameJoins+`
		WHERE g.player1 = $1 OR g.player2 = $1
		ORDER BY g.end_time DESC
		LIMIT $2
	`, userID, bound)
	if err != nil {
		return nil, err
	}
	return collectGames(rows)
}

func (s *Store) ListTournamentGames(ctx context.Context, name string) ([]matches.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+gameColumns+gameJoins+`
		WHERE g.tournament_name = $1
		ORDER BY g.round, g.end_time
	`, name)
	if err != nil {
		return nil, err
	}
	return collectGames(rows)
}

func collectGames(rows pgx.Rows) ([]matches.Record, error) {
	defer rows.Close()
	items := make([]matches.Record, 0)
	for rows.Next() {
		var (
			v      matches.Record
			h1, h2 string
			name   *string
			round  *int
			final  bool
		)
		if err := rows.Scan(
			&v.GameID, &v.Player1Score, &v.Player2Score, &v.StartTime, &v.EndTime,
			&name, &round, &final,
			&v.Player1.ID, &v.Player1.IntraID, &v.Player1.Nickname, &h1,
			&v.Player2.ID, &v.Player2.IntraID, &v.Player2.Nickname, &h2,
		); err != nil {
			return nil, err
		}
		v.Player1.House = players.House(h1)
		v.Player2.House = players.House(h2)
		if name != nil && round != nil {
			v.Tournament = &matches.Tournament{Name: *name, Round: *round, Final: final}
		}
		items = append(items, v)
	}
	return items, rows.Err()
}
