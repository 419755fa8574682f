package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/domain/players"
	"github.com/lutefd/pongboard/internal/storage"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	intra_id TEXT NOT NULL UNIQUE,
	nickname TEXT NOT NULL UNIQUE CHECK (length(nickname) BETWEEN 1 AND 20),
	house TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS game_logs (
	game_id TEXT PRIMARY KEY,
	player1 TEXT NOT NULL REFERENCES users(id),
	player2 TEXT NOT NULL REFERENCES users(id),
	player1_score INTEGER NOT NULL,
	player2_score INTEGER NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	tournament_name TEXT,
	round INTEGER,
	is_final INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS game_logs_end_idx ON game_logs (end_time);
CREATE INDEX IF NOT EXISTS game_logs_tournament_idx ON game_logs (tournament_name, round, end_time);
`

// Store keeps users and game logs in a single SQLite file. Timestamps are
// stored as RFC 3339 text in UTC so they sort lexically.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}

const gameQuery = `
	SELECT g.game_id, g.player1_score, g.player2_score, g.start_time, g.end_time,
	       g.tournament_name, g.round, g.is_final,
	       p1.id, p1.intra_id, p1.nickname, p1.house,
	       p2.id, p2.intra_id, p2.nickname, p2.house
	FROM game_logs g
	JOIN users p1 ON p1.id = g.player1
	JOIN users p2 ON p2.id = g.player2`

func (s *Store) EnsurePlayer(ctx context.Context, p players.Player) (players.Player, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, intra_id, nickname, house, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (intra_id) DO NOTHING
	`, p.ID.String(), p.IntraID, p.Nickname, string(p.House), formatTime(p.CreatedAt))
	if err != nil {
		return players.Player{}, mapError(err)
	}
	return s.GetPlayerByIntraID(ctx, p.IntraID)
}

func (s *Store) UpdateNickname(ctx context.Context, id uuid.UUID, nickname string) (players.Player, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET nickname = ? WHERE id = ?`, nickname, id.String())
	if err != nil {
		return players.Player{}, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return players.Player{}, err
	}
	if n == 0 {
		return players.Player{}, storage.ErrNotFound
	}
	return s.GetPlayer(ctx, id)
}

func mapError(err error) error {
	var sqlErr *sqlitedriver.Error
	if errors.As(err, &sqlErr) && sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return storage.ErrConflict
	}
	return err
}

func (s *Store) GetPlayer(ctx context.Context, id uuid.UUID) (players.Player, error) {
	return scanPlayer(s.db.QueryRowContext(ctx,
		`SELECT id, intra_id, nickname, house, created_at FROM users WHERE id = ?`, id.String()))
}

func (s *Store) GetPlayerByIntraID(ctx context.Context, intraID string) (players.Player, error) {
	return scanPlayer(s.db.QueryRowContext(ctx,
		`SELECT id, intra_id, nickname, house, created_at FROM users WHERE intra_id = ?`, intraID))
}

func scanPlayer(row *sql.Row) (players.Player, error) {
	var (
		p                    players.Player
		id, house, createdAt string
	)
	if err := row.Scan(&id, &p.IntraID, &p.Nickname, &house, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return players.Player{}, storage.ErrNotFound
		}
		return players.Player{}, err
	}
	var err error
	if p.ID, err = uuid.Parse(id); err != nil {
		return players.Player{}, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return players.Player{}, err
	}
	p.House = players.House(house)
	return p, nil
}

func (s *Store) CreateGame(ctx context.Context, r matches.Record) (bool, error) {
	var (
		name  sql.NullString
		round sql.NullInt64
		final bool
	)
	if t := r.Tournament; t != nil {
		name = sql.NullString{String: t.Name, Valid: true}
		round = sql.NullInt64{Int64: int64(t.Round), Valid: true}
		final = t.Final
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO game_logs (game_id, player1, player2, player1_score, player2_score, start_time, end_time,
			tournament_name, round, is_final)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_id) DO NOTHING
	`, r.GameID.String(), r.Player1.ID.String(), r.Player2.ID.String(),
		r.Player1Score, r.Player2Score, formatTime(r.StartTime), formatTime(r.EndTime),
		name, round, final)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) ListGames(ctx context.Context) ([]matches.Record, error) {
	rows, err := s.db.QueryContext(ctx, gameQuery+` ORDER BY g.end_time DESC`)
	if err != nil {
		return nil, err
	}
	return collectGames(rows)
}

// ListGamesByPlayer returns every game of the player when limit is not
// positive.
func (s *Store) ListGamesByPlayer(ctx context.Context, userID uuid.UUID, limit int) ([]matches.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, gameQuery+`
		WHERE g.player1 = ? OR g.player2 = ?
		ORDER BY g.end_time DESC
		LIMIT ?
	`, userID.String(), userID.String(), limit)
	if err != nil {
		return nil, err
	}
	return collectGames(rows)
}

func (s *Store) ListTournamentGames(ctx context.Context, name string) ([]matches.Record, error) {
	rows, err := s.db.QueryContext(ctx, gameQuery+`
		WHERE g.tournament_name = ?
		ORDER BY g.round, g.end_time
	`, name)
	if err != nil {
		return nil, err
	}
	return collectGames(rows)
}

func collectGames(rows *sql.Rows) ([]matches.Record, error) {
	defer rows.Close()
	items := make([]matches.Record, 0)
	for rows.Next() {
		var (
			v                  matches.Record
			gameID, id1, id2   string
			start, end, h1, h2 string
			name               sql.NullString
			round              sql.NullInt64
			final              bool
		)
		if err := rows.Scan(
			&gameID, &v.Player1Score, &v.Player2Score, &start, &end,
			&name, &round, &final,
			&id1, &v.Player1.IntraID, &v.Player1.Nickname, &h1,
			&id2, &v.Player2.IntraID, &v.Player2.Nickname, &h2,
		); err != nil {
			return nil, err
		}
		var err error
		if v.GameID, err = uuid.Parse(gameID); err != nil {
			return nil, err
		}
		if v.Player1.ID, err = uuid.Parse(id1); err != nil {
			return nil, err
		}
		if v.Player2.ID, err = uuid.Parse(id2); err != nil {
			return nil, err
		}
		if v.StartTime, err = parseTime(start); err != nil {
			return nil, err
		}
		if v.EndTime, err = parseTime(end); err != nil {
			return nil, err
		}
		v.Player1.House = players.House(h1)
		v.Player2.House = players.House(h2)
		if name.Valid && round.Valid {
			v.Tournament = &matches.Tournament{Name: name.String, Round: int(round.Int64), Final: final}
		}
		items = append(items, v)
	}
	return items, rows.Err()
}
