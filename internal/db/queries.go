package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Game struct {
	GameID    string
	Date      string
	MapName   string
	MapSlug   string
	Score     float64
	MinLat    float64
	MinLon    float64
	MaxLat    float64
	MaxLon    float64
	NoMove    bool
	NoRotate  bool
	NoZoom    bool
	GameType  string
	TimeLimit float64
}

type Round struct {
	GameID        string
	RoundIdx      int64
	MapName       string
	MapSlug       string
	GuessScore    sql.NullInt64
	GuessLat      float64
	GuessLon      float64
	GuessTime     float64
	GuessDistance float64
	LocLat        float64
	LocLon        float64
}

const createGame = `INSERT INTO games (
    game_id, date, map_name, map_slug, score,
    min_lat, min_lon, max_lat, max_lon,
    no_move, no_rotate, no_zoom, game_type, time_limit
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateGame(ctx context.Context, arg Game) error {
	_, err := q.db.ExecContext(ctx, createGame,
		arg.GameID, arg.Date, arg.MapName, arg.MapSlug, arg.Score,
		arg.MinLat, arg.MinLon, arg.MaxLat, arg.MaxLon,
		arg.NoMove, arg.NoRotate, arg.NoZoom, arg.GameType, arg.TimeLimit,
	)
	return err
}

const createRound = `INSERT INTO rounds (
    game_id, round_idx, map_name, map_slug, guess_score,
    guess_lat, guess_lon, guess_time, guess_distance,
    loc_lat, loc_lon
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateRound(ctx context.Context, arg Round) error {
	_, err := q.db.ExecContext(ctx, createRound,
		arg.GameID, arg.RoundIdx, arg.MapName, arg.MapSlug, arg.GuessScore,
		arg.GuessLat, arg.GuessLon, arg.GuessTime, arg.GuessDistance,
		arg.LocLat, arg.LocLon,
	)
	return err
}

const gameExists = `SELECT EXISTS (SELECT 1 FROM games WHERE game_id = ?)`

func (q *Queries) GameExists(ctx context.Context, gameID string) (bool, error) {
	row := q.db.QueryRowContext(ctx, gameExists, gameID)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const countRounds = `SELECT COUNT(*) FROM rounds WHERE game_id = ?`

func (q *Queries) CountRounds(ctx context.Context, gameID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countRounds, gameID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const tableExists = `SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?)`

func (q *Queries) TableExists(ctx context.Context, name string) (bool, error) {
	row := q.db.QueryRowContext(ctx, tableExists, name)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

// an empty slug matches every map
const listGames = `SELECT
    game_id, date, map_name, map_slug, score,
    min_lat, min_lon, max_lat, max_lon,
    no_move, no_rotate, no_zoom, game_type, time_limit
FROM games
WHERE ? = '' OR map_slug = ?
ORDER BY date`

func (q *Queries) ListGames(ctx context.Context, mapSlug string) ([]Game, error) {
	rows, err := q.db.QueryContext(ctx, listGames, mapSlug, mapSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Game
	for rows.Next() {
		var i Game
		err := rows.Scan(
			&i.GameID, &i.Date, &i.MapName, &i.MapSlug, &i.Score,
			&i.MinLat, &i.MinLon, &i.MaxLat, &i.MaxLon,
			&i.NoMove, &i.NoRotate, &i.NoZoom, &i.GameType, &i.TimeLimit,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listRounds = `SELECT
    game_id, round_idx, map_name, map_slug, guess_score,
    guess_lat, guess_lon, guess_time, guess_distance,
    loc_lat, loc_lon
FROM rounds
WHERE ? = '' OR map_slug = ?
ORDER BY game_id, round_idx`

func (q *Queries) ListRounds(ctx context.Context, mapSlug string) ([]Round, error) {
	rows, err := q.db.QueryContext(ctx, listRounds, mapSlug, mapSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Round
	for rows.Next() {
		var i Round
		err := rows.Scan(
			&i.GameID, &i.RoundIdx, &i.MapName, &i.MapSlug, &i.GuessScore,
			&i.GuessLat, &i.GuessLon, &i.GuessTime, &i.GuessDistance,
			&i.LocLat, &i.LocLon,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type ListMapsRow struct {
	MapName      string
	MapSlug      string
	Count        int64
	AverageScore float64
}

const listMaps = `SELECT
    MAX(map_name) AS map_name, map_slug, COUNT(*) AS count, AVG(score) AS average_score
FROM games
GROUP BY map_slug
ORDER BY count DESC, map_slug`

func (q *Queries) ListMaps(ctx context.Context) ([]ListMapsRow, error) {
	rows, err := q.db.QueryContext(ctx, listMaps)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListMapsRow
	for rows.Next() {
		var i ListMapsRow
		err := rows.Scan(&i.MapName, &i.MapSlug, &i.Count, &i.AverageScore)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
