package store

import (
	"context"
	"database/sql"
	"fmt"

	"geostat/internal/db"
	"geostat/internal/geostat"
)

// Batch is the transaction of one scrape run. Nothing it writes is visible
// to other connections until Checkpoint or Commit.
type Batch struct {
	store *Store
	tx    *sql.Tx
	qry   *db.Queries
}

func (s *Store) Begin(ctx context.Context) (*Batch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.tel.ReportBroken(report_store_save, fmt.Errorf("begin: %w", err))
		return nil, err
	}
	return &Batch{store: s, tx: tx, qry: s.qry.WithTx(tx)}, nil
}

// InsertGame writes the game row, a game id that is already stored gives
// ErrDuplicateGame.
func (b *Batch) InsertGame(ctx context.Context, game geostat.Game) error {
	return insertGame(ctx, b.qry, game)
}

func (b *Batch) InsertRounds(ctx context.Context, rounds []geostat.Round) error {
	return insertRounds(ctx, b.qry, rounds)
}

// SaveGame writes a game and its rounds in a savepoint, either all of them
// land or none do.
func (b *Batch) SaveGame(ctx context.Context, game geostat.Game, rounds []geostat.Round) error {
	err := db.Savepoint(ctx, b.tx, "save_game", func(qry *db.Queries) error {
		err := insertGame(ctx, qry, game)
		if err != nil {
			return err
		}
		return insertRounds(ctx, qry, rounds)
	})
	if err != nil {
		return fmt.Errorf("save game %s: %w", game.GameID, err)
	}
	return nil
}

// Checkpoint commits everything written so far and keeps the batch open for
// more writes.
func (b *Batch) Checkpoint(ctx context.Context) error {
	err := b.tx.Commit()
	if err != nil {
		b.store.tel.ReportBroken(report_store_save, fmt.Errorf("checkpoint: %w", err))
		return err
	}
	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		b.store.tel.ReportBroken(report_store_save, fmt.Errorf("begin: %w", err))
		return err
	}
	b.tx = tx
	b.qry = b.store.qry.WithTx(tx)
	return nil
}

func (b *Batch) Commit() error {
	err := b.tx.Commit()
	if err != nil {
		b.store.tel.ReportBroken(report_store_save, fmt.Errorf("commit: %w", err))
	}
	return err
}

// Rollback discards everything since the last Checkpoint. It is a no-op after
// Commit so it can be deferred.
func (b *Batch) Rollback() error {
	err := b.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

func insertGame(ctx context.Context, qry *db.Queries, game geostat.Game) error {
	exists, err := qry.GameExists(ctx, game.GameID)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateGame
	}

	return qry.CreateGame(ctx, db.Game{
		GameID:    game.GameID,
		Date:      game.Date,
		MapName:   game.MapName,
		MapSlug:   game.MapSlug,
		Score:     game.Score,
		MinLat:    game.Bounds.MinLat,
		MinLon:    game.Bounds.MinLon,
		MaxLat:    game.Bounds.MaxLat,
		MaxLon:    game.Bounds.MaxLon,
		NoMove:    game.NoMove,
		NoRotate:  game.NoRotate,
		NoZoom:    game.NoZoom,
		GameType:  game.GameType,
		TimeLimit: game.TimeLimit,
	})
}

func insertRounds(ctx context.Context, qry *db.Queries, rounds []geostat.Round) error {
	for _, round := range rounds {
		var score sql.NullInt64
		if round.GuessScore != nil {
			score = sql.NullInt64{Int64: *round.GuessScore, Valid: true}
		}
		err := qry.CreateRound(ctx, db.Round{
			GameID:        round.GameID,
			RoundIdx:      int64(round.Index),
			MapName:       round.MapName,
			MapSlug:       round.MapSlug,
			GuessScore:    score,
			GuessLat:      round.GuessLat,
			GuessLon:      round.GuessLon,
			GuessTime:     round.GuessTime,
			GuessDistance: round.GuessDistance,
			LocLat:        round.LocLat,
			LocLon:        round.LocLon,
		})
		if err != nil {
			return fmt.Errorf("round %d: %w", round.Index, err)
		}
	}
	return nil
}
