package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"geostat/internal/components/telemetry"
	"geostat/internal/config"
	"geostat/internal/geostat"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func openTestStore(t *testing.T, ctx context.Context) *Store {
	path := filepath.Join(t.TempDir(), "GeoData.db")
	s, err := Open(ctx, config.Store{File: path}, telemetry.NewRecorder())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.InitSchema(ctx))
	return s
}

func testGame(id, slug, date string, score float64) (geostat.Game, []geostat.Round) {
	game := geostat.Game{
		GameID:  id,
		Date:    date,
		MapName: "Map " + slug,
		MapSlug: slug,
		Score:   score,
		Bounds: geostat.Bounds{
			MinLat: -60, MinLon: -170,
			MaxLat: 80, MaxLon: 170,
		},
		NoMove:    true,
		GameType:  "standard",
		TimeLimit: 60,
	}
	rounds := make([]geostat.Round, geostat.RoundsPerGame)
	for i := range rounds {
		points := int64(4000 + i)
		rounds[i] = geostat.Round{
			GameID:        id,
			Index:         i,
			MapName:       game.MapName,
			MapSlug:       slug,
			GuessScore:    &points,
			GuessLat:      float64(i),
			GuessLon:      float64(-i),
			GuessTime:     12.5,
			GuessDistance: 1500,
			LocLat:        float64(i) + 1,
			LocLon:        float64(-i) - 1,
		}
	}
	// upstream does not always score a round
	rounds[4].GuessScore = nil
	return game, rounds
}

func TestSaveAndRead(t *testing.T) {
	ctx := testContext(t)
	s := openTestStore(t, ctx)

	batch, err := s.Begin(ctx)
	require.NoError(t, err)
	defer batch.Rollback()

	worldGame, worldRounds := testGame("g1", "world", "2021-05-01T12:00:00Z", 21000)
	usGame, usRounds := testGame("g2", "usa", "2021-05-02T12:00:00Z", 18000)
	otherGame, otherRounds := testGame("g3", "world", "2021-04-01T12:00:00Z", 9000)
	require.NoError(t, batch.SaveGame(ctx, worldGame, worldRounds))
	require.NoError(t, batch.SaveGame(ctx, usGame, usRounds))
	require.NoError(t, batch.SaveGame(ctx, otherGame, otherRounds))
	require.NoError(t, batch.Commit())

	count, err := s.CountRounds(ctx, "g1")
	require.NoError(t, err)
	require.EqualValues(t, geostat.RoundsPerGame, count)

	games, err := s.Games(ctx, "world")
	require.NoError(t, err)
	diff := cmp.Diff([]geostat.Game{otherGame, worldGame}, games)
	if diff != "" {
		t.Fatal(diff)
	}

	all, err := s.Games(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	rounds, err := s.Rounds(ctx, "usa")
	require.NoError(t, err)
	diff = cmp.Diff(usRounds, rounds)
	if diff != "" {
		t.Fatal(diff)
	}

	maps, err := s.Maps(ctx)
	require.NoError(t, err)
	require.Equal(t, []MapSummary{
		{Name: "Map world", Slug: "world", Games: 2, AverageScore: 15000},
		{Name: "Map usa", Slug: "usa", Games: 1, AverageScore: 18000},
	}, maps)
}

func TestSaveDuplicate(t *testing.T) {
	ctx := testContext(t)
	s := openTestStore(t, ctx)

	batch, err := s.Begin(ctx)
	require.NoError(t, err)
	defer batch.Rollback()

	game, rounds := testGame("g1", "world", "2021-05-01T12:00:00Z", 21000)
	require.NoError(t, batch.SaveGame(ctx, game, rounds))

	err = batch.SaveGame(ctx, game, rounds)
	require.ErrorIs(t, err, ErrDuplicateGame)
	require.NoError(t, batch.Commit())

	count, err := s.CountRounds(ctx, "g1")
	require.NoError(t, err)
	require.EqualValues(t, geostat.RoundsPerGame, count)
}

func TestSaveRollsBackGameOnly(t *testing.T) {
	ctx := testContext(t)
	s := openTestStore(t, ctx)

	batch, err := s.Begin(ctx)
	require.NoError(t, err)
	defer batch.Rollback()

	good, goodRounds := testGame("good", "world", "2021-05-01T12:00:00Z", 21000)
	bad, badRounds := testGame("bad", "world", "2021-05-02T12:00:00Z", 100)
	// violates the guess_time check on the fourth insert
	badRounds[3].GuessTime = -1

	require.NoError(t, batch.SaveGame(ctx, good, goodRounds))
	require.Error(t, batch.SaveGame(ctx, bad, badRounds))
	require.NoError(t, batch.Commit())

	games, err := s.Games(ctx, "")
	require.NoError(t, err)
	require.Len(t, games, 1)
	require.Equal(t, "good", games[0].GameID)

	count, err := s.CountRounds(ctx, "bad")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestCheckpoint(t *testing.T) {
	ctx := testContext(t)
	s := openTestStore(t, ctx)

	batch, err := s.Begin(ctx)
	require.NoError(t, err)

	first, firstRounds := testGame("g1", "world", "2021-05-01T12:00:00Z", 21000)
	second, secondRounds := testGame("g2", "world", "2021-05-02T12:00:00Z", 100)

	require.NoError(t, batch.SaveGame(ctx, first, firstRounds))
	require.NoError(t, batch.Checkpoint(ctx))
	require.NoError(t, batch.SaveGame(ctx, second, secondRounds))
	require.NoError(t, batch.Rollback())

	games, err := s.Games(ctx, "")
	require.NoError(t, err)
	require.Len(t, games, 1)
	require.Equal(t, "g1", games[0].GameID)
}

func TestInitSchemaConflict(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "GeoData.db")

	s, err := Open(ctx, config.Store{File: path}, telemetry.NewRecorder())
	require.NoError(t, err)
	require.NoError(t, s.InitSchema(ctx))

	var conflict *SchemaConflictError
	err = s.InitSchema(ctx)
	require.True(t, errors.As(err, &conflict))
	require.Equal(t, path, conflict.Path)
	require.NoError(t, s.Close())

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	reopened, err := Open(ctx, config.Store{File: path}, telemetry.NewRecorder())
	require.NoError(t, err)
	err = reopened.InitSchema(ctx)
	require.ErrorAs(t, err, &conflict)
	require.NoError(t, reopened.Close())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)

	require.NoError(t, Remove(path))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + "-wal")
	require.True(t, os.IsNotExist(err))

	fresh, err := Open(ctx, config.Store{File: path}, telemetry.NewRecorder())
	require.NoError(t, err)
	defer fresh.Close()
	require.NoError(t, fresh.InitSchema(ctx))
}

func TestRemoveMissing(t *testing.T) {
	require.NoError(t, Remove(filepath.Join(t.TempDir(), "missing.db")))
}
