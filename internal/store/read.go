package store

import (
	"context"

	"geostat/internal/geostat"
)

// MapSummary is one map played at least once.
type MapSummary struct {
	Name         string
	Slug         string
	Games        int64
	AverageScore float64
}

// Games lists stored games by date, an empty slug lists every map.
func (s *Store) Games(ctx context.Context, slug string) ([]geostat.Game, error) {
	rows, err := s.qry.ListGames(ctx, slug)
	if err != nil {
		return nil, err
	}
	games := make([]geostat.Game, len(rows))
	for i, r := range rows {
		games[i] = geostat.Game{
			GameID:  r.GameID,
			Date:    r.Date,
			MapName: r.MapName,
			MapSlug: r.MapSlug,
			Score:   r.Score,
			Bounds: geostat.Bounds{
				MinLat: r.MinLat,
				MinLon: r.MinLon,
				MaxLat: r.MaxLat,
				MaxLon: r.MaxLon,
			},
			NoMove:    r.NoMove,
			NoRotate:  r.NoRotate,
			NoZoom:    r.NoZoom,
			GameType:  r.GameType,
			TimeLimit: r.TimeLimit,
		}
	}
	return games, nil
}

// Rounds lists stored rounds grouped by game, an empty slug lists every map.
func (s *Store) Rounds(ctx context.Context, slug string) ([]geostat.Round, error) {
	rows, err := s.qry.ListRounds(ctx, slug)
	if err != nil {
		return nil, err
	}
	rounds := make([]geostat.Round, len(rows))
	for i, r := range rows {
		var score *int64
		if r.GuessScore.Valid {
			value := r.GuessScore.Int64
			score = &value
		}
		rounds[i] = geostat.Round{
			GameID:        r.GameID,
			Index:         int(r.RoundIdx),
			MapName:       r.MapName,
			MapSlug:       r.MapSlug,
			GuessScore:    score,
			GuessLat:      r.GuessLat,
			GuessLon:      r.GuessLon,
			GuessTime:     r.GuessTime,
			GuessDistance: r.GuessDistance,
			LocLat:        r.LocLat,
			LocLon:        r.LocLon,
		}
	}
	return rounds, nil
}

// Maps lists every stored map, most played first.
func (s *Store) Maps(ctx context.Context) ([]MapSummary, error) {
	rows, err := s.qry.ListMaps(ctx)
	if err != nil {
		return nil, err
	}
	maps := make([]MapSummary, len(rows))
	for i, r := range rows {
		maps[i] = MapSummary{
			Name:         r.MapName,
			Slug:         r.MapSlug,
			Games:        r.Count,
			AverageScore: r.AverageScore,
		}
	}
	return maps, nil
}

func (s *Store) CountRounds(ctx context.Context, gameID string) (int64, error) {
	return s.qry.CountRounds(ctx, gameID)
}
