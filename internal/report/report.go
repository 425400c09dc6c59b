// Package report turns stored games and rounds into the series the cli
// prints.
package report

import (
	"context"

	"geostat/internal/geostat"
	"geostat/internal/store"
)

// MetersPerMile converts stored guess distances for display.
const MetersPerMile = 1609.34

type Source interface {
	Games(ctx context.Context, slug string) ([]geostat.Game, error)
	Rounds(ctx context.Context, slug string) ([]geostat.Round, error)
	Maps(ctx context.Context) ([]store.MapSummary, error)
}

type ScorePoint struct {
	Date    string
	Score   float64
	MapName string
}

// RoundPoint is one round placed at either the guess or the true location.
type RoundPoint struct {
	GameID string
	Round  int
	Lat    float64
	Lon    float64
	// Score is nil for rounds upstream did not score.
	Score         *int64
	DistanceMiles float64
	MapName       string
}

// ScoresOverTime lists game scores by date.
func ScoresOverTime(ctx context.Context, src Source, slug string) ([]ScorePoint, error) {
	games, err := src.Games(ctx, slug)
	if err != nil {
		return nil, err
	}
	points := make([]ScorePoint, len(games))
	for i, g := range games {
		points[i] = ScorePoint{Date: g.Date, Score: g.Score, MapName: g.MapName}
	}
	return points, nil
}

// GuessQuality places every round at the guessed location.
func GuessQuality(ctx context.Context, src Source, slug string) ([]RoundPoint, error) {
	return roundPoints(ctx, src, slug, func(r geostat.Round) (float64, float64) {
		return r.GuessLat, r.GuessLon
	})
}

// LocationDifficulty places every round at the true location, so hard
// locations show up as clusters of low scores.
func LocationDifficulty(ctx context.Context, src Source, slug string) ([]RoundPoint, error) {
	return roundPoints(ctx, src, slug, func(r geostat.Round) (float64, float64) {
		return r.LocLat, r.LocLon
	})
}

func roundPoints(
	ctx context.Context,
	src Source,
	slug string,
	position func(geostat.Round) (float64, float64),
) ([]RoundPoint, error) {
	rounds, err := src.Rounds(ctx, slug)
	if err != nil {
		return nil, err
	}
	points := make([]RoundPoint, len(rounds))
	for i, r := range rounds {
		lat, lon := position(r)
		points[i] = RoundPoint{
			GameID:        r.GameID,
			Round:         r.Index,
			Lat:           lat,
			Lon:           lon,
			Score:         r.GuessScore,
			DistanceMiles: r.GuessDistance / MetersPerMile,
			MapName:       r.MapName,
		}
	}
	return points, nil
}

func ListMaps(ctx context.Context, src Source) ([]store.MapSummary, error) {
	return src.Maps(ctx)
}
