// Package geostat maps scraped activities and game detail onto the games and
// rounds that get persisted.
package geostat

import (
	"fmt"

	"geostat/internal/components/assert"
	"geostat/internal/components/telemetry"
	"geostat/internal/geoguessr"
)

// RoundsPerGame is the fixed number of rounds in one game.
const RoundsPerGame = 5

const report_normalizer_normalize = "normalizer.normalize"

type Bounds struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

type Game struct {
	GameID    string
	Date      string
	MapName   string
	MapSlug   string
	Score     float64
	Bounds    Bounds
	NoMove    bool
	NoRotate  bool
	NoZoom    bool
	GameType  string
	TimeLimit float64
}

type Round struct {
	GameID  string
	Index   int
	MapName string
	MapSlug string
	// GuessScore is nil when upstream did not report a score for the round.
	GuessScore *int64
	GuessLat   float64
	GuessLon   float64
	// GuessTime is in seconds.
	GuessTime float64
	// GuessDistance is in meters.
	GuessDistance float64
	LocLat        float64
	LocLon        float64
}

// AlignmentError means the detail does not carry RoundsPerGame guesses and
// locations to pair up.
type AlignmentError struct {
	GameID  string
	Guesses int
	Rounds  int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf(
		"geostat: game %s has %d guesses and %d rounds, need %d of each",
		e.GameID, e.Guesses, e.Rounds, RoundsPerGame,
	)
}

type Normalizer struct {
	tel telemetry.API
}

func NewNormalizer(tel telemetry.API) Normalizer {
	assert.NotNil(tel)
	return Normalizer{tel: telemetry.NewScopedAPI("geostat", tel)}
}

// Normalize builds the game and its rounds. Round i pairs guess i with
// location i, only the first RoundsPerGame of each are read.
func (n Normalizer) Normalize(activity geoguessr.Activity, detail geoguessr.GameDetail) (Game, []Round, error) {
	kind, err := ClassifyPayload(activity)
	if err != nil {
		return Game{}, nil, err
	}
	gameID := kind.GameID()

	guesses := detail.Player.Guesses
	if len(guesses) < RoundsPerGame || len(detail.Rounds) < RoundsPerGame {
		return Game{}, nil, &AlignmentError{
			GameID:  gameID,
			Guesses: len(guesses),
			Rounds:  len(detail.Rounds),
		}
	}

	mapName, mapSlug := activity.Payload.MapName()
	game := Game{
		GameID:  gameID,
		Date:    activity.DateTime,
		MapName: mapName,
		MapSlug: mapSlug,
		Score:   kind.Score(),
		Bounds: Bounds{
			MinLat: detail.Bounds.Min.Lat,
			MinLon: detail.Bounds.Min.Lng,
			MaxLat: detail.Bounds.Max.Lat,
			MaxLon: detail.Bounds.Max.Lng,
		},
		NoMove:    detail.ForbidMoving,
		NoRotate:  detail.ForbidRotating,
		NoZoom:    detail.ForbidZooming,
		GameType:  detail.Type,
		TimeLimit: detail.TimeLimit,
	}

	rounds := make([]Round, RoundsPerGame)
	for i := range rounds {
		guess := guesses[i]
		location := detail.Rounds[i]

		var score *int64
		if guess.RoundScore.Amount.Valid {
			amount := guess.RoundScore.Amount.Value
			score = &amount
		}

		rounds[i] = Round{
			GameID:        gameID,
			Index:         i,
			MapName:       mapName,
			MapSlug:       mapSlug,
			GuessScore:    score,
			GuessLat:      guess.Lat,
			GuessLon:      guess.Lng,
			GuessTime:     n.nonNegative(gameID, i, "time", guess.Time),
			GuessDistance: n.nonNegative(gameID, i, "distance", guess.DistanceInMeters),
			LocLat:        location.Lat,
			LocLon:        location.Lng,
		}
	}

	return game, rounds, nil
}

func (n Normalizer) nonNegative(gameID string, round int, field string, value float64) float64 {
	if value >= 0 {
		return value
	}
	n.tel.ReportWarning(
		report_normalizer_normalize,
		fmt.Errorf("negative %s clamped to 0", field),
		gameID,
		round,
		value,
	)
	return 0
}
