package geostat

import (
	"testing"

	"geostat/internal/components/telemetry"
	"geostat/internal/geoguessr"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testDetail(rounds int) geoguessr.GameDetail {
	detail := geoguessr.GameDetail{
		Bounds: geoguessr.Bounds{
			Min: geoguessr.LatLng{Lat: -60, Lng: -170},
			Max: geoguessr.LatLng{Lat: 80, Lng: 170},
		},
		ForbidMoving:  true,
		ForbidZooming: true,
		Type:          "standard",
		TimeLimit:     120,
	}
	for i := 0; i < rounds; i++ {
		detail.Player.Guesses = append(detail.Player.Guesses, geoguessr.Guess{
			Lat:              float64(i) + 0.5,
			Lng:              float64(i) - 0.5,
			Time:             float64(10 * (i + 1)),
			DistanceInMeters: float64(1000 * i),
			RoundScore: geoguessr.RoundScore{
				Amount: geoguessr.Points{Value: int64(5000 - 100*i), Valid: true},
			},
		})
		detail.Rounds = append(detail.Rounds, geoguessr.LatLng{Lat: float64(i), Lng: float64(-i)})
	}
	return detail
}

func challengeActivity() geoguessr.Activity {
	return geoguessr.Activity{
		Type:     geoguessr.ActivityChallenge,
		DateTime: "2021-05-01T12:00:00Z",
		Payload: geoguessr.ActivityPayload{
			Challenge: &geoguessr.ChallengePayload{Token: "abc123", Score: 21000},
			Map:       &geoguessr.MapPayload{Name: "World", Slug: "world"},
		},
	}
}

func TestClassifyPayload(t *testing.T) {
	testCases := []struct {
		name     string
		payload  geoguessr.ActivityPayload
		expected PayloadKind
	}{
		{
			name: "challenge",
			payload: geoguessr.ActivityPayload{
				Challenge: &geoguessr.ChallengePayload{Token: "abc123", Score: 21000},
				Map:       &geoguessr.MapPayload{Name: "World", Slug: "world", GameToken: "ignored"},
			},
			expected: Challenge{Token: "abc123", Points: 21000},
		},
		{
			name: "map",
			payload: geoguessr.ActivityPayload{
				Map: &geoguessr.MapPayload{Name: "World", Slug: "world", GameToken: "g1", Score: 100},
			},
			expected: MapPlay{GameToken: "g1", Points: 100},
		},
		{name: "empty", payload: geoguessr.ActivityPayload{}},
		{
			name:    "challenge without token",
			payload: geoguessr.ActivityPayload{Challenge: &geoguessr.ChallengePayload{Score: 10}},
		},
		{
			name:    "map without token",
			payload: geoguessr.ActivityPayload{Map: &geoguessr.MapPayload{Name: "World"}},
		},
	}

	for _, test := range testCases {
		kind, err := ClassifyPayload(geoguessr.Activity{
			Type:     geoguessr.ActivityMap,
			DateTime: "2021-05-01T12:00:00Z",
			Payload:  test.payload,
		})
		if test.expected == nil {
			var identityErr *IdentityResolutionError
			require.ErrorAs(t, err, &identityErr, test.name)
			require.Equal(t, "2021-05-01T12:00:00Z", identityErr.DateTime)
			continue
		}
		require.NoError(t, err, test.name)
		require.Equal(t, test.expected, kind, test.name)
	}
}

func TestNormalizeChallenge(t *testing.T) {
	n := NewNormalizer(telemetry.NewRecorder())

	game, rounds, err := n.Normalize(challengeActivity(), testDetail(RoundsPerGame))
	require.NoError(t, err)

	diff := cmp.Diff(Game{
		GameID:  "abc123",
		Date:    "2021-05-01T12:00:00Z",
		MapName: "World",
		MapSlug: "world",
		Score:   21000,
		Bounds: Bounds{
			MinLat: -60, MinLon: -170,
			MaxLat: 80, MaxLon: 170,
		},
		NoMove:    true,
		NoZoom:    true,
		GameType:  "standard",
		TimeLimit: 120,
	}, game)
	if diff != "" {
		t.Fatal(diff)
	}

	require.Len(t, rounds, RoundsPerGame)
	for i, round := range rounds {
		require.Equal(t, i, round.Index)
		require.Equal(t, "abc123", round.GameID)
		require.Equal(t, "world", round.MapSlug)
		require.Equal(t, float64(i), round.LocLat)
		require.Equal(t, float64(-i), round.LocLon)
		require.Equal(t, float64(i)+0.5, round.GuessLat)
		require.NotNil(t, round.GuessScore)
		require.EqualValues(t, 5000-100*i, *round.GuessScore)
		require.GreaterOrEqual(t, round.GuessTime, 0.0)
		require.GreaterOrEqual(t, round.GuessDistance, 0.0)
	}
}

func TestNormalizeShapeIndependence(t *testing.T) {
	n := NewNormalizer(telemetry.NewRecorder())

	mapActivity := geoguessr.Activity{
		Type:     geoguessr.ActivityMap,
		DateTime: "2021-05-01T12:00:00Z",
		Payload: geoguessr.ActivityPayload{
			Map: &geoguessr.MapPayload{Name: "World", Slug: "world", GameToken: "abc123", Score: 21000},
		},
	}

	challengeGame, challengeRounds, err := n.Normalize(challengeActivity(), testDetail(RoundsPerGame))
	require.NoError(t, err)
	mapGame, mapRounds, err := n.Normalize(mapActivity, testDetail(RoundsPerGame))
	require.NoError(t, err)

	require.Equal(t, challengeGame, mapGame)
	require.Equal(t, challengeRounds, mapRounds)
}

func TestNormalizeAlignment(t *testing.T) {
	n := NewNormalizer(telemetry.NewRecorder())

	short := testDetail(RoundsPerGame)
	short.Rounds = short.Rounds[:3]

	_, _, err := n.Normalize(challengeActivity(), short)
	var alignmentErr *AlignmentError
	require.ErrorAs(t, err, &alignmentErr)
	require.Equal(t, AlignmentError{GameID: "abc123", Guesses: 5, Rounds: 3}, *alignmentErr)

	// extra entries beyond the fifth are ignored
	_, rounds, err := n.Normalize(challengeActivity(), testDetail(RoundsPerGame+2))
	require.NoError(t, err)
	require.Len(t, rounds, RoundsPerGame)
}

func TestNormalizeClampsNegatives(t *testing.T) {
	rec := telemetry.NewRecorder()
	n := NewNormalizer(rec)

	detail := testDetail(RoundsPerGame)
	detail.Player.Guesses[2].Time = -1
	detail.Player.Guesses[3].DistanceInMeters = -20
	detail.Player.Guesses[4].RoundScore.Amount = geoguessr.Points{}

	_, rounds, err := n.Normalize(challengeActivity(), detail)
	require.NoError(t, err)
	require.Zero(t, rounds[2].GuessTime)
	require.Zero(t, rounds[3].GuessDistance)
	require.Nil(t, rounds[4].GuessScore)
	require.Len(t, rec.Find("warning", report_normalizer_normalize), 2)
}

func TestNormalizeUnknownShape(t *testing.T) {
	n := NewNormalizer(telemetry.NewRecorder())

	_, _, err := n.Normalize(geoguessr.Activity{Type: geoguessr.ActivityMap}, testDetail(RoundsPerGame))
	var identityErr *IdentityResolutionError
	require.ErrorAs(t, err, &identityErr)
}
