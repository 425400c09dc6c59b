package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"geostat/internal/geostat"
	"geostat/internal/store"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	games  []geostat.Game
	rounds []geostat.Round
	maps   []store.MapSummary
}

func (m memorySource) Games(ctx context.Context, slug string) ([]geostat.Game, error) {
	var out []geostat.Game
	for _, g := range m.games {
		if slug == "" || g.MapSlug == slug {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m memorySource) Rounds(ctx context.Context, slug string) ([]geostat.Round, error) {
	var out []geostat.Round
	for _, r := range m.rounds {
		if slug == "" || r.MapSlug == slug {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m memorySource) Maps(ctx context.Context) ([]store.MapSummary, error) {
	return m.maps, nil
}

func testSource() memorySource {
	score := int64(4200)
	return memorySource{
		games: []geostat.Game{
			{GameID: "g1", Date: "2021-05-01T12:00:00Z", MapName: "World", MapSlug: "world", Score: 21000},
			{GameID: "g2", Date: "2021-05-02T12:00:00Z", MapName: "Europe", MapSlug: "europe", Score: 9000},
		},
		rounds: []geostat.Round{
			{
				GameID: "g1", Index: 0, MapName: "World", MapSlug: "world",
				GuessScore: &score, GuessLat: 10, GuessLon: 20, GuessDistance: 1609.34 * 2,
				LocLat: 11, LocLon: 21,
			},
			{
				GameID: "g2", Index: 1, MapName: "Europe", MapSlug: "europe",
				GuessLat: 48, GuessLon: 2, GuessDistance: 0,
				LocLat: 50, LocLon: 3,
			},
		},
		maps: []store.MapSummary{
			{Name: "World", Slug: "world", Games: 1, AverageScore: 21000},
			{Name: "Europe", Slug: "europe", Games: 1, AverageScore: 9000},
		},
	}
}

func TestScoresOverTime(t *testing.T) {
	points, err := ScoresOverTime(context.Background(), testSource(), "world")
	require.NoError(t, err)
	require.Equal(t, []ScorePoint{{Date: "2021-05-01T12:00:00Z", Score: 21000, MapName: "World"}}, points)

	all, err := ScoresOverTime(context.Background(), testSource(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestRoundPoints(t *testing.T) {
	ctx := context.Background()
	score := int64(4200)

	guesses, err := GuessQuality(ctx, testSource(), "world")
	require.NoError(t, err)
	diff := cmp.Diff([]RoundPoint{{
		GameID: "g1", Round: 0, Lat: 10, Lon: 20,
		Score: &score, DistanceMiles: 2, MapName: "World",
	}}, guesses)
	if diff != "" {
		t.Fatal(diff)
	}

	locations, err := LocationDifficulty(ctx, testSource(), "europe")
	require.NoError(t, err)
	require.Len(t, locations, 1)
	require.Equal(t, 50.0, locations[0].Lat)
	require.Equal(t, 3.0, locations[0].Lon)
	require.Nil(t, locations[0].Score)
}

func TestRender(t *testing.T) {
	points, err := ScoresOverTime(context.Background(), testSource(), "")
	require.NoError(t, err)

	var csv bytes.Buffer
	require.NoError(t, Render(&csv, ScoresTable(points), FormatCSV))
	require.Contains(t, strings.ToLower(csv.String()), "date,score,map")
	require.Contains(t, csv.String(), "2021-05-01T12:00:00Z,21000,World")
	require.Contains(t, csv.String(), "2021-05-02T12:00:00Z,9000,Europe")

	var box bytes.Buffer
	require.NoError(t, Render(&box, MapsTable(testSource().maps), FormatTable))
	require.Contains(t, box.String(), "╭")
	require.Contains(t, box.String(), "europe")

	var rounds bytes.Buffer
	guesses, err := GuessQuality(context.Background(), testSource(), "")
	require.NoError(t, err)
	require.NoError(t, Render(&rounds, RoundsTable(guesses), FormatCSV))
	require.Contains(t, rounds.String(), "g1,1,10.00000,20.00000,4200,2.00,World")
	require.Contains(t, rounds.String(), "g2,2,48.00000,2.00000,,0.00,Europe")

	require.Error(t, Render(&bytes.Buffer{}, Table{}, Format("xml")))
}

func TestParseFormat(t *testing.T) {
	testCases := []struct {
		value string
		ok    bool
	}{
		{value: "table", ok: true},
		{value: "csv", ok: true},
		{value: "json"},
		{value: ""},
	}
	for _, test := range testCases {
		format, err := ParseFormat(test.value)
		if !test.ok {
			require.Error(t, err, test.value)
			continue
		}
		require.NoError(t, err, test.value)
		require.Equal(t, Format(test.value), format)
	}
}

func TestSuggestSlug(t *testing.T) {
	known := []string{"world", "europe", "famous-places"}

	slug, ok := SuggestSlug("wrold", known)
	require.True(t, ok)
	require.Equal(t, "world", slug)

	slug, ok = SuggestSlug("famous-place", known)
	require.True(t, ok)
	require.Equal(t, "famous-places", slug)

	_, ok = SuggestSlug("world", nil)
	require.False(t, ok)
}
