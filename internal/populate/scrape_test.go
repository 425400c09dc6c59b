package populate

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"geostat/internal/components/telemetry"
	"geostat/internal/geoguessr"

	"github.com/stretchr/testify/require"
)

const upstreamGuesses = `[
	{"lat": 1, "lng": 1, "time": 10, "distanceInMeters": 100, "roundScore": {"amount": "4,000"}},
	{"lat": 2, "lng": 2, "time": 10, "distanceInMeters": 100, "roundScore": {"amount": 4000}},
	{"lat": 3, "lng": 3, "time": 10, "distanceInMeters": 100, "roundScore": {"amount": "4000"}},
	{"lat": 4, "lng": 4, "time": 10, "distanceInMeters": 100, "roundScore": {"amount": 4000}},
	{"lat": 5, "lng": 5, "time": 10, "distanceInMeters": 100, "roundScore": {}}
]`

const upstreamRounds = `[
	{"lat": 1, "lng": 2}, {"lat": 3, "lng": 4}, {"lat": 5, "lng": 6},
	{"lat": 7, "lng": 8}, {"lat": 9, "lng": 10}
]`

func upstreamGame(token string) string {
	return fmt.Sprintf(
		`{"token": %q, "type": "standard", "timeLimit": 60, "player": {"id": "me", "guesses": %s}, "rounds": %s}`,
		token, upstreamGuesses, upstreamRounds,
	)
}

// upstream serves a single feed page plus the detail endpoints of its games.
func upstream(t *testing.T, feed []string, scores, pages map[string]string) *geoguessr.Client {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v3/profiles":
			w.Write([]byte(`{"user": {"id": "me", "nick": "tester"}}`))
		case r.URL.Path == "/api/v3/social/feed/me":
			if r.URL.Query().Get("page") != "0" {
				w.Write([]byte(`[]`))
				return
			}
			w.Write([]byte("[" + strings.Join(feed, ",") + "]"))
		case strings.HasPrefix(r.URL.Path, "/api/v3/results/scores/"):
			id := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v3/results/scores/"), "/")[0]
			body, ok := scores[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte(body))
		case strings.HasPrefix(r.URL.Path, "/results/"):
			body, ok := pages[strings.TrimPrefix(r.URL.Path, "/results/")]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte(body))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	client, err := geoguessr.NewClient(geoguessr.ClientOptions{
		BaseUrl: server.URL,
		Timeout: 5 * time.Second,
	}, telemetry.NewRecorder())
	require.NoError(t, err)
	return client
}

func challengeEntry(token, date string) string {
	return fmt.Sprintf(
		`{"activityType": 8, "dateTime": %q, "payload": {"challenge": {"token": %q, "score": 16000}, "map": {"name": "World", "slug": "world"}}}`,
		date, token,
	)
}

func mapEntry(token, date string) string {
	return fmt.Sprintf(
		`{"activityType": 3, "dateTime": %q, "payload": "{\"map\": {\"name\": \"Europe\", \"slug\": \"europe\", \"gameToken\": \"%s\", \"score\": 12000}}"}`,
		date, token,
	)
}

func realDeps(t *testing.T, client *geoguessr.Client) Deps {
	deps, _, _ := setup(t, fakeFeed{}, &fakeDetails{})
	deps.Feed = client
	deps.Details = func(userID string) Details {
		return geoguessr.NewResolver(client, userID, geoguessr.NewMarkerExtractor())
	}
	return deps
}

func TestRunAgainstUpstreamSkipsPageWithoutMarker(t *testing.T) {
	unmarked := `<html><script>{"props":{"pageProps":{}},"page":"/results/[token]"}</script></html>`
	played := `<html><script>{"props":{"pageProps":{"gamePlayedByCurrentUser":` +
		upstreamGame("m1") + `}},"page":"/results/[token]"}</script></html>`

	client := upstream(t,
		[]string{
			mapEntry("unmarked", "2021-05-03T12:00:00Z"),
			mapEntry("m1", "2021-05-02T12:00:00Z"),
		},
		nil,
		map[string]string{"unmarked": unmarked, "m1": played},
	)
	deps := realDeps(t, client)

	summary, err := Run(testContext(t), deps, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Saved)
	require.Equal(t, map[SkipReason]int{SkipExtraction: 1}, summary.Skipped)

	requireStored(t, deps.Store, "m1")
	count, err := deps.Store.CountRounds(testContext(t), "unmarked")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestRunAgainstUpstreamSkipsUndecodableScores(t *testing.T) {
	// one friend entry with an unparseable score breaks the whole list
	bad := `[
		{"userId": "friend", "game": {"player": {"guesses": [{"roundScore": {"amount": "n/a"}}]}}},
		{"userId": "me", "game": ` + upstreamGame("bad") + `}
	]`
	good := `[{"userId": "me", "game": ` + upstreamGame("good") + `}]`

	client := upstream(t,
		[]string{
			challengeEntry("bad", "2021-05-03T12:00:00Z"),
			challengeEntry("good", "2021-05-02T12:00:00Z"),
		},
		map[string]string{"bad": bad, "good": good},
		nil,
	)
	deps := realDeps(t, client)

	summary, err := Run(testContext(t), deps, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Fetched)
	require.Equal(t, 1, summary.Saved)
	require.Equal(t, map[SkipReason]int{SkipExtraction: 1}, summary.Skipped)

	requireStored(t, deps.Store, "good")
	count, err := deps.Store.CountRounds(testContext(t), "bad")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestRunAgainstUpstreamCountsUndecodableFeedEntry(t *testing.T) {
	client := upstream(t,
		[]string{
			`{"activityType": "eight", "dateTime": "2021-05-03T12:00:00Z"}`,
			challengeEntry("good", "2021-05-02T12:00:00Z"),
		},
		map[string]string{
			"good": `[{"userId": "me", "game": ` + upstreamGame("good") + `}]`,
		},
		nil,
	)
	deps := realDeps(t, client)

	summary, err := Run(testContext(t), deps, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Fetched)
	require.Equal(t, 1, summary.Unsupported)
	require.Equal(t, 1, summary.Saved)
	requireStored(t, deps.Store, "good")
}
