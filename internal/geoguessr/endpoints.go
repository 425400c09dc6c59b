package geoguessr

import (
	"fmt"
	"net/url"
)

const apiPrefix = "/api/v3"

const (
	// FeedPageSize is the number of activities requested per feed page.
	FeedPageSize = 200
	// ScoresWindow is how many leaderboard entries a challenge lookup reads.
	ScoresWindow = 26
)

func signInPath() string {
	return apiPrefix + "/accounts/signin"
}

func profilePath() string {
	return apiPrefix + "/profiles"
}

func feedPath(page int) string {
	q := url.Values{}
	q.Set("count", fmt.Sprint(FeedPageSize))
	q.Set("page", fmt.Sprint(page))
	return fmt.Sprintf("%s/social/feed/me?%s", apiPrefix, q.Encode())
}

// scoresPath reads the friends leaderboard of a challenge starting at entry 0.
func scoresPath(gameID string) string {
	return fmt.Sprintf(
		"%s/results/scores/%s/%d/%d?friends",
		apiPrefix, url.PathEscape(gameID), 0, ScoresWindow,
	)
}

func resultsPagePath(gameID string) string {
	return fmt.Sprintf("/results/%s", url.PathEscape(gameID))
}
