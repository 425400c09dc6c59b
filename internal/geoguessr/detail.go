package geoguessr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// DetailFetcher resolves the per-round detail of one game.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, gameID string) (GameDetail, error)
}

type scoreEntry struct {
	UserId string     `json:"userId"`
	Game   GameDetail `json:"game"`
}

// ChallengeFetcher reads challenge detail off the friends leaderboard of the
// challenge. Only the first ScoresWindow entries are read, a user further
// down is reported as a LookupMiss.
type ChallengeFetcher struct {
	Client *Client
	UserID string
}

func (f ChallengeFetcher) FetchDetail(ctx context.Context, gameID string) (GameDetail, error) {
	f.Client.tel.ReportDebug(report_client_scores, gameID)

	var entries []scoreEntry
	err := f.Client.getJSON(ctx, scoresPath(gameID), &entries)
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		extractErr := &ExtractionError{GameID: gameID, Err: decodeErr}
		f.Client.tel.ReportWarning(report_client_scores, extractErr)
		return GameDetail{}, extractErr
	}
	if err != nil {
		return GameDetail{}, err
	}

	for _, entry := range entries {
		if entry.UserId == f.UserID {
			return entry.Game, nil
		}
	}

	miss := &LookupMiss{GameID: gameID, UserID: f.UserID, Window: ScoresWindow}
	f.Client.tel.ReportWarning(report_client_scores, miss, len(entries))
	return GameDetail{}, miss
}

// MapFetcher scrapes map game detail out of the html results page, there is
// no json endpoint for it.
type MapFetcher struct {
	Client    *Client
	Extractor Extractor
}

func (f MapFetcher) FetchDetail(ctx context.Context, gameID string) (GameDetail, error) {
	f.Client.tel.ReportDebug(report_client_map_page, gameID)

	page, err := f.Client.getText(ctx, resultsPagePath(gameID))
	if err != nil {
		return GameDetail{}, err
	}

	extractor := f.Extractor
	if extractor == nil {
		extractor = NewMarkerExtractor()
	}
	raw, err := extractor.Extract(page)
	if err != nil {
		extractErr := &ExtractionError{GameID: gameID, Err: err}
		f.Client.tel.ReportWarning(report_client_map_page, extractErr)
		return GameDetail{}, extractErr
	}

	detail, err := decodeMapGame(raw)
	if err != nil {
		extractErr := &ExtractionError{GameID: gameID, Err: err}
		f.Client.tel.ReportWarning(report_client_map_page, extractErr)
		return GameDetail{}, extractErr
	}
	return detail, nil
}

// decodeMapGame decodes a game object from a results page, the page nests
// the game settings one level deeper than the scores endpoint does.
func decodeMapGame(raw json.RawMessage) (GameDetail, error) {
	var game map[string]any
	err := json.Unmarshal(raw, &game)
	if err != nil {
		return GameDetail{}, fmt.Errorf("decode game json: %w", err)
	}
	hoistSettings(game)

	flattened, err := json.Marshal(game)
	if err != nil {
		return GameDetail{}, err
	}
	var detail GameDetail
	err = json.Unmarshal(flattened, &detail)
	if err != nil {
		return GameDetail{}, fmt.Errorf("decode game detail: %w", err)
	}
	return detail, nil
}

// hoistSettings copies every key of game["settings"] onto game itself,
// overwriting keys that already exist.
func hoistSettings(game map[string]any) {
	settings, ok := game["settings"].(map[string]any)
	if !ok {
		return
	}
	for key, value := range settings {
		game[key] = value
	}
}

// Resolver picks the detail fetcher for an activity type.
type Resolver struct {
	Challenge DetailFetcher
	Map       DetailFetcher
}

func NewResolver(client *Client, userID string, extractor Extractor) Resolver {
	return Resolver{
		Challenge: ChallengeFetcher{Client: client, UserID: userID},
		Map:       MapFetcher{Client: client, Extractor: extractor},
	}
}

func (r Resolver) Resolve(ctx context.Context, activityType ActivityType, gameID string) (GameDetail, error) {
	switch activityType {
	case ActivityChallenge:
		return r.Challenge.FetchDetail(ctx, gameID)
	case ActivityMap:
		return r.Map.FetchDetail(ctx, gameID)
	default:
		return GameDetail{}, fmt.Errorf("%w: %s", ErrUnsupportedActivity, activityType)
	}
}
