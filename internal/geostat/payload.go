package geostat

import (
	"fmt"

	"geostat/internal/geoguessr"
)

// PayloadKind identifies the game behind an activity. It is either Challenge
// or MapPlay, type switches over it should handle both and nothing else.
type PayloadKind interface {
	GameID() string
	Score() float64
	isPayloadKind()
}

type Challenge struct {
	Token  string
	Points float64
}

func (c Challenge) GameID() string { return c.Token }
func (c Challenge) Score() float64 { return c.Points }
func (Challenge) isPayloadKind()   {}

type MapPlay struct {
	GameToken string
	Points    float64
}

func (m MapPlay) GameID() string { return m.GameToken }
func (m MapPlay) Score() float64 { return m.Points }
func (MapPlay) isPayloadKind()   {}

// IdentityResolutionError means an activity payload matches neither the
// challenge nor the map shape, so no game id can be derived from it.
type IdentityResolutionError struct {
	ActivityType geoguessr.ActivityType
	DateTime     string
	Reason       string
}

func (e *IdentityResolutionError) Error() string {
	return fmt.Sprintf(
		"geostat: cannot resolve the game of %s activity at %s: %s",
		e.ActivityType, e.DateTime, e.Reason,
	)
}

// ClassifyPayload resolves the game id and score of an activity. A
// `challenge` key takes precedence over `map`, challenge payloads carry both.
func ClassifyPayload(activity geoguessr.Activity) (PayloadKind, error) {
	payload := activity.Payload
	identityErr := func(reason string) error {
		return &IdentityResolutionError{
			ActivityType: activity.Type,
			DateTime:     activity.DateTime,
			Reason:       reason,
		}
	}

	switch {
	case payload.Challenge != nil:
		if payload.Challenge.Token == "" {
			return nil, identityErr("challenge payload has no token")
		}
		return Challenge{Token: payload.Challenge.Token, Points: payload.Challenge.Score}, nil
	case payload.Map != nil:
		if payload.Map.GameToken == "" {
			return nil, identityErr("map payload has no game token")
		}
		return MapPlay{GameToken: payload.Map.GameToken, Points: payload.Map.Score}, nil
	default:
		return nil, identityErr("payload has neither a challenge nor a map")
	}
}
