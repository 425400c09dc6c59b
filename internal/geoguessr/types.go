package geoguessr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type ActivityType int

const (
	ActivityMap       ActivityType = 3
	ActivityChallenge ActivityType = 8
)

func (t ActivityType) Supported() bool {
	return t == ActivityMap || t == ActivityChallenge
}

func (t ActivityType) String() string {
	switch t {
	case ActivityMap:
		return "map"
	case ActivityChallenge:
		return "challenge"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

type ChallengePayload struct {
	Token string  `json:"token"`
	Score float64 `json:"score"`
}

type MapPayload struct {
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	GameToken string  `json:"gameToken"`
	Score     float64 `json:"score"`
}

// ActivityPayload is the raw payload of a feed entry, which keys are present
// depends on the activity type.
type ActivityPayload struct {
	Challenge *ChallengePayload `json:"challenge,omitempty"`
	Map       *MapPayload       `json:"map,omitempty"`
}

// MapName returns the map name and slug, they always live under `map`.
func (p ActivityPayload) MapName() (name, slug string) {
	if p.Map == nil {
		return "", ""
	}
	return p.Map.Name, p.Map.Slug
}

type Activity struct {
	Type ActivityType
	// DateTime is kept as the upstream string, it is stored verbatim.
	DateTime string
	Payload  ActivityPayload
	// RawPayload is the payload as received, for diagnostics when it could
	// not be decoded into Payload.
	RawPayload json.RawMessage
}

type rawActivity struct {
	ActivityType ActivityType    `json:"activityType"`
	DateTime     string          `json:"dateTime"`
	Payload      json.RawMessage `json:"payload"`
}

// UnmarshalJSON accepts the payload either as a json object or as a json
// string containing an object. An undecodable payload leaves Payload empty
// instead of failing the whole feed page.
func (a *Activity) UnmarshalJSON(data []byte) error {
	var raw rawActivity
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	a.Type = raw.ActivityType
	a.DateTime = raw.DateTime
	a.RawPayload = raw.Payload
	a.Payload = ActivityPayload{}

	payload := bytes.TrimSpace(raw.Payload)
	if len(payload) > 0 && payload[0] == '"' {
		var inner string
		if json.Unmarshal(payload, &inner) != nil {
			return nil
		}
		payload = []byte(inner)
	}
	if len(payload) == 0 {
		return nil
	}

	var decoded ActivityPayload
	if json.Unmarshal(payload, &decoded) == nil {
		a.Payload = decoded
	}
	return nil
}

func (a Activity) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rawActivity{
		ActivityType: a.Type,
		DateTime:     a.DateTime,
		Payload:      payload,
	})
}

// Time parses DateTime.
func (a Activity) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, a.DateTime)
}

type Profile struct {
	Id   string `json:"id"`
	Nick string `json:"nick"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Bounds struct {
	Min LatLng `json:"min"`
	Max LatLng `json:"max"`
}

// Points is a score that upstream sends either as a number or as a
// formatted string like "4,321".
type Points struct {
	Value int64
	Valid bool
}

func (p *Points) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*p = Points{}
		return nil
	}

	text := string(data)
	if data[0] == '"' {
		err := json.Unmarshal(data, &text)
		if err != nil {
			return err
		}
		text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
		if text == "" {
			*p = Points{}
			return nil
		}
	}

	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("parse points %q: %w", text, err)
	}
	*p = Points{Value: int64(n), Valid: true}
	return nil
}

func (p Points) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(p.Value, 10)), nil
}

type RoundScore struct {
	Amount Points `json:"amount"`
}

type Guess struct {
	Lat              float64    `json:"lat"`
	Lng              float64    `json:"lng"`
	TimedOut         bool       `json:"timedOut"`
	Time             float64    `json:"time"`
	DistanceInMeters float64    `json:"distanceInMeters"`
	RoundScore       RoundScore `json:"roundScore"`
}

type Player struct {
	Id      string  `json:"id"`
	Guesses []Guess `json:"guesses"`
}

// GameDetail is the per-round detail of one game. Both detail fetchers
// produce this shape.
type GameDetail struct {
	Token          string   `json:"token"`
	Bounds         Bounds   `json:"bounds"`
	ForbidMoving   bool     `json:"forbidMoving"`
	ForbidRotating bool     `json:"forbidRotating"`
	ForbidZooming  bool     `json:"forbidZooming"`
	Type           string   `json:"type"`
	TimeLimit      float64  `json:"timeLimit"`
	Player         Player   `json:"player"`
	Rounds         []LatLng `json:"rounds"`
}
