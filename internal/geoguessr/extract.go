package geoguessr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// gameKey is the page field holding the game the signed in user played.
const gameKey = "gamePlayedByCurrentUser"

var errGameNotPlayed = errors.New("page has no game played by the current user")

// Extractor pulls the raw json of the played game out of a results page.
type Extractor interface {
	Extract(page string) (json.RawMessage, error)
}

// MarkerExtractor slices the page between two literal markers and decodes the
// first json value found there.
type MarkerExtractor struct {
	Start string
	End   string
}

func NewMarkerExtractor() MarkerExtractor {
	return MarkerExtractor{
		Start: `"` + gameKey + `":`,
		End:   `,"page"`,
	}
}

func (m MarkerExtractor) Extract(page string) (json.RawMessage, error) {
	_, rest, found := strings.Cut(page, m.Start)
	if !found {
		return nil, &MarkerNotFoundError{Marker: m.Start}
	}
	fragment, _, found := strings.Cut(rest, m.End)
	if !found {
		return nil, &MarkerNotFoundError{Marker: m.End}
	}

	// the fragment ends with the closing braces of the enclosing objects,
	// the decoder stops after the first complete value
	var game json.RawMessage
	err := json.NewDecoder(strings.NewReader(fragment)).Decode(&game)
	if err != nil {
		return nil, fmt.Errorf("decode game json: %w", err)
	}
	return checkGame(game)
}

// NextDataExtractor reads the json props that the page embeds in its
// `script#__NEXT_DATA__` node and searches them for the played game.
type NextDataExtractor struct{}

func (NextDataExtractor) Extract(page string) (json.RawMessage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	script := doc.Find("script#__NEXT_DATA__").First()
	if script.Length() == 0 {
		return nil, &MarkerNotFoundError{Marker: "script#__NEXT_DATA__"}
	}

	var props any
	err = json.Unmarshal([]byte(nodeText(script.Nodes[0])), &props)
	if err != nil {
		return nil, fmt.Errorf("decode next data: %w", err)
	}

	game, found := findKey(props, gameKey)
	if !found {
		return nil, &MarkerNotFoundError{Marker: gameKey}
	}
	encoded, err := json.Marshal(game)
	if err != nil {
		return nil, err
	}
	return checkGame(encoded)
}

func checkGame(game json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(game)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errGameNotPlayed
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("game is not a json object")
	}
	return trimmed, nil
}

func nodeText(node *html.Node) string {
	var buffer bytes.Buffer
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buffer.WriteString(n.Data)
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return buffer.String()
}

// findKey does a depth first search for the first object field named `key`.
func findKey(value any, key string) (any, bool) {
	switch v := value.(type) {
	case map[string]any:
		if found, ok := v[key]; ok {
			return found, true
		}
		for _, child := range v {
			if found, ok := findKey(child, key); ok {
				return found, true
			}
		}
	case []any:
		for _, child := range v {
			if found, ok := findKey(child, key); ok {
				return found, true
			}
		}
	}
	return nil, false
}
