package report

import (
	"fmt"
	"io"
	"strconv"

	"geostat/internal/store"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
)

type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
)

func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case FormatTable, FormatCSV:
		return Format(value), nil
	}
	return "", fmt.Errorf("unknown format %q, expected table or csv", value)
}

type Table struct {
	Header table.Row
	Rows   []table.Row
}

func ScoresTable(points []ScorePoint) Table {
	t := Table{Header: table.Row{"Date", "Score", "Map"}}
	for _, p := range points {
		t.Rows = append(t.Rows, table.Row{p.Date, formatFloat(p.Score, 0), p.MapName})
	}
	return t
}

func RoundsTable(points []RoundPoint) Table {
	t := Table{Header: table.Row{"Game", "Round", "Lat", "Lon", "Score", "Distance (mi)", "Map"}}
	for _, p := range points {
		score := ""
		if p.Score != nil {
			score = strconv.FormatInt(*p.Score, 10)
		}
		t.Rows = append(t.Rows, table.Row{
			p.GameID,
			p.Round + 1,
			formatFloat(p.Lat, 5),
			formatFloat(p.Lon, 5),
			score,
			formatFloat(p.DistanceMiles, 2),
			p.MapName,
		})
	}
	return t
}

func MapsTable(maps []store.MapSummary) Table {
	t := Table{Header: table.Row{"Map", "Slug", "Games", "Average score"}}
	for _, m := range maps {
		t.Rows = append(t.Rows, table.Row{m.Name, m.Slug, m.Games, formatFloat(m.AverageScore, 0)})
	}
	return t
}

func formatFloat(value float64, precision int) string {
	return strconv.FormatFloat(value, 'f', precision, 64)
}

// Render writes t to w, as a rounded box table or as csv.
func Render(w io.Writer, t Table, format Format) error {
	writer := table.NewWriter()
	writer.SetStyle(table.StyleRounded)
	writer.SetOutputMirror(w)
	writer.AppendHeader(t.Header)
	writer.AppendRows(t.Rows)

	switch format {
	case FormatTable:
		writer.Render()
	case FormatCSV:
		writer.RenderCSV()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

// SuggestSlug returns the known slug closest to slug, false when none of
// them is similar at all.
func SuggestSlug(slug string, known []string) (string, bool) {
	var best string
	var bestSimilarity float64
	for _, candidate := range known {
		similarity := matchr.JaroWinkler(slug, candidate, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = candidate
		}
	}
	return best, bestSimilarity > 0
}
