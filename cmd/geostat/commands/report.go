package commands

import (
	"context"
	"fmt"
	"os"

	"geostat/internal/components/serviceutil"
	"geostat/internal/components/telemetry"
	"geostat/internal/report"
	"geostat/internal/store"

	"github.com/spf13/cobra"
)

func openExistingStore(ctx context.Context) *store.Store {
	cfg := loadConfig()
	if cfg.Store.Url == "" {
		_, err := os.Stat(cfg.Store.File)
		if err != nil {
			serviceutil.Fatal(fmt.Sprintf("no store at %s, run geostat scrape first", cfg.Store.File), err)
		}
	}
	s, err := store.Open(ctx, cfg.Store, telemetry.NewSlogAPI())
	if err != nil {
		serviceutil.Fatal("failed to open store", err)
	}
	return s
}

func render(t report.Table) {
	f, err := report.ParseFormat(*format)
	if err != nil {
		serviceutil.Fatal("invalid --format", err)
	}
	err = report.Render(os.Stdout, t, f)
	if err != nil {
		serviceutil.Fatal("failed to render report", err)
	}
}

// suggestMap prints the closest stored slug when a filter matched nothing.
func suggestMap(ctx context.Context, s *store.Store, slug string) {
	if slug == "" {
		fmt.Fprintln(os.Stderr, "the store holds no games yet")
		return
	}
	maps, err := s.Maps(ctx)
	if err != nil {
		serviceutil.Fatal("failed to list maps", err)
	}
	slugs := make([]string, len(maps))
	for i, m := range maps {
		slugs[i] = m.Slug
	}
	suggestion, ok := report.SuggestSlug(slug, slugs)
	if !ok {
		fmt.Fprintf(os.Stderr, "no games on map %q\n", slug)
		return
	}
	fmt.Fprintf(os.Stderr, "no games on map %q, did you mean %q?\n", slug, suggestion)
}

type roundReport func(ctx context.Context, src report.Source, slug string) ([]report.RoundPoint, error)

func newRoundsCmd(use, short string, query roundReport) *cobra.Command {
	var mapSlug *string
	cmd := &cobra.Command{
		Use:   use + " [-m <slug>]",
		Short: short,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			s := openExistingStore(ctx)
			defer s.Close()

			points, err := query(ctx, s, *mapSlug)
			if err != nil {
				serviceutil.Fatal("failed to query rounds", err)
			}
			if len(points) == 0 {
				suggestMap(ctx, s, *mapSlug)
				return
			}
			render(report.RoundsTable(points))
		},
	}
	mapSlug = cmd.Flags().StringP("map", "m", "", "Only report rounds on the map with this slug.")
	return cmd
}

var scoresOverTimeSlug *string

var scoresOverTimeCmd = &cobra.Command{
	Use:   "scores-over-time [-m <slug>]",
	Short: "Lists the score of every stored game by date.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		s := openExistingStore(ctx)
		defer s.Close()

		points, err := report.ScoresOverTime(ctx, s, *scoresOverTimeSlug)
		if err != nil {
			serviceutil.Fatal("failed to query games", err)
		}
		if len(points) == 0 {
			suggestMap(ctx, s, *scoresOverTimeSlug)
			return
		}
		render(report.ScoresTable(points))
	},
}

var listMapsCmd = &cobra.Command{
	Use:   "list-maps",
	Short: "Lists every stored map with its slug, most played first.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		s := openExistingStore(ctx)
		defer s.Close()

		maps, err := report.ListMaps(ctx, s)
		if err != nil {
			serviceutil.Fatal("failed to list maps", err)
		}
		render(report.MapsTable(maps))
	},
}

func init() {
	scoresOverTimeSlug = scoresOverTimeCmd.Flags().StringP("map", "m", "", "Only report games on the map with this slug.")

	rootCmd.AddCommand(scoresOverTimeCmd)
	rootCmd.AddCommand(newRoundsCmd(
		"guess-quality",
		"Lists every stored round at the guessed location with its score and distance.",
		report.GuessQuality,
	))
	rootCmd.AddCommand(newRoundsCmd(
		"location-difficulty",
		"Lists every stored round at the true location with its score.",
		report.LocationDifficulty,
	))
	rootCmd.AddCommand(listMapsCmd)
}
