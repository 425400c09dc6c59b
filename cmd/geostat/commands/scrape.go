package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"geostat/internal/components/restyutil"
	"geostat/internal/components/serviceutil"
	"geostat/internal/components/telemetry"
	"geostat/internal/config"
	"geostat/internal/geoguessr"
	"geostat/internal/populate"
	"geostat/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	scrapeForce *bool
	scrapeLimit *int
	scrapeDump  *string
)

func init() {
	scrapeForce = scrapeCmd.Flags().BoolP("force", "f", false, "Delete an existing store before scraping.")
	scrapeLimit = scrapeCmd.Flags().IntP("limit", "l", 0, "Only process the first N feed entries, 0 processes all of them.")
	scrapeDump = scrapeCmd.Flags().String("dump-http", "", "Write every http exchange into this directory, overrides http.dump_dir.")
	rootCmd.AddCommand(scrapeCmd)
}

func promptCredentials() (email, password string, err error) {
	fmt.Fprint(os.Stderr, "Email: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("read email: %w", err)
	}
	email = strings.TrimSpace(line)

	fmt.Fprint(os.Stderr, "Password: ")
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", "", fmt.Errorf("read password: %w", err)
	}
	return email, string(secret), nil
}

func extractorFor(name string) (geoguessr.Extractor, error) {
	switch name {
	case "", "markers":
		return geoguessr.NewMarkerExtractor(), nil
	case "next_data":
		return geoguessr.NextDataExtractor{}, nil
	}
	return nil, fmt.Errorf("unknown extractor %q, expected markers or next_data", name)
}

func openFreshStore(ctx context.Context, cfg config.Store, tel telemetry.API) *store.Store {
	if *scrapeForce && cfg.Url == "" {
		err := store.Remove(cfg.File)
		if err != nil {
			serviceutil.Fatal("failed to remove existing store", err)
		}
	}

	s, err := store.Open(ctx, cfg, tel)
	if err != nil {
		serviceutil.Fatal("failed to open store", err)
	}
	err = s.InitSchema(ctx)
	var conflict *store.SchemaConflictError
	if errors.As(err, &conflict) {
		s.Close()
		serviceutil.Fatal("refusing to overwrite store", err)
	}
	if err != nil {
		s.Close()
		serviceutil.Fatal("failed to create schema", err)
	}
	return s
}

// progressPrinter logs a line every time another tenth of the feed is done.
func progressPrinter() func(done, total int) {
	lastDecile := -1
	return func(done, total int) {
		decile := done * 10 / total
		if decile == lastDecile {
			return
		}
		lastDecile = decile
		slog.Info("scrape progress", "done", done, "total", total, "percent", decile*10)
	}
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [-f] [-l <n>]",
	Short: "Signs in, walks your activity feed and stores every game it can resolve.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := loadConfig()

		otelSetup, err := telemetry.Setup(ctx, "geostat", cfg.Telemetry)
		if err != nil {
			serviceutil.Fatal("failed to setup telemetry", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := otelSetup.Shutdown(shutdownCtx)
			if err != nil {
				slog.Warn("failed to flush telemetry", "err", err)
			}
		}()
		telemetry.InstrumentPerfStats(ctx, 5*time.Second)

		tel := telemetry.NewSlogAPI()

		extractor, err := extractorFor(cfg.Scrape.Extractor)
		if err != nil {
			serviceutil.Fatal("invalid config", err)
		}

		s := openFreshStore(ctx, cfg.Store, tel)
		defer s.Close()

		var dump restyutil.Output
		dumpDir := cfg.Http.DumpDir
		if *scrapeDump != "" {
			dumpDir = *scrapeDump
		}
		if dumpDir != "" {
			output, err := restyutil.NewFilesystemOutput(dumpDir)
			if err != nil {
				serviceutil.Fatal("failed to prepare http dump directory", err)
			}
			dump = output
		}

		client, err := geoguessr.NewClient(geoguessr.ClientOptions{
			BaseUrl:           cfg.Http.BaseUrl,
			Timeout:           cfg.Http.Timeout(),
			RequestsPerSecond: cfg.Http.RequestsPerSecond,
			MaxFeedPages:      cfg.Http.MaxFeedPages,
			CloudflareBypass:  cfg.Http.CloudflareBypass,
			Dump:              dump,
		}, tel)
		if err != nil {
			serviceutil.Fatal("failed to create client", err)
		}

		email, password, err := promptCredentials()
		if err != nil {
			serviceutil.Fatal("failed to read credentials", err)
		}
		err = client.SignIn(ctx, email, password)
		if err != nil {
			serviceutil.Fatal("failed to sign in", err)
		}

		t1 := time.Now()
		summary, err := populate.Run(ctx, populate.Deps{
			Feed: client,
			Details: func(userID string) populate.Details {
				return geoguessr.NewResolver(client, userID, extractor)
			},
			Store: s,
			Tel:   tel,
		}, populate.Options{
			Limit:       *scrapeLimit,
			CommitEvery: cfg.Scrape.CommitEvery,
			Progress:    progressPrinter(),
		})

		slog.Info(
			"scrape finished",
			"seconds", time.Since(t1).Seconds(),
			"fetched", summary.Fetched,
			"unsupported", summary.Unsupported,
			"saved", summary.Saved,
			"skipped", summary.SkippedTotal(),
		)
		for reason, count := range summary.Skipped {
			slog.Info("skipped games", "reason", reason, "count", count)
		}
		if err != nil {
			serviceutil.Fatal("scrape aborted", err)
		}
	},
}
