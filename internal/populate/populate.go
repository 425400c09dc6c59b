// Package populate runs one scrape pass: it walks the activity feed, resolves
// per-round detail for every game and writes what it can into the store.
package populate

import (
	"context"
	"errors"
	"fmt"

	"geostat/internal/components/assert"
	"geostat/internal/components/telemetry"
	"geostat/internal/geoguessr"
	"geostat/internal/geostat"
	"geostat/internal/store"
)

const (
	report_populate_run     = "populate.run"
	report_populate_skip    = "populate.skip"
	report_populate_saved   = "populate.saved"
	report_populate_skipped = "populate.skipped"
)

type SkipReason string

const (
	SkipExtraction SkipReason = "extraction"
	SkipLookupMiss SkipReason = "lookup_miss"
	SkipIdentity   SkipReason = "identity"
	SkipAlignment  SkipReason = "alignment"
	SkipDuplicate  SkipReason = "duplicate"
)

// skipReason says whether err only costs the current game, every other error
// ends the run.
func skipReason(err error) (SkipReason, bool) {
	var extraction *geoguessr.ExtractionError
	var miss *geoguessr.LookupMiss
	var identity *geostat.IdentityResolutionError
	var alignment *geostat.AlignmentError

	switch {
	case errors.As(err, &extraction):
		return SkipExtraction, true
	case errors.As(err, &miss):
		return SkipLookupMiss, true
	case errors.As(err, &identity):
		return SkipIdentity, true
	case errors.As(err, &alignment):
		return SkipAlignment, true
	case errors.Is(err, store.ErrDuplicateGame):
		return SkipDuplicate, true
	}
	return "", false
}

type Feed interface {
	Profile(ctx context.Context) (geoguessr.Profile, error)
	Activities(ctx context.Context) ([]geoguessr.Activity, error)
}

type Details interface {
	Resolve(ctx context.Context, activityType geoguessr.ActivityType, gameID string) (geoguessr.GameDetail, error)
}

type Deps struct {
	Feed Feed
	// Details builds the detail resolver once the signed in user is known.
	Details func(userID string) Details
	Store   *store.Store
	Tel     telemetry.API
}

type Options struct {
	// Limit only processes the first Limit feed entries, 0 processes all of
	// them. Unsupported entries count towards it.
	Limit int
	// CommitEvery commits after this many saved games, 0 commits once at
	// the end.
	CommitEvery int
	// Progress is called after every processed feed entry.
	Progress func(done, total int)
}

type Summary struct {
	Fetched     int
	Unsupported int
	Saved       int
	Skipped     map[SkipReason]int
}

func (s Summary) SkippedTotal() int {
	total := 0
	for _, count := range s.Skipped {
		total += count
	}
	return total
}

// Run performs one scrape pass. Games that fail in a way that only concerns
// them are reported and skipped. Any other failure aborts the pass after
// committing what was already saved, unless ctx was cancelled in which case
// the uncommitted games are dropped.
func Run(ctx context.Context, deps Deps, opts Options) (Summary, error) {
	assert.NotNil(deps.Feed)
	assert.NotNil(deps.Store)
	assert.NotNil(deps.Tel)

	if deps.Details == nil {
		panic("populate: Details is required")
	}
	tel := telemetry.NewScopedAPI("populate", deps.Tel)
	summary := Summary{Skipped: map[SkipReason]int{}}

	profile, err := deps.Feed.Profile(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch profile: %w", err)
	}
	tel.ReportDebug("signed in", "user", profile.Id, "nick", profile.Nick)

	activities, err := deps.Feed.Activities(ctx)
	if errors.Is(err, geoguessr.ErrFeedRunaway) {
		tel.ReportWarning(report_populate_run, err, len(activities))
	} else if err != nil {
		return summary, fmt.Errorf("fetch feed: %w", err)
	}
	summary.Fetched = len(activities)
	if opts.Limit > 0 && opts.Limit < len(activities) {
		activities = activities[:opts.Limit]
	}

	details := deps.Details(profile.Id)
	normalizer := geostat.NewNormalizer(deps.Tel)

	batch, err := deps.Store.Begin(ctx)
	if err != nil {
		return summary, err
	}
	defer batch.Rollback()

	sinceCommit := 0
	for i, activity := range activities {
		err := processActivity(ctx, details, normalizer, batch, activity, &summary)
		if err != nil {
			reason, skip := skipReason(err)
			if !skip {
				tel.ReportBroken(report_populate_run, err, activity.DateTime)
				return summary, abort(ctx, batch, err)
			}
			summary.Skipped[reason]++
			name, _ := activity.Payload.MapName()
			tel.ReportWarning(
				report_populate_skip,
				err,
				"reason", reason,
				"date", activity.DateTime,
				"map", name,
			)
		} else if activity.Type.Supported() {
			sinceCommit++
		}

		if opts.CommitEvery > 0 && sinceCommit >= opts.CommitEvery {
			err := batch.Checkpoint(ctx)
			if err != nil {
				return summary, err
			}
			sinceCommit = 0
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(activities))
		}
	}

	err = batch.Commit()
	if err != nil {
		return summary, err
	}

	tel.ReportCount(report_populate_saved, int64(summary.Saved))
	tel.ReportCount(report_populate_skipped, int64(summary.SkippedTotal()))
	return summary, nil
}

func processActivity(
	ctx context.Context,
	details Details,
	normalizer geostat.Normalizer,
	batch *store.Batch,
	activity geoguessr.Activity,
	summary *Summary,
) error {
	if !activity.Type.Supported() {
		summary.Unsupported++
		return nil
	}

	kind, err := geostat.ClassifyPayload(activity)
	if err != nil {
		return err
	}
	detail, err := details.Resolve(ctx, activity.Type, kind.GameID())
	if err != nil {
		return err
	}
	game, rounds, err := normalizer.Normalize(activity, detail)
	if err != nil {
		return err
	}
	err = batch.SaveGame(ctx, game, rounds)
	if err != nil {
		return err
	}
	summary.Saved++
	return nil
}

func abort(ctx context.Context, batch *store.Batch, cause error) error {
	if ctx.Err() != nil {
		return cause
	}
	err := batch.Commit()
	if err != nil {
		return fmt.Errorf("commit after %w: %w", cause, err)
	}
	return cause
}
