package geoguessr

import (
	"context"
	"encoding/json"
	"fmt"
)

// ActivityPage fetches one page (0-indexed) of the signed in user's social feed.
// An entry that does not decode is kept with a zero Type and its raw json in
// RawPayload, so it counts as unsupported instead of failing the page.
func (c *Client) ActivityPage(ctx context.Context, page int) ([]Activity, error) {
	var entries []json.RawMessage
	err := c.getJSON(ctx, feedPath(page), &entries)
	if err != nil {
		return nil, fmt.Errorf("feed page %d: %w", page, err)
	}

	activities := make([]Activity, len(entries))
	for i, entry := range entries {
		err := json.Unmarshal(entry, &activities[i])
		if err != nil {
			c.tel.ReportWarning(report_client_feed, fmt.Errorf("decode entry %d: %w", i, err), page)
			activities[i] = Activity{RawPayload: entry}
		}
	}
	return activities, nil
}

// Activities walks the feed page by page until a page comes back empty and
// returns every entry in upstream order (most recent first). This includes
// friends' activities, callers filter by type.
func (c *Client) Activities(ctx context.Context) ([]Activity, error) {
	var feed []Activity
	for page := 0; ; page++ {
		if c.maxFeedPages > 0 && page >= c.maxFeedPages {
			c.tel.ReportWarning(report_client_feed, ErrFeedRunaway, page)
			return feed, ErrFeedRunaway
		}

		activities, err := c.ActivityPage(ctx, page)
		if err != nil {
			return feed, err
		}
		c.tel.ReportDebug(report_client_feed, page, len(activities))

		if len(activities) == 0 {
			break
		}
		feed = append(feed, activities...)
	}

	c.tel.ReportCount(report_client_feed, int64(len(feed)))
	return feed, nil
}
