package arcinfo

import (
	"context"
	"fmt"
	"time"

	"arcinfo-pdf/internal/components/chrono"
	"arcinfo-pdf/internal/discovery"
)

// EditionPath returns the path of the listing page of an edition,
// ex. /arcinfo/2021-12-24/view
func EditionPath(date time.Time) string {
	return fmt.Sprintf("/arcinfo/%s/view", chrono.EditionDate(date))
}

// ListEdition fetches the listing page of the edition published on `date` and
// returns the page assets found by the matcher, in document order. An edition
// that does not exist yields no assets and no error.
func (c *Client) ListEdition(ctx context.Context, date time.Time, matcher discovery.Matcher) ([]discovery.AssetPath, error) {
	path := EditionPath(date)
	c.tel.ReportDebug("list edition", path)

	res, err := c.Http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		c.tel.ReportBroken(
			report_client_list_edition,
			fmt.Errorf("fetch: %w", err),
			path,
		)
		return nil, fmt.Errorf("arcinfo scraper: list edition: %w", err)
	}
	if !isSuccess(res.StatusCode()) {
		c.tel.ReportWarning(
			report_client_list_edition,
			fmt.Errorf("unexpected status: %s", res.Status()),
			path,
		)
	}

	assets := matcher.Match(res.Body())
	c.tel.ReportDebug("listed edition", path, len(assets))
	return assets, nil
}
