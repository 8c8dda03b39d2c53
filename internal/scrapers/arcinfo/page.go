package arcinfo

import (
	"context"
	"fmt"

	"arcinfo-pdf/internal/discovery"
)

type PageStatus int

const (
	// PageFetched means the body holds the page PDF.
	PageFetched PageStatus = iota
	// PageSkipped means the site answered with a non success status.
	PageSkipped
)

func (s PageStatus) String() string {
	switch s {
	case PageFetched:
		return "fetched"
	case PageSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("PageStatus(%d)", int(s))
	}
}

type PageResult struct {
	Path       discovery.AssetPath
	Status     PageStatus
	StatusCode int
	Body       []byte
}

// FetchPage downloads a single page PDF. Non success responses are reported
// as PageSkipped, only transport failures are errors.
func (c *Client) FetchPage(ctx context.Context, path discovery.AssetPath) (PageResult, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(string(path))
	if err != nil {
		c.tel.ReportBroken(
			report_client_fetch_page,
			fmt.Errorf("fetch: %w", err),
			path,
		)
		return PageResult{}, fmt.Errorf("arcinfo scraper: fetch page %s: %w", path, err)
	}

	result := PageResult{
		Path:       path,
		StatusCode: res.StatusCode(),
	}
	if !isSuccess(res.StatusCode()) {
		c.tel.ReportDebug("skipped page", path, res.Status())
		result.Status = PageSkipped
		return result, nil
	}

	result.Status = PageFetched
	result.Body = res.Body()
	return result, nil
}
