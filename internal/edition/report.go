package edition

import (
	"time"

	"arcinfo-pdf/internal/discovery"
	"arcinfo-pdf/internal/scrapers/arcinfo"
)

type ListingResult struct {
	Path   string
	Assets []discovery.AssetPath
}

// Found reports whether the listing contained any page asset.
func (l ListingResult) Found() bool {
	return len(l.Assets) > 0
}

type PageOutcome struct {
	Path       discovery.AssetPath
	Status     arcinfo.PageStatus
	StatusCode int
	// Pages is the number of pages the download added to the document.
	Pages int
}

// Report is what happened during a run, every step records its outcome here
// instead of aborting.
type Report struct {
	Date       time.Time
	Login      arcinfo.LoginResult
	Listing    ListingResult
	Pages      []PageOutcome
	PageCount  int
	OutputPath string
	Saved      bool
}

// Fetched returns the outcomes of pages that made it into the document.
func (r Report) Fetched() []PageOutcome {
	return r.filter(arcinfo.PageFetched)
}

// Skipped returns the outcomes of pages that were left out.
func (r Report) Skipped() []PageOutcome {
	return r.filter(arcinfo.PageSkipped)
}

func (r Report) filter(status arcinfo.PageStatus) []PageOutcome {
	var out []PageOutcome
	for _, p := range r.Pages {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}
