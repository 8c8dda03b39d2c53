package edition

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"arcinfo-pdf/internal/assembler"
	"arcinfo-pdf/internal/assembler/pdftest"
	"arcinfo-pdf/internal/components/telemetry"
	"arcinfo-pdf/internal/discovery"
	"arcinfo-pdf/internal/scrapers/arcinfo"
	"arcinfo-pdf/internal/scrapers/arcinfo/arcinfotest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const token = "ABCDEF123456"

var christmasEve = time.Date(2021, 12, 24, 0, 0, 0, 0, time.UTC)

type fixture struct {
	site     *arcinfotest.Site
	config   Config
	recorder *telemetry.Recorder
}

func newFixture(t testing.TB, site *arcinfotest.Site) fixture {
	srv := arcinfotest.Server(t, site)
	return fixture{
		site: site,
		config: Config{
			Client: arcinfo.ClientOptions{
				BaseUrl:                 srv.URL,
				Timeout:                 5 * time.Second,
				DisableCloudflareBypass: true,
			},
			Credentials: arcinfo.Credentials{
				Username: arcinfotest.Username,
				Password: arcinfotest.Password,
			},
			Date:       christmasEve,
			OutputPath: OutputPath(t.TempDir(), christmasEve),
		},
		recorder: telemetry.NewRecorder(),
	}
}

func (f fixture) run(t testing.TB) (Report, error) {
	return NewPipeline(f.config, f.recorder).Run(context.Background())
}

func readWidths(t testing.TB, path string) []float64 {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	widths, err := assembler.PageWidths(f)
	require.NoError(t, err)
	return widths
}

func requireNoFile(t testing.TB, path string) {
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err), "expected %s to not exist", path)
}

func TestOutputPath(t *testing.T) {
	require.Equal(t, filepath.Join("out", "2021-12-24.pdf"), OutputPath("out", christmasEve))
}

func TestTwoPageEdition(t *testing.T) {
	f := newFixture(t, arcinfotest.Edition("2021-12-24", token, 2))

	report, err := f.run(t)
	require.NoError(t, err)

	require.True(t, report.Login.Authenticated)
	require.Equal(t, "/arcinfo/2021-12-24/view", report.Listing.Path)
	require.True(t, report.Saved)
	require.Equal(t, 2, report.PageCount)
	require.Equal(t, "2021-12-24.pdf", filepath.Base(report.OutputPath))
	require.Equal(t, []float64{101, 102}, readWidths(t, report.OutputPath))

	require.Equal(t, []string{
		"POST /arcinfo/login/",
		"GET /arcinfo/2021-12-24/view",
		"GET /editions/arcinfo/ABCDEF123456/pdf/page1.pdf",
		"GET /editions/arcinfo/ABCDEF123456/pdf/page2.pdf",
	}, f.site.Requests())
}

func TestMissingPageIsSkipped(t *testing.T) {
	site := arcinfotest.Edition("2021-12-24", token, 2)
	site.PageStatus[arcinfotest.PagePath(token, 2)] = http.StatusNotFound
	f := newFixture(t, site)

	report, err := f.run(t)
	require.NoError(t, err)
	require.True(t, report.Saved)
	require.Equal(t, 1, report.PageCount)
	require.Equal(t, []float64{101}, readWidths(t, report.OutputPath))

	skipped := report.Skipped()
	require.Len(t, skipped, 1)
	require.Equal(t, discovery.AssetPath(arcinfotest.PagePath(token, 2)), skipped[0].Path)
	require.Equal(t, http.StatusNotFound, skipped[0].StatusCode)
	require.Equal(t, 0, skipped[0].Pages)
}

func TestSkippedPageKeepsOrder(t *testing.T) {
	for failing := 1; failing <= 5; failing++ {
		site := arcinfotest.Edition("2021-12-24", token, 5)
		site.PageStatus[arcinfotest.PagePath(token, failing)] = http.StatusInternalServerError
		f := newFixture(t, site)

		report, err := f.run(t)
		require.NoError(t, err)
		require.Equal(t, 4, report.PageCount)

		var expected []float64
		for i := 1; i <= 5; i++ {
			if i != failing {
				expected = append(expected, float64(100+i))
			}
		}
		require.Equal(t, expected, readWidths(t, report.OutputPath), "page %d failing", failing)
	}
}

func TestPageRedirectedToOtherHost(t *testing.T) {
	site := arcinfotest.Edition("2021-12-24", token, 2)
	cdn := arcinfotest.CDN(t, map[string][]byte{"/page2.pdf": pdftest.SinglePage(202)})
	site.Redirects[arcinfotest.PagePath(token, 2)] = cdn + "/page2.pdf"
	f := newFixture(t, site)

	report, err := f.run(t)
	require.NoError(t, err)
	require.True(t, report.Saved)
	require.Equal(t, 2, report.PageCount)
	require.Empty(t, report.Skipped())
	require.Equal(t, []float64{101, 202}, readWidths(t, report.OutputPath))
}

func TestMissingEditionWritesNothing(t *testing.T) {
	f := newFixture(t, arcinfotest.Edition("2021-12-23", token, 2))

	report, err := f.run(t)
	require.NoError(t, err)
	require.False(t, report.Listing.Found())
	require.Empty(t, report.Pages)
	require.False(t, report.Saved)
	requireNoFile(t, report.OutputPath)

	require.Contains(t, f.recorder.IDs(telemetry.KindWarning), "edition:pipeline.listing")
}

func TestEditionWithoutPagesWritesNothing(t *testing.T) {
	site := arcinfotest.Edition("2021-12-24", token, 2)
	site.PageStatus[arcinfotest.PagePath(token, 1)] = http.StatusNotFound
	site.PageStatus[arcinfotest.PagePath(token, 2)] = http.StatusForbidden
	f := newFixture(t, site)

	report, err := f.run(t)
	require.NoError(t, err)
	require.True(t, report.Listing.Found())
	require.Len(t, report.Skipped(), 2)
	require.False(t, report.Saved)
	requireNoFile(t, report.OutputPath)
}

func TestFailedLoginStillFetches(t *testing.T) {
	site := arcinfotest.Edition("2021-12-24", token, 2)
	site.RejectLogin = true
	f := newFixture(t, site)

	report, err := f.run(t)
	require.NoError(t, err)
	require.False(t, report.Login.Authenticated)
	require.Contains(t, f.recorder.IDs(telemetry.KindWarning), "edition:pipeline.login")

	require.Equal(t, []string{
		"POST /arcinfo/login/",
		"GET /arcinfo/2021-12-24/view",
		"GET /editions/arcinfo/ABCDEF123456/pdf/page1.pdf",
		"GET /editions/arcinfo/ABCDEF123456/pdf/page2.pdf",
	}, site.Requests())
	require.True(t, report.Saved)
}

func TestFailedLoginAgainstProtectedSite(t *testing.T) {
	site := arcinfotest.Edition("2021-12-24", token, 2)
	site.RejectLogin = true
	site.RequireAuth = true
	f := newFixture(t, site)

	report, err := f.run(t)
	require.NoError(t, err)
	require.False(t, report.Listing.Found())
	require.False(t, report.Saved)
	requireNoFile(t, report.OutputPath)
}

func TestRequireLogin(t *testing.T) {
	site := arcinfotest.Edition("2021-12-24", token, 2)
	site.RejectLogin = true
	f := newFixture(t, site)
	f.config.RequireLogin = true

	_, err := f.run(t)
	require.True(t, errors.Is(err, arcinfo.ErrNotAuthenticated))
	require.Equal(t, []string{"POST /arcinfo/login/"}, site.Requests())
	requireNoFile(t, f.config.OutputPath)
}

func TestDuplicatesAreDownloadedTwice(t *testing.T) {
	site := arcinfotest.Edition("2021-12-24", token, 2)
	site.Listings["2021-12-24"] = arcinfotest.Listing(
		arcinfotest.PagePath(token, 1),
		arcinfotest.PagePath(token, 2),
		arcinfotest.PagePath(token, 1),
	)
	f := newFixture(t, site)

	report, err := f.run(t)
	require.NoError(t, err)
	require.Equal(t, 3, report.PageCount)
	require.Equal(t, []float64{101, 102, 101}, readWidths(t, report.OutputPath))
}

func TestDedupe(t *testing.T) {
	site := arcinfotest.Edition("2021-12-24", token, 2)
	site.Listings["2021-12-24"] = arcinfotest.Listing(
		arcinfotest.PagePath(token, 1),
		arcinfotest.PagePath(token, 2),
		arcinfotest.PagePath(token, 1),
	)
	f := newFixture(t, site)
	f.config.Dedupe = true

	report, err := f.run(t)
	require.NoError(t, err)
	require.Equal(t, 2, report.PageCount)
	require.Equal(t, []float64{101, 102}, readWidths(t, report.OutputPath))
}

func TestSelectorMatcher(t *testing.T) {
	f := newFixture(t, arcinfotest.Edition("2021-12-24", token, 3))
	f.config.Matcher = discovery.NewSelectorMatcher()

	report, err := f.run(t)
	require.NoError(t, err)
	require.Equal(t, []float64{101, 102, 103}, readWidths(t, report.OutputPath))
}

func TestMalformedPageAborts(t *testing.T) {
	site := arcinfotest.Edition("2021-12-24", token, 2)
	site.Pages[arcinfotest.PagePath(token, 2)] = []byte("<html>maintenance</html>")
	f := newFixture(t, site)

	_, err := f.run(t)
	require.Error(t, err)
	require.Contains(t, f.recorder.IDs(telemetry.KindBroken), "edition:pipeline.merge")
	requireNoFile(t, f.config.OutputPath)
}

func TestRunsAreRepeatable(t *testing.T) {
	site := arcinfotest.Edition("2021-12-24", token, 4)
	site.PageStatus[arcinfotest.PagePath(token, 3)] = http.StatusNotFound
	f := newFixture(t, site)

	first, err := f.run(t)
	require.NoError(t, err)
	firstWidths := readWidths(t, first.OutputPath)

	second, err := f.run(t)
	require.NoError(t, err)
	secondWidths := readWidths(t, second.OutputPath)

	if diff := cmp.Diff(firstWidths, secondWidths); diff != "" {
		t.Fatalf("page order changed between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Pages, second.Pages); diff != "" {
		t.Fatalf("outcomes changed between runs (-first +second):\n%s", diff)
	}
}

func TestReportsPageCounts(t *testing.T) {
	site := arcinfotest.Edition("2021-12-24", token, 3)
	site.PageStatus[arcinfotest.PagePath(token, 2)] = http.StatusNotFound
	f := newFixture(t, site)

	_, err := f.run(t)
	require.NoError(t, err)

	counts := map[string]int64{}
	for _, r := range f.recorder.Reports(telemetry.KindCount) {
		counts[r.ID] = r.Count
	}
	require.Equal(t, map[string]int64{
		"edition:pages.fetched": 2,
		"edition:pages.skipped": 1,
	}, counts)
}
