// Package edition downloads a whole newspaper edition into a single PDF.
package edition

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"arcinfo-pdf/internal/assembler"
	"arcinfo-pdf/internal/components/assert"
	"arcinfo-pdf/internal/components/chrono"
	"arcinfo-pdf/internal/components/telemetry"
	"arcinfo-pdf/internal/discovery"
	"arcinfo-pdf/internal/scrapers/arcinfo"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_pipeline_login   = "pipeline.login"
	report_pipeline_listing = "pipeline.listing"
	report_pipeline_merge   = "pipeline.merge"
	report_pipeline_save    = "pipeline.save"
)

type Config struct {
	Client      arcinfo.ClientOptions
	Credentials arcinfo.Credentials
	Date        time.Time
	// OutputPath is the file the edition is written to.
	OutputPath string
	// Matcher defaults to the regex matcher.
	Matcher discovery.Matcher
	// Dedupe drops repeated asset paths before downloading.
	Dedupe bool
	// RequireLogin aborts the run when login yields no access token.
	RequireLogin bool
}

// OutputPath returns <dir>/<YYYY-MM-DD>.pdf
func OutputPath(dir string, date time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s.pdf", chrono.EditionDate(date)))
}

type Pipeline struct {
	config Config
	root   telemetry.API
	tel    telemetry.API
	tracer trace.Tracer
}

func NewPipeline(config Config, tel telemetry.API) Pipeline {
	assert.NotNil(tel)
	assert.NotEmptyStr(config.OutputPath)

	if config.Matcher == nil {
		config.Matcher = discovery.NewRegexMatcher()
	}

	return Pipeline{
		config: config,
		root:   tel,
		tel:    telemetry.NewScopedAPI("edition", tel),
		tracer: telemetry.Tracer(),
	}
}

// Run logs in, lists the edition, downloads every page in order and saves the
// assembled document. Missing pages, a missing edition and a failed login only
// shrink the output, the returned error is reserved for transport failures,
// unreadable PDFs and filesystem errors.
func (p Pipeline) Run(ctx context.Context) (report Report, err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline:Run", trace.WithAttributes(
		attribute.String("edition.date", chrono.EditionDate(p.config.Date)),
	))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	report = Report{
		Date:       p.config.Date,
		OutputPath: p.config.OutputPath,
	}

	client, err := arcinfo.NewClient(p.config.Client, p.root)
	if err != nil {
		return report, fmt.Errorf("create client: %w", err)
	}
	defer client.Close()

	report.Login, err = p.login(ctx, client)
	if err != nil {
		return report, err
	}

	report.Listing, err = p.list(ctx, client)
	if err != nil {
		return report, err
	}

	doc := assembler.New()
	for _, asset := range report.Listing.Assets {
		outcome, err := p.fetch(ctx, client, doc, asset)
		if err != nil {
			return report, err
		}
		report.Pages = append(report.Pages, outcome)
	}
	report.PageCount = doc.PageCount()

	p.tel.ReportCount("pages.fetched", int64(len(report.Fetched())))
	p.tel.ReportCount("pages.skipped", int64(len(report.Skipped())))

	report.Saved, err = p.save(ctx, doc)
	if err != nil {
		return report, err
	}
	return report, nil
}

func (p Pipeline) login(ctx context.Context, client *arcinfo.Client) (arcinfo.LoginResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline:login")
	defer span.End()

	result, err := client.Login(ctx, p.config.Credentials)
	if err != nil {
		span.SetStatus(codes.Error, "login request failed")
		return result, err
	}
	span.SetAttributes(attribute.Bool("login.authenticated", result.Authenticated))

	if !result.Authenticated {
		if p.config.RequireLogin {
			span.SetStatus(codes.Error, "not authenticated")
			return result, arcinfo.ErrNotAuthenticated
		}
		p.tel.ReportWarning(report_pipeline_login, "login error, continuing without a session")
	}
	return result, nil
}

func (p Pipeline) list(ctx context.Context, client *arcinfo.Client) (ListingResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline:list")
	defer span.End()

	result := ListingResult{Path: arcinfo.EditionPath(p.config.Date)}
	assets, err := client.ListEdition(ctx, p.config.Date, p.config.Matcher)
	if err != nil {
		span.SetStatus(codes.Error, "list edition failed")
		return result, err
	}
	if p.config.Dedupe {
		assets = discovery.Dedupe(assets)
	}
	result.Assets = assets
	span.SetAttributes(attribute.Int("edition.assets", len(assets)))

	if !result.Found() {
		p.tel.ReportWarning(
			report_pipeline_listing,
			"edition does not exist",
			chrono.EditionDate(p.config.Date),
		)
	}
	return result, nil
}

func (p Pipeline) fetch(ctx context.Context, client *arcinfo.Client, doc *assembler.Document, asset discovery.AssetPath) (PageOutcome, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline:fetch", trace.WithAttributes(
		attribute.String("page.path", string(asset)),
	))
	defer span.End()

	page, err := client.FetchPage(ctx, asset)
	if err != nil {
		span.SetStatus(codes.Error, "fetch failed")
		return PageOutcome{}, err
	}

	outcome := PageOutcome{
		Path:       asset,
		Status:     page.Status,
		StatusCode: page.StatusCode,
	}
	if page.Status != arcinfo.PageFetched {
		return outcome, nil
	}

	outcome.Pages, err = doc.Append(page.Body)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_merge, err, asset)
		span.SetStatus(codes.Error, "merge failed")
		return outcome, fmt.Errorf("merge %s: %w", asset, err)
	}
	return outcome, nil
}

func (p Pipeline) save(ctx context.Context, doc *assembler.Document) (bool, error) {
	_, span := p.tracer.Start(ctx, "pipeline:save")
	defer span.End()

	saved, err := doc.Save(p.config.OutputPath)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_save, err, p.config.OutputPath)
		span.SetStatus(codes.Error, "save failed")
		return false, fmt.Errorf("save %s: %w", p.config.OutputPath, err)
	}
	span.SetAttributes(attribute.Bool("output.saved", saved))
	if saved {
		p.tel.ReportDebug("saved edition", p.config.OutputPath, doc.PageCount())
	}
	return saved, nil
}
