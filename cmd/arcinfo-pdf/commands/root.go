package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"arcinfo-pdf/internal/components/chrono"
	"arcinfo-pdf/internal/components/serviceutil"
	"arcinfo-pdf/internal/components/telemetry"
	"arcinfo-pdf/internal/delivery"
	"arcinfo-pdf/internal/discovery"
	"arcinfo-pdf/internal/edition"
	"arcinfo-pdf/internal/scrapers/arcinfo"

	"github.com/spf13/cobra"
)

type flags struct {
	config       string
	date         string
	matcher      string
	dedupe       bool
	requireLogin bool
	verbose      bool
	summary      bool
	dumpHttp     string
}

func newRootCmd(clock chrono.API) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "arcinfo-pdf <username> <password> <output_folder>",
		Short: "arcinfo-pdf downloads an ArcInfo edition as a single PDF.",
		Long: `arcinfo-pdf logs into jd.arcinfo.ch, finds every page of the edition of the
given date (today by default) and writes them, in order, to
<output_folder>/<YYYY-MM-DD>.pdf. No file is written when no page could be
downloaded.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			telemetry.InitSlog(f.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, clock, f, args)
		},
	}

	cmd.Flags().StringVar(&f.config, "config", "arcinfo.json5", "The JSON5 config file to read, a missing file is ignored.")
	cmd.Flags().StringVar(&f.date, "date", "", "The edition date as YYYY-MM-DD, defaults to today.")
	cmd.Flags().StringVar(&f.matcher, "matcher", "", fmt.Sprintf("How page assets are found in the listing (%s or %s).", discovery.MatcherRegex, discovery.MatcherSelector))
	cmd.Flags().BoolVar(&f.dedupe, "dedupe", false, "Download a page asset only once even if the listing repeats it.")
	cmd.Flags().BoolVar(&f.requireLogin, "require-login", false, "Abort when the login does not yield an access token.")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Log debug information.")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "Print a table of every downloaded page.")
	cmd.Flags().StringVar(&f.dumpHttp, "dump-http", "", "Write every HTTP exchange to this directory.")

	return cmd
}

func run(cmd *cobra.Command, clock chrono.API, f flags, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(f.config)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if cmd.Flags().Changed("matcher") {
		cfg.Discovery.Matcher = f.matcher
	}
	if cmd.Flags().Changed("dedupe") {
		cfg.Discovery.Dedupe = f.dedupe
	}
	if cmd.Flags().Changed("require-login") {
		cfg.RequireLogin = f.requireLogin
	}

	date := clock.Now()
	if f.date != "" {
		date, err = chrono.ParseEditionDate(f.date, clock.Location())
		if err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
	}

	matcher, err := discovery.NewMatcher(cfg.Discovery.Matcher)
	if err != nil {
		return err
	}

	providers, err := telemetry.Setup(ctx, "arcinfo-pdf", cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		err := providers.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	}()

	tel := telemetry.SlogAPI{}
	outputPath := edition.OutputPath(args[2], date)

	clientOptions := cfg.clientOptions()
	clientOptions.DumpDir = f.dumpHttp

	pipeline := edition.NewPipeline(edition.Config{
		Client: clientOptions,
		Credentials: arcinfo.Credentials{
			Username: args[0],
			Password: args[1],
		},
		Date:         date,
		OutputPath:   outputPath,
		Matcher:      matcher,
		Dedupe:       cfg.Discovery.Dedupe,
		RequireLogin: cfg.RequireLogin,
	}, tel)

	report, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	if f.summary {
		renderSummary(cmd.OutOrStdout(), report)
	}

	if !report.Saved {
		slog.Info("no edition written", "date", chrono.EditionDate(date))
		return nil
	}
	slog.Info("saved edition", "path", report.OutputPath, "pages", report.PageCount)

	if cfg.Delivery.Enabled() {
		err = delivery.NewMailer(cfg.Delivery, tel).Send(ctx, date, report.OutputPath)
		if err != nil {
			return err
		}
		slog.Info("delivered edition", "to", cfg.Delivery.To)
	}
	return nil
}

func ExecuteContext(ctx context.Context) {
	ctx, cancel := serviceutil.SignalContext(ctx)
	defer cancel()

	clock, err := chrono.NewStandardImpl()
	if err != nil {
		serviceutil.Fatal("failed to load timezone", err)
	}

	if err := newRootCmd(clock).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}
