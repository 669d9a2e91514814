package cmd

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	naturaldate "github.com/tj/go-naturaldate"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"marketdigest/internal/config"
	"marketdigest/internal/digest"
	"marketdigest/internal/earnings"
	"marketdigest/internal/econ"
	"marketdigest/internal/httpx"
	"marketdigest/internal/reddit"
	"marketdigest/internal/report"
	"marketdigest/internal/stocktwits"
)

var (
	configFlag     string
	outputFlag     string
	startFlag      string
	daysAheadFlag  int
	countriesFlag  []string
	importanceFlag []string
	symbolsFlag    []string
	handlesFlag    []string
	subredditsFlag []string
	forumUsersFlag []string
	limitFlag      int

	redditIDFlag     string
	redditSecretFlag string
	redditAgentFlag  string

	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "marketdigest",
	Short: "Generate a Markdown market digest from calendar, social, and forum sources",
	RunE:  run,

	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFlag, "config", "", "path to a YAML config file")
	flags.StringVar(&startFlag, "start", "", `window start, e.g. "2026-09-01", "today", "next monday" (default: today)`)
	flags.IntVar(&daysAheadFlag, "days-ahead", 0, "how many days ahead of the start to include")
	flags.IntVar(&limitFlag, "limit", 0, "posts per social handle or forum source")
	flags.StringSliceVar(&handlesFlag, "handles", nil, "social handles to include (omit the @ prefix)")
	flags.StringSliceVar(&subredditsFlag, "subreddits", nil, "subreddits to monitor for new posts")
	flags.StringSliceVar(&forumUsersFlag, "forum-users", nil, "forum usernames to fetch submissions for")
	flags.StringVar(&redditIDFlag, "reddit-client-id", "", "reddit API client id")
	flags.StringVar(&redditSecretFlag, "reddit-client-secret", "", "reddit API client secret")
	flags.StringVar(&redditAgentFlag, "reddit-user-agent", "", "user agent for reddit requests")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "verbose logging")

	rootCmd.Flags().StringVar(&outputFlag, "output", "market_report.md", "path of the generated report")
	rootCmd.Flags().StringSliceVar(&countriesFlag, "countries", nil, "countries to filter the economic calendar to")
	rootCmd.Flags().StringSliceVar(&importanceFlag, "importance", nil, "importance levels to filter the economic calendar to (Low, Medium, High)")
	rootCmd.Flags().StringSliceVar(&symbolsFlag, "symbols", nil, "symbols to filter the earnings calendar to")
}

func Execute() error {
	return rootCmd.Execute()
}

func run(cmd *cobra.Command, args []string) error {
	// Load .env without overriding existing env vars.
	// Precedence: flags > real env vars > .env > config file.
	_ = godotenv.Load()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(verboseFlag, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	window, err := parseWindow(startFlag, cfg.DaysAhead)
	if err != nil {
		return err
	}

	client := httpx.NewClient(
		time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second,
		cfg.HTTP.RetryMax,
		cfg.HTTP.UserAgent,
	)

	sections := buildSections(cfg, window, client)
	logger.Info("starting report run",
		zap.String("start", window.Start.Format(dateFormat)),
		zap.String("end", window.End.Format(dateFormat)),
		zap.Int("sections", len(sections)))

	results := fetchAll(cmd.Context(), sections, logger)

	doc := report.Render(results, time.Now())
	if err := report.Write(cfg.Output, doc); err != nil {
		logger.Error("writing report failed", zap.String("path", cfg.Output), zap.Error(err))
		return err
	}

	logger.Info("report written", zap.String("path", cfg.Output), zap.Int("bytes", len(doc)))
	return nil
}

// loadConfig reads the optional config file and layers the command line
// flags on top. Only flags the user actually set override file values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}

	changed := func(name string) bool {
		if f := cmd.Flags().Lookup(name); f != nil {
			return f.Changed
		}
		return false
	}

	if changed("output") {
		cfg.Output = outputFlag
	}
	if changed("days-ahead") {
		cfg.DaysAhead = daysAheadFlag
	}
	if changed("countries") {
		cfg.Econ.Countries = countriesFlag
	}
	if changed("importance") {
		cfg.Econ.Importance = importanceFlag
	}
	if changed("symbols") {
		cfg.Earnings.Symbols = symbolsFlag
	}
	if changed("handles") {
		cfg.Social.Handles = handlesFlag
	}
	if changed("limit") {
		cfg.Social.Limit = limitFlag
		cfg.Reddit.SubredditLimit = limitFlag
		cfg.Reddit.UserLimit = limitFlag
	}
	if changed("subreddits") {
		cfg.Reddit.Subreddits = subredditsFlag
	}
	if changed("forum-users") {
		cfg.Reddit.Users = forumUsersFlag
	}
	if changed("reddit-client-id") {
		cfg.Reddit.ClientID = redditIDFlag
	}
	if changed("reddit-client-secret") {
		cfg.Reddit.ClientSecret = redditSecretFlag
	}
	if changed("reddit-user-agent") {
		cfg.Reddit.UserAgent = redditAgentFlag
	}

	if cfg.DaysAhead < 0 {
		return nil, fmt.Errorf("--days-ahead must not be negative, got %d", cfg.DaysAhead)
	}
	return cfg, nil
}

type section struct {
	Title  string
	Source digest.Source
}

// buildSections maps the run configuration to the sections to produce. The
// calendars always run; social and forum sections are added only when their
// watchlists are non-empty, so an invocation without them degrades to a
// calendar-only report rather than an error.
func buildSections(cfg *config.Config, window digest.Window, client *http.Client) []section {
	sections := []section{
		{
			Title: "Economic Calendar",
			Source: econ.New(econ.Config{
				APIKey:     cfg.Econ.APIKey,
				Countries:  cfg.Econ.Countries,
				Importance: cfg.Econ.Importance,
			}, window, client),
		},
		{
			Title: "Earnings Calendar",
			Source: earnings.New(earnings.Config{
				Symbols:         cfg.Earnings.Symbols,
				RateLimitPerMin: cfg.Earnings.RateLimitPerMin,
			}, window, client),
		},
	}

	if len(cfg.Social.Handles) > 0 {
		sections = append(sections, section{
			Title: "Social Watchlist",
			Source: stocktwits.New(stocktwits.Config{
				Handles: cfg.Social.Handles,
				Limit:   cfg.Social.Limit,
			}, client),
		})
	}

	if len(cfg.Reddit.Subreddits) > 0 || len(cfg.Reddit.Users) > 0 {
		sections = append(sections, section{
			Title: "Reddit Highlights",
			Source: reddit.New(reddit.Config{
				ClientID:       cfg.Reddit.ClientID,
				ClientSecret:   cfg.Reddit.ClientSecret,
				UserAgent:      cfg.Reddit.UserAgent,
				Subreddits:     cfg.Reddit.Subreddits,
				Users:          cfg.Reddit.Users,
				SubredditLimit: cfg.Reddit.SubredditLimit,
				UserLimit:      cfg.Reddit.UserLimit,
			}, client),
		})
	}

	return sections
}

// fetchAll runs every adapter concurrently and collects results in section
// order. A failed adapter becomes an unavailable section; it never aborts
// the run.
func fetchAll(ctx context.Context, sections []section, logger *zap.Logger) []report.Section {
	results := make([]report.Section, len(sections))

	var wg sync.WaitGroup
	for i, sec := range sections {
		i, sec := i, sec
		wg.Add(1)
		go func() {
			defer wg.Done()
			records, err := sec.Source.Fetch(ctx)
			if err != nil {
				logger.Warn("source unavailable",
					zap.String("source", sec.Source.Name()),
					zap.Error(err))
			} else {
				logger.Info("source fetched",
					zap.String("source", sec.Source.Name()),
					zap.Int("records", len(records)))
			}
			results[i] = report.Section{Title: sec.Title, Records: records, Err: err}
		}()
	}
	wg.Wait()

	return results
}

// newLogger builds the run logger. --verbose forces a development logger at
// debug level; otherwise the configured level applies to the production
// config.
func newLogger(verbose bool, level string) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

const dateFormat = "2006-01-02"

// parseWindow resolves the --start flag and the days-ahead count into the
// inclusive date window the calendar adapters cover.
//
// The start accepts either an exact date (YYYY-MM-DD) or a natural language
// expression such as "today" or "next monday". Exact dates are tried first;
// if parsing fails, the input is interpreted as natural language relative to
// the current time. Defaults to today when omitted.
func parseWindow(startStr string, daysAhead int) (digest.Window, error) {
	now := time.Now()

	start := now
	if startStr != "" {
		t, err := parseDate(startStr, now)
		if err != nil {
			return digest.Window{}, fmt.Errorf("invalid --start value %q: %w", startStr, err)
		}
		start = t
	}

	return digest.WindowFrom(start, daysAhead), nil
}

// parseDate tries YYYY-MM-DD first, then falls back to natural language
// parsing via go-naturaldate relative to ref.
func parseDate(s string, ref time.Time) (time.Time, error) {
	if t, err := time.ParseInLocation(dateFormat, s, ref.Location()); err == nil {
		return t, nil
	}
	return naturaldate.Parse(s, ref)
}
