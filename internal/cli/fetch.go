package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/ppiankov/idiomfetch/internal/cache"
	"github.com/ppiankov/idiomfetch/internal/logging"
	"github.com/ppiankov/idiomfetch/internal/model"
	"github.com/ppiankov/idiomfetch/internal/pipeline"
	"github.com/ppiankov/idiomfetch/internal/store"
	"github.com/ppiankov/idiomfetch/internal/util"
	"github.com/ppiankov/idiomfetch/internal/wiktionary"
	"github.com/ppiankov/idiomfetch/internal/worker"
	"github.com/spf13/cobra"
)

var fetchInteractive bool

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch definitions for a list of terms",
	Long: `Fetch reads one term per line and appends the first Wiktionary definition
of each to a CSV file:
- Terms already present in the output (any case) are skipped
- The REST definition endpoint is tried first, then the MediaWiki parse API
- Requests are spaced by --delay (or the host's robots.txt Crawl-delay)
- Progress is checkpointed to <output>.progress.json after every term

Example:
  idiomfetch fetch
  idiomfetch fetch -i idioms.txt -o idioms.csv --delay 2s
  idiomfetch fetch --resume
  idiomfetch fetch --interactive`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	d := model.DefaultConfig()
	f := fetchCmd.Flags()

	// File flags
	f.StringP("input", "i", d.Fetch.Input, "input text file, one term per line")
	f.StringP("output", "o", d.Fetch.Output, "output CSV file")
	f.Bool("resume", d.Fetch.Resume, "start after the term recorded in the progress file")
	f.BoolVar(&fetchInteractive, "interactive", false, "prompt for paths, resume and delay")

	// Dictionary flags
	f.String("base-url", d.Wiktionary.BaseURL, "Wiktionary host")
	f.String("language", d.Wiktionary.Language, "language code of the REST definitions")
	f.String("section", d.Wiktionary.Section, "language section heading on the parsed page")

	// HTTP flags
	f.Duration("delay", d.RateLimiting.Delay, "delay between requests")
	f.Duration("timeout", d.HTTP.Timeout, "timeout of a single request")
	f.String("ua", d.HTTP.UserAgent, "HTTP User-Agent")
	f.String("http-proxy", d.HTTP.HTTPProxy, "HTTP proxy URL (overrides HTTP_PROXY env var)")
	f.String("https-proxy", d.HTTP.HTTPSProxy, "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	f.String("no-proxy", d.HTTP.NoProxy, "comma-separated hosts that bypass the proxy")
	f.Bool("ignore-robots", d.HTTP.IgnoreRobots, "skip the robots.txt check")

	// Cache flags
	f.Bool("cache", d.Cache.Enabled, "cache definitions in memory and on disk")
	f.String("cache-dir", d.Cache.Dir, "directory of the on-disk cache")

	bindFlags(fetchCmd, map[string]string{
		"fetch.input":         "input",
		"fetch.output":        "output",
		"fetch.resume":        "resume",
		"wiktionary.base_url": "base-url",
		"wiktionary.language": "language",
		"wiktionary.section":  "section",
		"rate_limiting.delay": "delay",
		"http.timeout":        "timeout",
		"http.user_agent":     "ua",
		"http.http_proxy":     "http-proxy",
		"http.https_proxy":    "https-proxy",
		"http.no_proxy":       "no-proxy",
		"http.ignore_robots":  "ignore-robots",
		"cache.enabled":       "cache",
		"cache.dir":           "cache-dir",
	})
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.NewLogger(cfg.Log, verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if fetchInteractive {
		proceed, err := promptFetch(newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()), cfg)
		if err != nil || !proceed {
			return err
		}
	}

	checkpointPath := store.CheckpointPath(cfg.Fetch.Output)
	var resumeAfter string
	startAt := 0
	if cfg.Fetch.Resume {
		resumeAfter, startAt = resumePoint(logger, checkpointPath)
	}

	source, err := newSource(ctx, cfg, logger)
	if err != nil {
		return err
	}

	summary, err := pipeline.NewFetcher(source, logger).Run(ctx, pipeline.Options{
		InputPath:      cfg.Fetch.Input,
		OutputPath:     cfg.Fetch.Output,
		CheckpointPath: checkpointPath,
		ResumeAfter:    resumeAfter,
		StartAt:        startAt,
	})
	if summary != nil {
		printFetchSummary(cmd.ErrOrStderr(), cfg, summary)
	}
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	return nil
}

// newSource wires the client, limiter, robots check and optional cache
// into the REST-then-parse lookup chain
func newSource(ctx context.Context, cfg *model.Config, logger *slog.Logger) (pipeline.Source, error) {
	proxy := util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)
	limiter := worker.NewLimiter(cfg.RateLimiting.Delay)

	client := wiktionary.NewClient(wiktionary.ClientOptions{
		BaseURL:      cfg.Wiktionary.BaseURL,
		UserAgent:    cfg.HTTP.UserAgent,
		Timeout:      cfg.HTTP.Timeout,
		MaxRedirects: cfg.HTTP.MaxRedirects,
		Proxy:        proxy,
		Limiter:      limiter,
	})

	if !cfg.HTTP.IgnoreRobots {
		checker := util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout, proxy)
		if err := applyRobots(ctx, checker, limiter, client.EndpointURLs(), logger); err != nil {
			return nil, err
		}
	}

	var source pipeline.Source = pipeline.NewChain(logger,
		wiktionary.NewRESTSource(client, cfg.Wiktionary.Language),
		wiktionary.NewParseSource(client, cfg.Wiktionary.Section),
	)

	if cfg.Cache.Enabled {
		layered := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		source = pipeline.NewCachedSource(source, layered, cfg.Wiktionary.Language, 0, logger)
		logger.Debug("lookup cache enabled", slog.String("dir", cfg.Cache.Dir))
	}
	return source, nil
}

// applyRobots reads each endpoint's robots.txt verdict. Disallowed
// endpoints are reported; a longer Crawl-delay replaces the host interval.
func applyRobots(ctx context.Context, checker *util.RobotsChecker, limiter *worker.Limiter, endpoints []string, logger *slog.Logger) error {
	for _, endpoint := range endpoints {
		verdict, err := checker.Check(ctx, endpoint)
		if err != nil {
			return fmt.Errorf("robots check: %w", err)
		}
		if !verdict.Allowed {
			logger.Warn("robots.txt disallows endpoint", slog.String("url", endpoint))
		}
		if verdict.CrawlDelay > limiter.Interval() {
			parsed, err := url.Parse(endpoint)
			if err != nil {
				return fmt.Errorf("robots check: %w", err)
			}
			limiter.SetHostInterval(parsed.Host, verdict.CrawlDelay)
			logger.Info("using robots.txt crawl delay",
				slog.String("host", parsed.Host),
				slog.Duration("delay", verdict.CrawlDelay),
			)
		}
	}
	return nil
}

// resumePoint reads the last processed term and the stored offset from the
// checkpoint; an unusable one starts from the beginning
func resumePoint(logger *slog.Logger, path string) (string, int) {
	progress, err := store.LoadCheckpoint(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("no progress file, starting from the beginning", slog.String("path", path))
		} else {
			logger.Warn("could not read progress file, starting from the beginning", slog.String("error", err.Error()))
		}
		return "", 0
	}

	logger.Info("resuming",
		slog.String("last_term", progress.LastProcessedTerm),
		slog.Int("last_index", progress.LastProcessedIdx),
	)
	return progress.LastProcessedTerm, progress.ResumeOffset()
}

// promptFetch asks for everything the flags would otherwise set. It
// returns false when the user declines to continue.
func promptFetch(p *prompter, cfg *model.Config) (bool, error) {
	fmt.Fprintln(p.out, "Wiktionary Idiom Fetcher")
	fmt.Fprintln(p.out, "========================")

	useDefaults, err := p.confirm(fmt.Sprintf("Use default paths (%s and %s)?", cfg.Fetch.Input, cfg.Fetch.Output), false)
	if err != nil {
		return false, err
	}
	if !useDefaults {
		if cfg.Fetch.Input, err = p.ask("Path to your input text file (one term per line)", cfg.Fetch.Input); err != nil {
			return false, err
		}
		if cfg.Fetch.Output, err = p.ask("Path to your output CSV file", cfg.Fetch.Output); err != nil {
			return false, err
		}
	}

	if _, err := os.Stat(cfg.Fetch.Input); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(p.out, "Input file %q not found.\n", cfg.Fetch.Input)
		create, err := p.confirm("Would you like to create a sample input file?", false)
		if err != nil || !create {
			return false, err
		}
		if err := pipeline.WriteSampleTerms(cfg.Fetch.Input); err != nil {
			return false, err
		}
		fmt.Fprintf(p.out, "Created sample input file at %q\n", cfg.Fetch.Input)
	}

	if progress, err := store.LoadCheckpoint(store.CheckpointPath(cfg.Fetch.Output)); err == nil {
		fmt.Fprintf(p.out, "Found progress file. Last processed term: %q (index %d)\n",
			progress.LastProcessedTerm, progress.LastProcessedIdx)
		if cfg.Fetch.Resume, err = p.confirm("Resume from where you left off?", false); err != nil {
			return false, err
		}
	}

	current := strconv.FormatFloat(cfg.RateLimiting.Delay.Seconds(), 'f', -1, 64)
	answer, err := p.ask("Delay between requests in seconds", current)
	if err != nil {
		return false, err
	}
	seconds, err := strconv.ParseFloat(answer, 64)
	if err != nil || seconds < 0 {
		return false, fmt.Errorf("invalid delay %q", answer)
	}
	cfg.RateLimiting.Delay = time.Duration(seconds * float64(time.Second))

	return true, nil
}

func printFetchSummary(w io.Writer, cfg *model.Config, s *pipeline.Summary) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(w)
	if s.Interrupted {
		_, _ = yellow.Fprintln(w, "Processing interrupted")
	} else {
		_, _ = bold.Fprintln(w, "Processing complete!")
	}
	fmt.Fprintf(w, "  Terms loaded:        %d\n", s.Loaded)
	fmt.Fprintf(w, "  Already saved:       %d\n", s.AlreadySaved)
	fmt.Fprintf(w, "  Pending:             %d\n", s.Pending)
	if s.StartAt > 0 {
		fmt.Fprintf(w, "  Resumed at:          %d\n", s.StartAt)
	}
	fmt.Fprintf(w, "  Attempted:           %d\n", s.Attempted)
	_, _ = green.Fprintf(w, "  Saved this run:      %d\n", s.Success)
	if s.Errors > 0 {
		_, _ = red.Fprintf(w, "  No definition:       %d\n", s.Errors)
	} else {
		fmt.Fprintf(w, "  No definition:       %d\n", s.Errors)
	}
	if cfg.Cache.Enabled {
		fmt.Fprintf(w, "  Cache hits:          %d\n", s.CacheHits)
	}
	fmt.Fprintf(w, "  Output:              %s\n", cfg.Fetch.Output)
}
