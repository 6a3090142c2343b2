package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ppiankov/idiomfetch/internal/model"
	"github.com/ppiankov/idiomfetch/internal/store"
)

// Options describes one fetch run
type Options struct {
	InputPath  string
	OutputPath string
	// CheckpointPath defaults to store.CheckpointPath(OutputPath)
	CheckpointPath string
	// ResumeAfter is the last term a previous run processed. The run starts
	// at the first pending term that follows it in the input.
	ResumeAfter string
	// StartAt skips the first StartAt pending terms. With ResumeAfter set it
	// is used only when that term is no longer in the input.
	StartAt int
}

// Summary reports what a fetch run did
type Summary struct {
	Loaded       int  // terms read from the input
	AlreadySaved int  // distinct terms found in the output at startup
	Pending      int  // distinct input terms not yet saved
	StartAt      int  // offset into the pending list the run began at
	Attempted    int  // lookups completed this run
	Success      int  // definitions saved this run
	Errors       int  // terms with no definition
	CacheHits    int  // lookups answered by the cache, when one is in front
	Interrupted  bool // context ended before the pending list did
}

// Fetcher looks up pending terms one at a time and appends the results
type Fetcher struct {
	source Source
	log    *slog.Logger
	now    func() time.Time
}

// NewFetcher creates a fetcher reading definitions from source
func NewFetcher(source Source, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		source: source,
		log:    logger,
		now:    time.Now,
	}
}

// Run processes every input term not already present in the output.
// Each saved record is on disk before the checkpoint that counts it.
// Lookup failures are counted and skipped; input and output file errors
// abort the run.
func (f *Fetcher) Run(ctx context.Context, opts Options) (*Summary, error) {
	checkpointPath := opts.CheckpointPath
	if checkpointPath == "" {
		checkpointPath = store.CheckpointPath(opts.OutputPath)
	}

	terms, err := ReadTerms(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	f.log.InfoContext(ctx, "loaded terms", slog.Int("count", len(terms)), slog.String("input", opts.InputPath))

	processed, err := store.LoadProcessed(opts.OutputPath)
	if err != nil {
		f.log.WarnContext(ctx, "existing output only partly readable",
			slog.String("output", opts.OutputPath),
			slog.Int("recovered", processed.Len()),
			slog.String("error", err.Error()),
		)
	}
	f.log.InfoContext(ctx, "found already processed terms", slog.Int("count", processed.Len()))

	pending, positions := pendingTerms(terms, processed)
	start := f.startOffset(ctx, terms, positions, opts)

	summary := &Summary{
		Loaded:       len(terms),
		AlreadySaved: processed.Len(),
		Pending:      len(pending),
		StartAt:      start,
	}
	f.log.InfoContext(ctx, "terms to process",
		slog.Int("pending", len(pending)),
		slog.Int("start_at", start),
	)

	out, err := store.OpenAppender(opts.OutputPath)
	if err != nil {
		return summary, fmt.Errorf("open output: %w", err)
	}
	defer func() { _ = out.Close() }()

	counter, counted := f.source.(interface{ Hits() int })
	hitsBefore := 0
	if counted {
		hitsBefore = counter.Hits()
	}

	for i := start; i < len(pending); i++ {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		term := pending[i]
		f.log.InfoContext(ctx, "processing",
			slog.Int("n", i+1),
			slog.Int("of", len(pending)),
			slog.String("term", term),
		)

		definition, lookupErr := f.source.Lookup(ctx, term)
		if lookupErr != nil && ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		summary.Attempted++

		if lookupErr != nil {
			summary.Errors++
			f.log.WarnContext(ctx, "no definition found", slog.String("term", term), slog.String("error", lookupErr.Error()))
		} else {
			if err := out.Append(model.Record{Term: term, Definition: definition}); err != nil {
				return summary, fmt.Errorf("save definition: %w", err)
			}
			summary.Success++
			f.log.InfoContext(ctx, "saved definition", slog.String("term", term), slog.String("definition", preview(definition, 100)))
		}

		progress := model.Progress{
			TotalTerms:        len(terms),
			ProcessedTerms:    summary.AlreadySaved + summary.Attempted,
			RemainingTerms:    len(pending) - (i + 1),
			SuccessCount:      summary.Success,
			ErrorCount:        summary.Errors,
			LastProcessedTerm: term,
			LastProcessedIdx:  i,
		}
		progress.Stamp(f.now())
		if err := store.SaveCheckpoint(checkpointPath, progress); err != nil {
			f.log.WarnContext(ctx, "could not save progress", slog.String("path", checkpointPath), slog.String("error", err.Error()))
		}
	}

	if counted {
		summary.CacheHits = counter.Hits() - hitsBefore
	}
	if summary.Interrupted {
		f.log.WarnContext(ctx, "run interrupted", slog.Int("attempted", summary.Attempted))
	}
	return summary, nil
}

// pendingTerms keeps input order, dropping saved terms and repeats.
// positions[i] is the index of pending[i] in terms.
func pendingTerms(terms []string, processed model.TermSet) (pending []string, positions []int) {
	seen := model.NewTermSet()
	pending = make([]string, 0, len(terms))
	positions = make([]int, 0, len(terms))
	for at, term := range terms {
		if processed.Has(term) || seen.Has(term) {
			continue
		}
		seen.Add(term)
		pending = append(pending, term)
		positions = append(positions, at)
	}
	return pending, positions
}

// startOffset returns the index into the pending list the run begins at.
// Terms saved since the checkpoint was written are no longer pending, so a
// resumed run is placed by the last processed term rather than its index.
func (f *Fetcher) startOffset(ctx context.Context, terms []string, positions []int, opts Options) int {
	if opts.ResumeAfter == "" {
		return clamp(opts.StartAt, 0, len(positions))
	}

	key := model.NormalizeTerm(opts.ResumeAfter)
	for at, term := range terms {
		if model.NormalizeTerm(term) == key {
			return sort.SearchInts(positions, at+1)
		}
	}

	f.log.WarnContext(ctx, "last processed term not in input, using stored offset",
		slog.String("term", opts.ResumeAfter),
		slog.Int("start_at", opts.StartAt),
	)
	return clamp(opts.StartAt, 0, len(positions))
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
