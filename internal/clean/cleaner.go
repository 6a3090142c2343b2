// Package clean filters reference-only entries and duplicate terms out of
// a term/definition CSV.
package clean

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/idiomfetch/internal/model"
	"github.com/ppiankov/idiomfetch/internal/store"
)

// ErrNoHeader means the input had no header row
var ErrNoHeader = errors.New("input has no header row")

// Cleaner drops rows whose definition contains any pattern, then keeps the
// first row for each term compared case-insensitively.
type Cleaner struct {
	patterns []string
	log      *slog.Logger
}

// NewCleaner creates a cleaner. Patterns are matched as case-sensitive
// substrings; empty patterns are ignored.
func NewCleaner(patterns []string, logger *slog.Logger) *Cleaner {
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return &Cleaner{patterns: kept, log: logger}
}

// Clean reads a CSV from r and returns its header with the retained rows
func (c *Cleaner) Clean(r io.Reader) (header []string, rows [][]string, report model.CleanReport, err error) {
	header, raw, err := store.ReadRecords(r)
	if err != nil {
		return nil, nil, report, err
	}
	if header == nil {
		return nil, nil, report, ErrNoHeader
	}

	seen := model.NewTermSet()
	for _, row := range raw {
		report.Total++

		if len(row) < 2 {
			report.Malformed++
			continue
		}
		term := strings.TrimSpace(row[0])
		definition := strings.TrimSpace(row[1])
		if term == "" {
			report.Malformed++
			continue
		}

		if pattern, ok := c.match(definition); ok {
			report.Filtered++
			c.log.Debug("filtering reference entry",
				slog.String("term", term),
				slog.String("pattern", pattern),
				slog.String("definition", truncate(definition, 50)),
			)
			continue
		}

		if seen.Has(term) {
			report.Duplicates++
			c.log.Debug("removing duplicate", slog.String("term", term))
			continue
		}
		seen.Add(term)

		rows = append(rows, []string{term, definition})
	}

	report.Final = len(rows)
	return header, rows, report, nil
}

// CleanFile cleans input and writes the result to output. The output is
// replaced atomically, so output may equal input.
func (c *Cleaner) CleanFile(input, output string) (model.CleanReport, error) {
	f, err := os.Open(input)
	if err != nil {
		return model.CleanReport{}, fmt.Errorf("open input: %w", err)
	}

	header, rows, report, err := c.Clean(f)
	_ = f.Close()
	if err != nil {
		return report, fmt.Errorf("clean %s: %w", input, err)
	}

	if err := store.WriteFile(output, header, rows); err != nil {
		return report, fmt.Errorf("write output: %w", err)
	}

	c.log.Info("cleaning complete",
		slog.String("input", input),
		slog.String("output", output),
		slog.Int("total", report.Total),
		slog.Int("filtered", report.Filtered),
		slog.Int("duplicates", report.Duplicates),
		slog.Int("malformed", report.Malformed),
		slog.Int("final", report.Final),
	)
	return report, nil
}

func (c *Cleaner) match(definition string) (string, bool) {
	for _, p := range c.patterns {
		if strings.Contains(definition, p) {
			return p, true
		}
	}
	return "", false
}

// DefaultOutputPath returns <dir>/<stem>_final<ext> for input
func DefaultOutputPath(input string) string {
	return sibling(input, "_final")
}

// Candidates lists the existing _cleaned and _unique variants of base,
// in that order.
func Candidates(base string) []string {
	var found []string
	for _, suffix := range []string{"_cleaned", "_unique"} {
		path := sibling(base, suffix)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			found = append(found, path)
		}
	}
	return found
}

func sibling(path, suffix string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	return filepath.Join(filepath.Dir(path), stem+suffix+ext)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
