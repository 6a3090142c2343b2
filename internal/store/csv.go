package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/idiomfetch/internal/model"
)

// LoadProcessed rebuilds the set of terms already saved in an output CSV.
// A missing file yields an empty set. If the file is damaged part way
// through, the terms read so far are returned alongside the error so the
// caller can choose to continue.
func LoadProcessed(path string) (model.TermSet, error) {
	processed := model.NewTermSet()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return processed, nil
	}
	if err != nil {
		return processed, fmt.Errorf("open output: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := newReader(f)
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return processed, fmt.Errorf("read %s: %w", path, err)
		}
		if first {
			first = false
			if isHeader(row) {
				continue
			}
		}
		if len(row) == 0 {
			continue
		}
		if term := strings.TrimSpace(row[0]); term != "" {
			processed.Add(term)
		}
	}

	return processed, nil
}

// Appender appends records to an output CSV, durably, one at a time
type Appender struct {
	f *os.File
	w *csv.Writer
}

// OpenAppender opens path for appending, creating parent directories and
// writing the header when the file is new or empty.
func OpenAppender(path string) (*Appender, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat output: %w", err)
	}

	a := &Appender{f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := a.write(model.Header); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	return a, nil
}

// Append writes one record and syncs it to disk before returning
func (a *Appender) Append(rec model.Record) error {
	row := []string{strings.TrimSpace(rec.Term), strings.TrimSpace(rec.Definition)}
	if err := a.write(row); err != nil {
		return fmt.Errorf("append %q: %w", rec.Term, err)
	}
	return nil
}

func (a *Appender) write(row []string) error {
	if err := a.w.Write(row); err != nil {
		return err
	}
	a.w.Flush()
	if err := a.w.Error(); err != nil {
		return err
	}
	return a.f.Sync()
}

// Close closes the underlying file
func (a *Appender) Close() error {
	return a.f.Close()
}

// ReadRecords reads a header and every row of a CSV file. Rows keep
// their raw fields; validation is up to the caller.
func ReadRecords(r io.Reader) (header []string, rows [][]string, err error) {
	cr := newReader(r)

	header, err = cr.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return header, rows, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// WriteFile writes header and rows to path, replacing it atomically
func WriteFile(path string, header []string, rows [][]string) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if header != nil {
			if err := cw.Write(header); err != nil {
				return err
			}
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return cw.Error()
	})
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func isHeader(row []string) bool {
	return len(row) >= 2 &&
		strings.EqualFold(strings.TrimSpace(row[0]), model.Header[0]) &&
		strings.EqualFold(strings.TrimSpace(row[1]), model.Header[1])
}
