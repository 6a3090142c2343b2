package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// SampleTerms seed a new input file
var SampleTerms = []string{
	"a chain is only as strong as its weakest link",
	"actions speak louder than words",
	"all cats are grey in the dark",
	"all that glitters is not gold",
	"a penny saved is a penny earned",
}

// ReadTerms reads one term per line, trimmed, skipping empty lines.
// Input order and repeats are preserved.
func ReadTerms(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open terms: %w", err)
	}
	defer func() { _ = file.Close() }()

	var terms []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if term := strings.TrimSpace(scanner.Text()); term != "" {
			terms = append(terms, term)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan terms: %w", err)
	}
	return terms, nil
}

// WriteSampleTerms creates path holding SampleTerms. An existing file is
// left untouched.
func WriteSampleTerms(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("create sample terms: %w", err)
	}

	for _, term := range SampleTerms {
		if _, err := fmt.Fprintln(f, term); err != nil {
			_ = f.Close()
			return fmt.Errorf("write sample terms: %w", err)
		}
	}
	return f.Close()
}
