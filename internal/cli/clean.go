package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/ppiankov/idiomfetch/internal/clean"
	"github.com/ppiankov/idiomfetch/internal/logging"
	"github.com/ppiankov/idiomfetch/internal/model"
	"github.com/spf13/cobra"
)

var cleanInteractive bool

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove reference entries and duplicates from a definitions CSV",
	Long: `Clean writes a copy of a term/definition CSV keeping only rows that:
- have a term and a definition
- do not contain a reference pattern such as "Synonym of" or "See also"
- are the first row for their term (case-insensitive)

The output defaults to <name>_final.csv next to the input.

Example:
  idiomfetch clean
  idiomfetch clean -i wiktionary.csv -o idioms.csv
  idiomfetch clean --interactive`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	d := model.DefaultConfig()
	f := cleanCmd.Flags()
	f.StringP("input", "i", d.Clean.Input, "input CSV file")
	f.StringP("output", "o", d.Clean.Output, "output CSV file (default: <input>_final.csv)")
	f.StringSlice("pattern", d.Clean.Patterns, "reference pattern to filter (repeatable)")
	f.BoolVar(&cleanInteractive, "interactive", false, "prompt for the input variant and output path")

	bindFlags(cleanCmd, map[string]string{
		"clean.input":    "input",
		"clean.output":   "output",
		"clean.patterns": "pattern",
	})
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.NewLogger(cfg.Log, verbose)

	if cleanInteractive {
		proceed, err := promptClean(newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()), cfg)
		if err != nil || !proceed {
			return err
		}
	}

	output := cfg.Clean.Output
	if output == "" {
		output = clean.DefaultOutputPath(cfg.Clean.Input)
	}

	report, err := clean.NewCleaner(cfg.Clean.Patterns, logger).CleanFile(cfg.Clean.Input, output)
	if err != nil {
		return fmt.Errorf("clean failed: %w", err)
	}

	printCleanSummary(cmd.ErrOrStderr(), report, output)
	return nil
}

// promptClean picks the input file, preferring an existing processed
// variant, and the output path
func promptClean(p *prompter, cfg *model.Config) (bool, error) {
	fmt.Fprintln(p.out, "Idiom CSV Cleaner")
	fmt.Fprintln(p.out, "=================")

	useDefault, err := p.confirm(fmt.Sprintf("Use default path (%s)?", cfg.Clean.Input), false)
	if err != nil {
		return false, err
	}
	if !useDefault {
		if cfg.Clean.Input, err = p.ask("Path to your CSV file", cfg.Clean.Input); err != nil {
			return false, err
		}
	}

	if _, err := os.Stat(cfg.Clean.Input); errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("input file %q not found", cfg.Clean.Input)
	}

	if candidates := clean.Candidates(cfg.Clean.Input); len(candidates) > 0 {
		fmt.Fprintln(p.out, "Found processed versions of the file:")
		options := append(append([]string{}, candidates...), "Use original file: "+cfg.Clean.Input)
		choice, err := p.choose("Which file would you like to use as input?", options, len(options)-1)
		if err != nil {
			return false, err
		}
		if choice < len(candidates) {
			cfg.Clean.Input = candidates[choice]
		}
	}
	fmt.Fprintf(p.out, "Using %s as input\n", cfg.Clean.Input)

	output, err := p.ask("Path for the output file (Enter to auto-generate)", cfg.Clean.Output)
	if err != nil {
		return false, err
	}
	cfg.Clean.Output = output
	return true, nil
}

func printCleanSummary(w io.Writer, r model.CleanReport, output string) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)

	fmt.Fprintln(w)
	_, _ = bold.Fprintln(w, "Cleaning complete!")
	fmt.Fprintf(w, "  Total entries:       %d\n", r.Total)
	fmt.Fprintf(w, "  Malformed entries:   %d\n", r.Malformed)
	fmt.Fprintf(w, "  Filtered entries:    %d\n", r.Filtered)
	fmt.Fprintf(w, "  Duplicate entries:   %d\n", r.Duplicates)
	_, _ = green.Fprintf(w, "  Final entries:       %d\n", r.Final)
	fmt.Fprintf(w, "  Saved to:            %s\n", output)
}
