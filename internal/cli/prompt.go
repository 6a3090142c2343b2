package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// prompter asks line-based questions for --interactive runs. End of
// input accepts the default answer.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// ask returns the answer, or def when it is empty
func (p *prompter) ask(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}

	answer, err := p.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// confirm asks a yes/no question
func (p *prompter) confirm(question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	fmt.Fprintf(p.out, "%s (%s): ", question, hint)

	answer, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return def, nil
	}
}

// choose lists options and returns the picked index. Anything other than
// a listed number picks fallback.
func (p *prompter) choose(question string, options []string, fallback int) (int, error) {
	for i, option := range options {
		fmt.Fprintf(p.out, "%d. %s\n", i+1, option)
	}
	fmt.Fprintf(p.out, "%s (1-%d): ", question, len(options))

	answer, err := p.readLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(options) {
		if answer != "" {
			fmt.Fprintf(p.out, "Invalid choice, using %s\n", options[fallback])
		}
		return fallback, nil
	}
	return n - 1, nil
}
