package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/idiomfetch/internal/model"
	"github.com/ppiankov/idiomfetch/internal/pipeline"
	"github.com/ppiankov/idiomfetch/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompter(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("\nanswer\n y \nmaybe\n2\n9\n"), &out)

	got, err := p.ask("Path", "default.txt")
	require.NoError(t, err)
	assert.Equal(t, "default.txt", got)

	got, err = p.ask("Path", "default.txt")
	require.NoError(t, err)
	assert.Equal(t, "answer", got)

	ok, err := p.confirm("Continue?", false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.confirm("Continue?", false)
	require.NoError(t, err)
	assert.False(t, ok)

	idx, err := p.choose("Pick", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = p.choose("Pick", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Contains(t, out.String(), "Invalid choice, using c")

	// end of input takes the default
	ok, err = p.confirm("Again?", true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "Path [default.txt]: ")
}

func TestPromptFetch_CreatesSampleInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "terms.txt")
	output := filepath.Join(dir, "out.csv")

	answers := strings.Join([]string{"n", input, output, "y", "0.5"}, "\n") + "\n"
	var out bytes.Buffer
	cfg := model.DefaultConfig()

	proceed, err := promptFetch(newPrompter(strings.NewReader(answers), &out), cfg)
	require.NoError(t, err)
	assert.True(t, proceed)
	assert.Equal(t, input, cfg.Fetch.Input)
	assert.Equal(t, output, cfg.Fetch.Output)
	assert.Equal(t, 500*time.Millisecond, cfg.RateLimiting.Delay)

	terms, err := pipeline.ReadTerms(input)
	require.NoError(t, err)
	assert.Equal(t, pipeline.SampleTerms, terms)
}

func TestPromptFetch_DeclineSample(t *testing.T) {
	dir := t.TempDir()
	cfg := model.DefaultConfig()
	cfg.Fetch.Input = filepath.Join(dir, "missing.txt")

	proceed, err := promptFetch(newPrompter(strings.NewReader("y\nn\n"), &bytes.Buffer{}), cfg)
	require.NoError(t, err)
	assert.False(t, proceed)
	assert.NoFileExists(t, cfg.Fetch.Input)
}

func TestPromptFetch_OffersResume(t *testing.T) {
	dir := t.TempDir()
	cfg := model.DefaultConfig()
	cfg.Fetch.Input = filepath.Join(dir, "terms.txt")
	cfg.Fetch.Output = filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(cfg.Fetch.Input, []byte("a\n"), 0644))
	require.NoError(t, store.SaveCheckpoint(store.CheckpointPath(cfg.Fetch.Output), model.Progress{
		LastProcessedTerm: "a",
		LastProcessedIdx:  0,
	}))

	var out bytes.Buffer
	proceed, err := promptFetch(newPrompter(strings.NewReader("y\ny\n\n"), &out), cfg)
	require.NoError(t, err)
	assert.True(t, proceed)
	assert.True(t, cfg.Fetch.Resume)
	assert.Equal(t, time.Second, cfg.RateLimiting.Delay)
	assert.Contains(t, out.String(), `Last processed term: "a" (index 0)`)
}

func TestPromptFetch_BlankAnswersMeanNo(t *testing.T) {
	dir := t.TempDir()
	cfg := model.DefaultConfig()
	cfg.Fetch.Input = filepath.Join(dir, "terms.txt")
	cfg.Fetch.Output = filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(cfg.Fetch.Input, []byte("a\n"), 0644))
	require.NoError(t, store.SaveCheckpoint(store.CheckpointPath(cfg.Fetch.Output), model.Progress{
		LastProcessedTerm: "a",
	}))

	var out bytes.Buffer
	proceed, err := promptFetch(newPrompter(strings.NewReader("\n\n\n\n\n"), &out), cfg)
	require.NoError(t, err)
	assert.True(t, proceed)
	assert.False(t, cfg.Fetch.Resume)
	assert.Equal(t, filepath.Join(dir, "terms.txt"), cfg.Fetch.Input)
	assert.Contains(t, out.String(), "Path to your input text file")
	assert.Contains(t, out.String(), "Resume from where you left off? (y/N)")
}

func TestPromptFetch_InvalidDelay(t *testing.T) {
	dir := t.TempDir()
	cfg := model.DefaultConfig()
	cfg.Fetch.Input = filepath.Join(dir, "terms.txt")
	cfg.Fetch.Output = filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(cfg.Fetch.Input, []byte("a\n"), 0644))

	_, err := promptFetch(newPrompter(strings.NewReader("y\nsoon\n"), &bytes.Buffer{}), cfg)
	assert.ErrorContains(t, err, `invalid delay "soon"`)
}

func TestPromptClean_PrefersProcessedVariant(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "wiktionary.csv")
	cleaned := filepath.Join(dir, "wiktionary_cleaned.csv")
	require.NoError(t, os.WriteFile(base, []byte("idiom,definition\n"), 0644))
	require.NoError(t, os.WriteFile(cleaned, []byte("idiom,definition\n"), 0644))

	cfg := model.DefaultConfig()
	cfg.Clean.Input = base

	var out bytes.Buffer
	proceed, err := promptClean(newPrompter(strings.NewReader("y\n1\n\n"), &out), cfg)
	require.NoError(t, err)
	assert.True(t, proceed)
	assert.Equal(t, cleaned, cfg.Clean.Input)
	assert.Empty(t, cfg.Clean.Output)
	assert.Contains(t, out.String(), "2. Use original file: "+base)
}

func TestPromptClean_MissingInput(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Clean.Input = filepath.Join(t.TempDir(), "missing.csv")

	_, err := promptClean(newPrompter(strings.NewReader("y\n"), &bytes.Buffer{}), cfg)
	assert.ErrorContains(t, err, "not found")
}
