package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/ppiankov/idiomfetch/internal/model"
	"github.com/ppiankov/idiomfetch/internal/store"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolate keeps the user's config file and .env out of a test
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("IDIOMFETCH_LOG_LEVEL", "error")

	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })
}

// execute runs the root command with args and restores the named flags
func execute(t *testing.T, cmd *cobra.Command, flags []string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		for _, name := range flags {
			f := cmd.Flags().Lookup(name)
			require.NotNil(t, f, name)
			require.NoError(t, f.Value.Set(f.DefValue))
			f.Changed = false
		}
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.Execute()
	return out.String(), err
}

func newWiktionaryServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /w/\n"))
		case r.URL.Path == "/api/rest_v1/page/definition/break_the_ice":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"en":[{"partOfSpeech":"Phrase","definitions":[{"definition":"To <b>start</b> a conversation."}]}]}`))
		case strings.HasPrefix(r.URL.Path, "/api/rest_v1/page/definition/"):
			http.NotFound(w, r)
		case r.URL.Path == "/w/api.php" && r.URL.Query().Get("page") == "hit_the_sack":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"parse":{"title":"hit the sack","text":{"*":"<h2 id=\"English\">English</h2><h3>Verb</h3><ol><li>To go to <a href=\"/wiki/bed\">bed</a>.<ul><li>example</li></ul></li></ol>"}}}`))
		case r.URL.Path == "/w/api.php":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"error":{"code":"missingtitle","info":"The page you specified doesn't exist."}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

var fetchTestFlags = []string{"input", "output", "base-url", "delay", "resume"}

func TestFetchCommand(t *testing.T) {
	isolate(t)
	server := newWiktionaryServer(t)

	dir := t.TempDir()
	input := filepath.Join(dir, "terms.txt")
	output := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(input, []byte("break the ice\nhit the sack\nxyzzy\nBreak The Ice\n"), 0644))

	out, err := execute(t, fetchCmd, fetchTestFlags,
		"fetch", "-i", input, "-o", output, "--base-url", server.URL, "--delay", "0s")
	require.NoError(t, err)
	assert.Contains(t, out, "Processing complete!")
	assert.Contains(t, out, "Saved this run:      2")
	assert.Contains(t, out, "No definition:       1")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "idiom,definition\nbreak the ice,To start a conversation.\nhit the sack,To go to bed.\n", string(data))

	progress, err := store.LoadCheckpoint(store.CheckpointPath(output))
	require.NoError(t, err)
	assert.Equal(t, "xyzzy", progress.LastProcessedTerm)
	assert.Equal(t, 2, progress.LastProcessedIdx)
	assert.Equal(t, 0, progress.RemainingTerms)
}

func TestFetchCommand_ResumeSkipsCheckpointedTerms(t *testing.T) {
	isolate(t)
	server := newWiktionaryServer(t)

	dir := t.TempDir()
	input := filepath.Join(dir, "terms.txt")
	output := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(input, []byte("xyzzy\nhit the sack\n"), 0644))
	require.NoError(t, store.SaveCheckpoint(store.CheckpointPath(output), model.Progress{
		LastProcessedTerm: "xyzzy",
		LastProcessedIdx:  0,
	}))

	out, err := execute(t, fetchCmd, fetchTestFlags,
		"fetch", "-i", input, "-o", output, "--base-url", server.URL, "--delay", "0s", "--resume")
	require.NoError(t, err)
	assert.Contains(t, out, "Resumed at:          1")
	assert.Contains(t, out, "Attempted:           1")
}

func TestFetchCommand_ResumeAfterSavedTerm(t *testing.T) {
	isolate(t)
	server := newWiktionaryServer(t)

	dir := t.TempDir()
	input := filepath.Join(dir, "terms.txt")
	output := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(input, []byte("break the ice\nhit the sack\nxyzzy\n"), 0644))
	require.NoError(t, os.WriteFile(output, []byte("idiom,definition\nbreak the ice,To start a conversation.\n"), 0644))
	require.NoError(t, store.SaveCheckpoint(store.CheckpointPath(output), model.Progress{
		LastProcessedTerm: "break the ice",
		LastProcessedIdx:  0,
	}))

	out, err := execute(t, fetchCmd, fetchTestFlags,
		"fetch", "-i", input, "-o", output, "--base-url", server.URL, "--delay", "0s", "--resume")
	require.NoError(t, err)
	assert.NotContains(t, out, "Resumed at:")
	assert.Contains(t, out, "Attempted:           2")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "idiom,definition\nbreak the ice,To start a conversation.\nhit the sack,To go to bed.\n", string(data))
}

func TestFetchCommand_MissingInput(t *testing.T) {
	isolate(t)
	server := newWiktionaryServer(t)
	dir := t.TempDir()

	_, err := execute(t, fetchCmd, fetchTestFlags,
		"fetch", "-i", filepath.Join(dir, "missing.txt"), "-o", filepath.Join(dir, "out.csv"), "--base-url", server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFetchCommand_InvalidConfig(t *testing.T) {
	isolate(t)
	t.Setenv("IDIOMFETCH_LOG_FORMAT", "xml")

	_, err := execute(t, fetchCmd, fetchTestFlags, "fetch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")
}

func TestCleanCommand(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	input := filepath.Join(dir, "wiktionary.csv")
	require.NoError(t, os.WriteFile(input, []byte("idiom,definition\ncat,Synonym of feline\ndog,A domesticated canine\nDog,duplicate entry\n"), 0644))

	out, err := execute(t, cleanCmd, []string{"input", "output"}, "clean", "-i", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Final entries:       1")

	data, err := os.ReadFile(filepath.Join(dir, "wiktionary_final.csv"))
	require.NoError(t, err)
	assert.Equal(t, "idiom,definition\ndog,A domesticated canine\n", string(data))
}

func TestCleanCommand_PatternsFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("IDIOMFETCH_CLEAN_PATTERNS", "canine")

	dir := t.TempDir()
	input := filepath.Join(dir, "in.csv")
	output := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(input, []byte("idiom,definition\ncat,Synonym of feline\ndog,A domesticated canine\n"), 0644))

	_, err := execute(t, cleanCmd, []string{"input", "output"}, "clean", "-i", input, "-o", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "idiom,definition\ncat,Synonym of feline\n", string(data))
}

func TestLoadConfig_Environment(t *testing.T) {
	isolate(t)
	t.Setenv("IDIOMFETCH_RATE_LIMITING_DELAY", "250ms")
	t.Setenv("IDIOMFETCH_WIKTIONARY_SECTION", "French")
	t.Setenv("IDIOMFETCH_CACHE_ENABLED", "true")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.RateLimiting.Delay)
	assert.Equal(t, "French", cfg.Wiktionary.Section)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, model.DefaultConfig().Wiktionary.BaseURL, cfg.Wiktionary.BaseURL)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".idiomfetch", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# idiomfetch configuration file"))
	assert.Contains(t, string(data), "delay: 1s")

	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, *model.DefaultConfig(), cfg)

	assert.ErrorContains(t, writeDefaultConfig(path), "already exists")
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, err := execute(t, versionCmd, nil, "version")
	require.NoError(t, err)
	assert.Equal(t, "idiomfetch "+version+"\n", out)
}
