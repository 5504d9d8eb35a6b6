package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/localrag-mcp/internal/config"
	"github.com/dshills/localrag-mcp/pkg/types"
)

func writeDocs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"garden.md":  "# Garden\n\nTomatoes need full sun and regular watering to grow well in summer.\n",
		"engine.md":  "# Engine\n\nChange the motor oil every five thousand miles to keep the engine healthy.\n",
		"config.txt": "Retry settings control how many times a failed request is attempted again.\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// run executes the CLI with the local embedding provider.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvGeminiAPIKey, "")
	t.Setenv(config.EnvGoogleAPIKey, "")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--provider", "local", "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoadConfigPrecedence(t *testing.T) {
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "config.yaml"), []byte(`
vector_store:
  backend: hnsw
logging:
  level: warn
`), 0o644))
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvDocsDir, "")

	opts := &globalOptions{docsDir: docs, backend: "sqlite"}
	cfg, err := opts.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(docs, "config.yaml"), cfg.Source)
	assert.Equal(t, "sqlite", cfg.VectorStore.Backend)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, filepath.Join(docs, config.DefaultDataDirName), cfg.DataDir)

	opts.verbose = true
	cfg, err = opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigRequiresDocsDir(t *testing.T) {
	t.Setenv(config.EnvDocsDir, "")
	t.Chdir(t.TempDir())

	_, err := (&globalOptions{}).loadConfig()
	require.Error(t, err)
}

func TestIndexSearchStatus(t *testing.T) {
	docs := writeDocs(t)
	data := filepath.Join(t.TempDir(), "index")
	common := []string{"-d", docs, "--data-dir", data, "--backend", "sqlite"}

	out, err := run(t, append([]string{"index"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Index update complete:")
	assert.Contains(t, out, "Added: 3")

	out, err = run(t, append([]string{"index", "--json"}, common...)...)
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.EqualValues(t, 3, summary["unchanged"])
	assert.EqualValues(t, 0, summary["api_call_count"])

	out, err = run(t, append([]string{"search", "-k", "1", "tomatoes", "sun"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 results for query: 'tomatoes sun'")
	assert.Contains(t, out, "File: garden.md")

	out, err = run(t, append([]string{"status", "--json"}, common...)...)
	require.NoError(t, err)
	var st map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.EqualValues(t, 3, st["total_files"])
}

func TestSearchRejectsInvalidTopK(t *testing.T) {
	docs := writeDocs(t)
	for _, k := range []string{"1000", "0", "-2"} {
		_, err := run(t, "search", "-d", docs, "--data-dir", filepath.Join(t.TempDir(), "idx"), "-k="+k, "anything")
		require.ErrorIs(t, err, types.ErrValidation, "top-k %s", k)
	}
}

func TestServeNeedsSomethingToServe(t *testing.T) {
	docs := writeDocs(t)
	_, err := run(t, "serve", "-d", docs, "--data-dir", filepath.Join(t.TempDir(), "idx"), "--no-mcp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to serve")
}

func TestVersionJSON(t *testing.T) {
	out, err := run(t, "version", "--json")
	require.NoError(t, err)

	var info versionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info.Version)
	assert.NotEmpty(t, info.SQLiteDriver)
	assert.NotEmpty(t, info.SchemaVersion)
}
