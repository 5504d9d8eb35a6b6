package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/localrag-mcp/pkg/types"
)

func createTestFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestScanner(root string) *Scanner {
	return New(root, Config{
		Extensions:  []string{".md", ".txt"},
		ExcludeDirs: []string{".rag-index", "data", ".git", "node_modules"},
	}, zerolog.Nop())
}

// recordFor builds the record a successful index of path would persist.
func recordFor(t *testing.T, root, rel string) types.FileRecord {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	hash, err := HashFile(abs)
	require.NoError(t, err)
	mtime, err := Stat(abs)
	require.NoError(t, err)
	return types.FileRecord{Path: rel, Hash: hash, ModTime: mtime}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "a.md", "a")
	createTestFile(t, root, "notes/B.TXT", "b")
	createTestFile(t, root, "notes/image.png", "png")
	createTestFile(t, root, ".git/HEAD.md", "ignored")
	createTestFile(t, root, "data/raw.md", "ignored")
	createTestFile(t, root, "deep/node_modules/pkg/readme.md", "ignored")
	createTestFile(t, root, "database/kept.md", "segment match only")
	createTestFile(t, root, ".rag-index/files.md", "ignored")

	files, err := newTestScanner(root).List(context.Background())
	require.NoError(t, err)

	assert.Len(t, files, 3)
	assert.Contains(t, files, "a.md")
	assert.Contains(t, files, "notes/B.TXT")
	assert.Contains(t, files, "database/kept.md")
	assert.Equal(t, filepath.Join(root, "a.md"), files["a.md"].AbsPath)
	assert.Equal(t, int64(1), files["a.md"].Size)
}

func TestList_Symlink(t *testing.T) {
	root := t.TempDir()
	target := createTestFile(t, t.TempDir(), "outside.md", "linked content")
	if err := os.Symlink(target, filepath.Join(root, "link.md")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	files, err := newTestScanner(root).List(context.Background())
	require.NoError(t, err)
	assert.Contains(t, files, "link.md")
}

func TestList_MissingRoot(t *testing.T) {
	s := newTestScanner(filepath.Join(t.TempDir(), "missing"))
	_, err := s.List(context.Background())
	assert.ErrorIs(t, err, types.ErrFileAccess)
}

func TestList_Cancelled(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "a.md", "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestScanner(root).List(ctx)
	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	s := newTestScanner("/docs")
	assert.True(t, s.Matches("guide.md"))
	assert.True(t, s.Matches("sub/dir/NOTES.Txt"))
	assert.False(t, s.Matches("image.png"))
	assert.False(t, s.Matches("data/x.md"))
	assert.False(t, s.Matches("a/.git/b.md"))
	assert.True(t, s.Matches("metadata/x.md"))
	assert.True(t, s.ExcludesDir(".git"))
	assert.False(t, s.ExcludesDir("docs"))
}

func TestDetect_Classification(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "same.md", "same")
	createTestFile(t, root, "changed.md", "before")
	createTestFile(t, root, "new.md", "new")

	known := map[string]types.FileRecord{
		"same.md":    recordFor(t, root, "same.md"),
		"changed.md": recordFor(t, root, "changed.md"),
		"gone.md":    {Path: "gone.md", Hash: "abc", ModTime: 1},
	}

	later := time.Now().Add(time.Hour)
	changed := createTestFile(t, root, "changed.md", "after")
	require.NoError(t, os.Chtimes(changed, later, later))

	s := newTestScanner(root)
	result, err := s.Scan(context.Background(), known)
	require.NoError(t, err)

	assert.Equal(t, []string{"new.md"}, result.New)
	assert.Equal(t, []string{"changed.md"}, result.Updated)
	assert.Equal(t, []string{"gone.md"}, result.Deleted)
	assert.Equal(t, []string{"same.md"}, result.Unchanged)
	assert.Empty(t, result.Touched)
	assert.Equal(t, 4, result.Total())
	assert.True(t, result.HasChanges())
	assert.Empty(t, result.Errors)
}

func TestDetect_TouchedButIdentical(t *testing.T) {
	root := t.TempDir()
	path := createTestFile(t, root, "doc.md", "stable content")
	known := map[string]types.FileRecord{"doc.md": recordFor(t, root, "doc.md")}

	later := time.Now().Add(2 * time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	result, err := newTestScanner(root).Scan(context.Background(), known)
	require.NoError(t, err)

	assert.Equal(t, []string{"doc.md"}, result.Unchanged)
	assert.Empty(t, result.Updated)
	assert.False(t, result.HasChanges())

	require.Len(t, result.Touched, 1)
	assert.Equal(t, recordFor(t, root, "doc.md"), result.Touched[0])
	assert.NotEqual(t, known["doc.md"].ModTime, result.Touched[0].ModTime)
}

func TestDetect_EqualMtimeSkipsHashing(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "doc.md", "content")
	rec := recordFor(t, root, "doc.md")
	rec.Hash = "stale-hash-never-compared"

	result, err := newTestScanner(root).Scan(context.Background(), map[string]types.FileRecord{"doc.md": rec})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.md"}, result.Unchanged)
}

func TestDetect_VanishedBeforeHashing(t *testing.T) {
	root := t.TempDir()
	s := newTestScanner(root)
	current := map[string]FileStat{
		"vanished.md": {AbsPath: filepath.Join(root, "vanished.md"), ModTime: 200},
	}
	known := map[string]types.FileRecord{
		"vanished.md": {Path: "vanished.md", Hash: "abc", ModTime: 100},
	}

	result, err := s.Detect(context.Background(), current, known)
	require.NoError(t, err)

	assert.Equal(t, []string{"vanished.md"}, result.Unchanged)
	assert.Empty(t, result.Touched)
	require.Contains(t, result.Errors, "vanished.md")
	assert.ErrorIs(t, result.Errors["vanished.md"], types.ErrFileAccess)
}

func TestHashFile(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, 3*hashBlockSize+17)
	for i := range big {
		big[i] = byte(i % 251)
	}
	path := filepath.Join(root, "big.txt")
	require.NoError(t, os.WriteFile(path, big, 0o644))

	hash, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, HashBytes(big), hash)
	assert.Len(t, hash, 64)

	_, err = HashFile(filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, types.ErrFileAccess)
}
