package vault

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func newTestScanner(t *testing.T, root string) *Scanner {
	t.Helper()
	scanner, err := NewScanner(root)
	require.NoError(t, err)
	return scanner
}

func TestScanner_Scan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "note.md", "hello\n")
	writeFile(t, root, "daily/today.md", "entry\n")
	writeFile(t, root, ".gitsync/journal.db", "state")
	writeFile(t, root, ".DS_Store", "junk")

	scanner := newTestScanner(t, root)
	snapshot, report, err := scanner.Scan(context.Background(), NewExclusionRules(nil, nil, root))
	require.NoError(t, err)
	assert.Empty(t, report.Skipped)

	require.Len(t, snapshot, 2)

	entry, ok := snapshot.Get("note.md")
	require.True(t, ok)
	assert.Equal(t, BlobSHA([]byte("hello\n")), entry.Hash)
	assert.Equal(t, int64(6), entry.Size)
	assert.False(t, entry.IsBinary)

	_, ok = snapshot.Get("daily/today.md")
	assert.True(t, ok)
}

func TestScanner_ExcludedFolderNotDescended(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.md", "keep\n")
	writeFile(t, root, ".trash/gone.md", "gone\n")
	writeFile(t, root, ".trash/deep/also.md", "gone\n")

	scanner := newTestScanner(t, root)
	rules := NewExclusionRules([]string{".trash"}, nil, root)

	snapshot, _, err := scanner.Scan(context.Background(), rules)
	require.NoError(t, err)

	assert.Len(t, snapshot, 1)
	_, ok := snapshot.Get("keep.md")
	assert.True(t, ok)
}

func TestScanner_FilePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "note.md", "keep\n")
	writeFile(t, root, "scan.pdf", "%PDF")
	writeFile(t, root, "docs/export.pdf", "%PDF")

	scanner := newTestScanner(t, root)
	rules := NewExclusionRules(nil, []string{"*.pdf"}, root)

	snapshot, _, err := scanner.Scan(context.Background(), rules)
	require.NoError(t, err)

	assert.Len(t, snapshot, 1)
	_, ok := snapshot.Get("note.md")
	assert.True(t, ok)
}

func TestScanner_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real.md", "content\n")
	require.NoError(t, os.Symlink(
		filepath.Join(root, "real.md"),
		filepath.Join(root, "link.md")))

	scanner := newTestScanner(t, root)
	snapshot, report, err := scanner.Scan(context.Background(), NewExclusionRules(nil, nil, root))
	require.NoError(t, err)

	assert.Len(t, snapshot, 1)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "link.md", report.Skipped[0].Path)
	assert.Equal(t, "symlink", report.Skipped[0].Reason)
}

func TestScanner_CacheReusesUnchangedEntries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "note.md", "hello\n")

	scanner := newTestScanner(t, root)
	rules := NewExclusionRules(nil, nil, root)

	first, _, err := scanner.Scan(context.Background(), rules)
	require.NoError(t, err)
	second, _, err := scanner.Scan(context.Background(), rules)
	require.NoError(t, err)

	e1, _ := first.Get("note.md")
	e2, _ := second.Get("note.md")
	assert.Same(t, e1, e2, "unchanged file comes from the hash cache")
}

func TestScanner_EmptyVault(t *testing.T) {
	root := t.TempDir()
	scanner := newTestScanner(t, root)

	snapshot, report, err := scanner.Scan(context.Background(), NewExclusionRules(nil, nil, root))
	require.NoError(t, err)
	assert.Empty(t, snapshot)
	assert.Empty(t, report.Skipped)
}

func TestScanner_AbsPath(t *testing.T) {
	root := t.TempDir()
	scanner := newTestScanner(t, root)
	assert.Equal(t, filepath.Join(root, "daily", "today.md"), scanner.AbsPath("daily/today.md"))
}
