package gitops

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	dir := t.TempDir()
	err := Init(dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, ".git"))
	require.NoError(t, err, ".git directory should exist")
}

func TestIsRepo(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, IsRepo(dir), "empty dir should not be a repo")

	require.NoError(t, Init(dir))
	assert.True(t, IsRepo(dir), "initialized dir should be a repo")
}

func TestFindRoot(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "output_folder", "2025")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, Init(dir))

	root, ok := FindRoot(nested)
	require.True(t, ok)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCommitPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))

	outDir := filepath.Join(dir, "output_folder")
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "reconciliation.csv"), []byte("statement_id\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "untracked.txt"), []byte("skip"), 0o644))

	hash, err := CommitPaths(dir, "run abc: 1 statement", "Test Author", "test@example.com", "output_folder")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	log := exec.Command("git", "log", "--format=%s|%an <%ae>", "-1")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "run abc: 1 statement|Test Author <test@example.com>")

	files := exec.Command("git", "ls-files")
	files.Dir = dir
	out, err = files.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "output_folder/reconciliation.csv")
	assert.NotContains(t, string(out), "untracked.txt")

	// Nothing changed: no new commit.
	hash, err = CommitPaths(dir, "again", "Test Author", "test@example.com", "output_folder")
	require.NoError(t, err)
	assert.Empty(t, hash)
}
