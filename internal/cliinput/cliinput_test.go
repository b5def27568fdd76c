package cliinput

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathsExpandsGlobs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("c"), 0o644))

	resolved, err := ResolvePaths([]string{filepath.Join(dir, "*.md")})
	require.NoError(t, err)
	require.Len(t, resolved, 2)
}

func TestResolvePathsKeepsLiteralMissingPath(t *testing.T) {
	resolved, err := ResolvePaths([]string{"/nonexistent/literal.md"})
	require.NoError(t, err)
	require.Equal(t, []string{"/nonexistent/literal.md"}, resolved)
}

func TestResolvePathsDropsGlobWithNoMatches(t *testing.T) {
	dir := t.TempDir()
	resolved, err := ResolvePaths([]string{filepath.Join(dir, "*.nomatch")})
	require.NoError(t, err)
	require.Empty(t, resolved)
}

func TestOpenSourcesSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "one.md")
	require.NoError(t, os.WriteFile(filePath, []byte("content"), 0o644))
	subdir := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(subdir, 0o755))

	sources, err := OpenSources([]string{filePath, subdir})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	require.Equal(t, filePath, sources[0].Name)
	require.NoError(t, sources[0].Reader.Close())
}

func TestBannerFormat(t *testing.T) {
	require.Equal(t, "\n------\n# foo.md\n\n------\n", Banner("foo.md"))
}
