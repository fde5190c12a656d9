package shell

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testWorkspace(t *testing.T) *Workspace {
	t.Helper()
	return NewWorkspace(t.TempDir(), zap.NewNop())
}

func TestReadFileRanges(t *testing.T) {
	ws := testWorkspace(t)
	require.NoError(t, ws.WriteFile("f.txt", "one\ntwo\nthree\nfour\nfive\n"))

	full, err := ws.ReadFile("f.txt", ReadOptions{LineNumbers: true})
	require.NoError(t, err)
	assert.Equal(t, "1 | one\n2 | two\n3 | three\n4 | four\n5 | five\n", full)

	mid, err := ws.ReadFile("f.txt", ReadOptions{From: 2, Until: 3})
	require.NoError(t, err)
	assert.Equal(t, "two\nthree\n", mid)

	tail, err := ws.ReadFile("f.txt", ReadOptions{From: -2})
	require.NoError(t, err)
	assert.Equal(t, "four\nfive\n", tail)
}

func TestReadFileLimit(t *testing.T) {
	ws := testWorkspace(t)
	require.NoError(t, ws.WriteFile("f.txt", "a\nb\nc\nd\n"))

	out, err := ws.ReadFile("f.txt", ReadOptions{Limit: 2})
	require.NoError(t, err)
	assert.Contains(t, out, "a\nb\n")
	assert.Contains(t, out, "2 more lines")
	assert.NotContains(t, out, "\nc\n")

	unlimited, err := ws.ReadFile("f.txt", ReadOptions{Limit: -1})
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\nd\n", unlimited)
}

func TestReadFileMissing(t *testing.T) {
	ws := testWorkspace(t)
	_, err := ws.ReadFile("nope.txt", ReadOptions{})
	assert.Error(t, err)
}

func TestWriteFileCreatesParents(t *testing.T) {
	ws := testWorkspace(t)
	require.NoError(t, ws.WriteFile("a/b/c.txt", "x"))
	assert.True(t, ws.FileExists("a/b/c.txt"))

	data, err := os.ReadFile(filepath.Join(ws.Root(), "a/b/c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestFindPaths(t *testing.T) {
	ws := testWorkspace(t)
	require.NoError(t, ws.WriteFile("main.go", ""))
	require.NoError(t, ws.WriteFile("pkg/util.go", ""))
	require.NoError(t, ws.WriteFile("pkg/util_test.go", ""))
	require.NoError(t, ws.WriteFile("README.md", ""))
	require.NoError(t, ws.WriteFile(".hidden/secret.go", ""))

	goFiles, err := ws.FindPaths(".", FindOptions{Patterns: []string{"*.go"}, Type: "f"})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "pkg/util.go", "pkg/util_test.go"}, goFiles)

	dirs, err := ws.FindPaths(".", FindOptions{Type: "d"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg"}, dirs)

	deep, err := ws.FindPaths(".", FindOptions{Patterns: []string{"pkg/**/*.go"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/util.go", "pkg/util_test.go"}, deep)
}

func TestGrep(t *testing.T) {
	ws := testWorkspace(t)
	require.NoError(t, ws.WriteFile("a.txt", "alpha\nbeta\ngamma\n"))
	require.NoError(t, ws.WriteFile("b.txt", "BETA\n"))

	matches, err := ws.Grep(context.Background(), "beta", ".", GrepOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a.txt", matches[0].Path)
	assert.Equal(t, 2, matches[0].Line)

	ci, err := ws.Grep(context.Background(), "beta", ".", GrepOptions{IgnoreCase: true})
	require.NoError(t, err)
	assert.Len(t, ci, 2)
}

func TestGrepContext(t *testing.T) {
	ws := testWorkspace(t)
	require.NoError(t, ws.WriteFile("a.txt", "one\ntwo\nthree\nfour\n"))

	matches, err := ws.Grep(context.Background(), "three", ".", GrepOptions{ContextLines: 1})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"2-two", "3:three", "4-four"}, matches[0].Context)
}

func TestGrepBadPattern(t *testing.T) {
	ws := testWorkspace(t)
	_, err := ws.Grep(context.Background(), "(", ".", GrepOptions{})
	assert.Error(t, err)
}

func TestExec(t *testing.T) {
	ws := testWorkspace(t)
	require.NoError(t, ws.WriteFile("f.txt", "content"))

	res, err := ws.Exec(context.Background(), "cat f.txt", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "content", res.Stdout)
}

func TestExecNonZeroExit(t *testing.T) {
	ws := testWorkspace(t)
	res, err := ws.Exec(context.Background(), "exit 3", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestExecTimeout(t *testing.T) {
	ws := testWorkspace(t)
	res, err := ws.Exec(context.Background(), "sleep 5", 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
}
