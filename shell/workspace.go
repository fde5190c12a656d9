package shell

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// ExecResult holds the outcome of a shell command run.
type ExecResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	DurationMs int64  `json:"duration_ms"`
}

// Output returns combined stdout and stderr.
func (r ExecResult) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// sensitiveEnvPatterns are case-insensitive suffixes for environment
// variables excluded from subprocess environments.
var sensitiveEnvPatterns = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// safeEnvVars are always included regardless of filtering.
var safeEnvVars = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "SHELL": true,
	"LANG": true, "TERM": true, "TMPDIR": true,
	"GOPATH": true, "GOROOT": true,
	"XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true, "XDG_CACHE_HOME": true,
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, pattern := range sensitiveEnvPatterns {
		if strings.HasSuffix(upper, pattern) {
			return true
		}
	}
	return false
}

func filterEnvironment() []string {
	var filtered []string
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if safeEnvVars[parts[0]] || !isSensitiveEnvVar(parts[0]) {
			filtered = append(filtered, env)
		}
	}
	return filtered
}

// Workspace is the directory commands operate in. Relative paths resolve
// against the root; shell commands run with the root as working directory.
type Workspace struct {
	root   string
	logger *zap.Logger
}

// NewWorkspace creates a workspace rooted at dir, defaulting to the
// current directory when dir is empty.
func NewWorkspace(dir string, logger *zap.Logger) *Workspace {
	if dir == "" {
		dir, _ = os.Getwd()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{root: dir, logger: logger}
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string { return w.root }

// Init creates the workspace root if it does not exist.
func (w *Workspace) Init() error {
	return os.MkdirAll(w.root, 0755)
}

func (w *Workspace) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(w.root, path)
}

// ReadOptions selects a line range of a file. From and Until are 1-based
// and inclusive; negative values count from the end of the file. Limit
// caps the number of lines returned; -1 means unlimited.
type ReadOptions struct {
	From        int
	Until       int
	Limit       int
	LineNumbers bool
}

// ReadFile reads a file as a line range. The returned string carries
// line numbers unless disabled, and a marker when lines were elided by
// the limit.
func (w *Workspace) ReadFile(path string, opts ReadOptions) (string, error) {
	data, err := os.ReadFile(w.resolve(path))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	// Drop the phantom line a trailing newline produces.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	total := len(lines)

	clamp := func(v int) int {
		if v < 0 {
			v = total + v + 1 // -1 is the last line
		}
		if v < 1 {
			v = 1
		}
		if v > total {
			v = total
		}
		return v
	}

	start, end := 1, total
	if opts.From != 0 {
		start = clamp(opts.From)
	}
	if opts.Until != 0 {
		end = clamp(opts.Until)
	}
	if start > end || total == 0 {
		return "", nil
	}

	limit := opts.Limit
	if limit == 0 {
		limit = DefaultReadLimit
	}
	truncated := 0
	if limit > 0 && end-start+1 > limit {
		truncated = end - start + 1 - limit
		end = start + limit - 1
	}

	var sb strings.Builder
	for i := start; i <= end; i++ {
		if opts.LineNumbers {
			fmt.Fprintf(&sb, "%d | %s\n", i, lines[i-1])
		} else {
			sb.WriteString(lines[i-1])
			sb.WriteByte('\n')
		}
	}
	if truncated > 0 {
		fmt.Fprintf(&sb, "[... %d more lines. Re-run with -f %d to continue, or -l -1 for the whole range.]\n", truncated, end+1)
	}
	return sb.String(), nil
}

// DefaultReadLimit is the line cap applied when a read does not specify one.
const DefaultReadLimit = 200

// WriteFile writes content to a file, creating parent directories.
func (w *Workspace) WriteFile(path string, content string) error {
	resolved := w.resolve(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// FileExists reports whether path exists in the workspace.
func (w *Workspace) FileExists(path string) bool {
	_, err := os.Stat(w.resolve(path))
	return err == nil
}

// Exec runs a shell command in the workspace with a timeout. The command
// runs in its own process group so a timeout kills the whole tree.
func (w *Workspace) Exec(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shellPath := "/bin/bash"
	shellArg := "-c"
	if runtime.GOOS == "windows" {
		shellPath = "cmd.exe"
		shellArg = "/c"
	}

	cmd := exec.CommandContext(ctx, shellPath, shellArg, command)
	cmd.Dir = w.root
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = filterEnvironment()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &ExecResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: duration.Milliseconds(),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
			result.ExitCode = -1
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
		} else if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("exec: %w", err)
		}
	}

	w.logger.Debug("command finished",
		zap.Int("exit_code", result.ExitCode),
		zap.Bool("timed_out", result.TimedOut),
		zap.Int64("duration_ms", result.DurationMs))
	return result, nil
}

// FindOptions filters a path search.
type FindOptions struct {
	Patterns   []string // doublestar patterns matched against relative paths
	Type       string   // "f" files only, "d" directories only, "" both
	MaxResults int
}

// FindPaths walks the tree under path and returns workspace-relative
// paths matching the options, sorted. Hidden directories are skipped.
func (w *Workspace) FindPaths(path string, opts FindOptions) ([]string, error) {
	base := w.resolve(path)
	max := opts.MaxResults
	if max <= 0 {
		max = 1000
	}

	var matches []string
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		name := d.Name()
		if d.IsDir() && name != "." && strings.HasPrefix(name, ".") && p != base {
			return filepath.SkipDir
		}
		if p == base {
			return nil
		}
		if opts.Type == "f" && d.IsDir() {
			return nil
		}
		if opts.Type == "d" && !d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(base, p)
		if err != nil {
			return nil
		}
		if len(opts.Patterns) > 0 {
			matched := false
			for _, pat := range opts.Patterns {
				ok, err := doublestar.Match(pat, filepath.ToSlash(rel))
				if err != nil {
					return fmt.Errorf("bad pattern %q: %w", pat, err)
				}
				if ok || matchBasename(pat, name) {
					matched = true
					break
				}
			}
			if !matched {
				return nil
			}
		}

		matches = append(matches, rel)
		if len(matches) >= max {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// matchBasename lets simple patterns like *.go match at any depth.
func matchBasename(pattern, name string) bool {
	if strings.ContainsRune(pattern, '/') {
		return false
	}
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

// GrepOptions filters a text search.
type GrepOptions struct {
	FilePatterns []string
	IgnoreCase   bool
	ContextLines int
	MaxResults   int
}

// GrepMatch is one matching line with optional surrounding context.
type GrepMatch struct {
	Path    string
	Line    int
	Text    string
	Context []string // rendered context block incl. the match, when requested
}

// Grep searches file contents under path for a regular expression.
// Binary files and hidden directories are skipped.
func (w *Workspace) Grep(ctx context.Context, pattern, path string, opts GrepOptions) ([]GrepMatch, error) {
	if opts.IgnoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern: %w", err)
	}

	max := opts.MaxResults
	if max <= 0 {
		max = 500
	}

	files, err := w.FindPaths(path, FindOptions{Patterns: opts.FilePatterns, Type: "f", MaxResults: 10000})
	if err != nil {
		return nil, err
	}

	base := w.resolve(path)
	var matches []GrepMatch
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return matches, err
		}
		fileMatches, err := grepFile(re, filepath.Join(base, rel), rel, opts.ContextLines, max-len(matches))
		if err != nil {
			continue
		}
		matches = append(matches, fileMatches...)
		if len(matches) >= max {
			break
		}
	}
	return matches, nil
}

func grepFile(re *regexp.Regexp, absPath, relPath string, contextLines, budget int) ([]GrepMatch, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.ContainsRune(line, 0) {
			return nil, nil // binary
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var matches []GrepMatch
	for i, line := range lines {
		if !re.MatchString(line) {
			continue
		}
		m := GrepMatch{Path: relPath, Line: i + 1, Text: line}
		if contextLines > 0 {
			lo := i - contextLines
			if lo < 0 {
				lo = 0
			}
			hi := i + contextLines
			if hi >= len(lines) {
				hi = len(lines) - 1
			}
			for j := lo; j <= hi; j++ {
				sep := "-"
				if j == i {
					sep = ":"
				}
				m.Context = append(m.Context, fmt.Sprintf("%d%s%s", j+1, sep, lines[j]))
			}
		}
		matches = append(matches, m)
		if len(matches) >= budget {
			break
		}
	}
	return matches, nil
}
