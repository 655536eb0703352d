package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CLI provides a clean interface for running commands in tests.
// It manages a temp directory and environment variables.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string
}

// NewCLI creates a new test CLI with a temp directory.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	return &CLI{
		t:   t,
		Dir: t.TempDir(),
		Env: map[string]string{"USER": "testuser"},
	}
}

// Run executes the CLI with the given args and returns stdout, stderr, and
// exit code. Args should not include "sitectl" or "--cwd" - those are
// added automatically.
func (r *CLI) Run(args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"sitectl", "--cwd", r.Dir}, args...)
	code := Run(nil, &outBuf, &errBuf, fullArgs, r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// RunWithInput is Run with input fed to the command's standard input.
func (r *CLI) RunWithInput(input string, args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"sitectl", "--cwd", r.Dir}, args...)
	code := Run(strings.NewReader(input), &outBuf, &errBuf, fullArgs, r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// MustRun executes the CLI and fails the test if the command returns non-zero.
// Returns trimmed stdout on success.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code != 0 {
		r.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustFail executes the CLI and fails the test if the command succeeds.
// Returns trimmed stderr.
func (r *CLI) MustFail(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code == 0 {
		r.t.Fatalf("command %v should have failed but succeeded\nstdout: %s", args, stdout)
	}

	return strings.TrimSpace(stderr)
}

// ConfigPath returns the path of the site configuration document.
func (r *CLI) ConfigPath() string {
	return filepath.Join(r.Dir, "config.yml")
}

// VerifyPath returns the path of the verification document.
func (r *CLI) VerifyPath() string {
	return filepath.Join(r.Dir, "verification.yml")
}

// ReadConfig returns the content of the site configuration document.
func (r *CLI) ReadConfig() string {
	r.t.Helper()

	content, err := os.ReadFile(r.ConfigPath())
	if err != nil {
		r.t.Fatalf("failed to read config document: %v", err)
	}

	return string(content)
}

// WriteConfig writes content to the site configuration document.
func (r *CLI) WriteConfig(content string) {
	r.t.Helper()

	err := os.WriteFile(r.ConfigPath(), []byte(content), 0o644)
	if err != nil {
		r.t.Fatalf("failed to write config document: %v", err)
	}
}

// WriteFile writes a file under the CLI working directory, creating parent
// directories as needed. Used to lay out tracked feature files.
func (r *CLI) WriteFile(rel, content string) {
	r.t.Helper()

	path := filepath.Join(r.Dir, rel)

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		r.t.Fatalf("failed to create dir for %s: %v", rel, err)
	}

	err = os.WriteFile(path, []byte(content), 0o644)
	if err != nil {
		r.t.Fatalf("failed to write %s: %v", rel, err)
	}
}

// AssertContains fails the test if content doesn't contain substr.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("content should contain %q\ncontent:\n%s", substr, content)
	}
}

// AssertNotContains fails the test if content contains substr.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("content should NOT contain %q\ncontent:\n%s", substr, content)
	}
}
