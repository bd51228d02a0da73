package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand is a test helper that runs the CLI with the given args and
// captures both stdout and stderr.
func executeCommand(args ...string) (stdout, stderr string, err error) {
	cmd := NewRootCommand()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()

	return outBuf.String(), errBuf.String(), err
}

// requireExitCode asserts that err is an *ExitError with the given code.
func requireExitCode(t *testing.T, err error, code int) *ExitError {
	t.Helper()

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, code, exitErr.Code)

	return exitErr
}

// ---------------------------------------------------------------------------
// Help output
// ---------------------------------------------------------------------------

func TestRootCommand_Help(t *testing.T) {
	stdout, _, err := executeCommand("--help")
	require.NoError(t, err)

	for _, sub := range []string{"check", "run", "deps", "upgrade", "version", "completion"} {
		assert.Contains(t, stdout, sub, "help should mention %q subcommand", sub)
	}

	for _, flag := range []string{"--config", "--log-level", "--log-format", "--no-color", "--quiet", "--deno-path"} {
		assert.Contains(t, stdout, flag, "help should mention %q flag", flag)
	}
}

func TestCheckCommand_HelpListsFlags(t *testing.T) {
	stdout, _, err := executeCommand("check", "--help")
	require.NoError(t, err)

	for _, flag := range []string{"--libs", "--reload", "-r", "--watch"} {
		assert.Contains(t, stdout, flag)
	}
}

func TestRunCommand_HelpListsFlags(t *testing.T) {
	stdout, _, err := executeCommand("run", "--help")
	require.NoError(t, err)

	for _, flag := range []string{"--inspect", "--no-check", "--reload", "--watch", "--addr"} {
		assert.Contains(t, stdout, flag)
	}
}

// ---------------------------------------------------------------------------
// Unknown flags → exit code 2
// ---------------------------------------------------------------------------

func TestRootCommand_UnknownFlag(t *testing.T) {
	_, _, err := executeCommand("--nonexistent")
	require.Error(t, err)
	requireExitCode(t, err, 2)
}

// ---------------------------------------------------------------------------
// SilenceErrors – cobra must not print errors itself
// ---------------------------------------------------------------------------

func TestRootCommand_SilenceErrors(t *testing.T) {
	_, stderr, err := executeCommand("--nonexistent")
	require.Error(t, err)
	assert.Empty(t, stderr, "cobra should not print errors to stderr (SilenceErrors)")
}

// ---------------------------------------------------------------------------
// Configuration errors → exit code 2
// ---------------------------------------------------------------------------

func TestRootCommand_InvalidConfig(t *testing.T) {
	_, _, err := executeCommand("--config", "/nonexistent/path.yaml", "check", "main.ts")
	require.Error(t, err)
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	_, _, err := executeCommand("--log-level", "trace", "check", "main.ts")
	require.Error(t, err)
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRootCommand_InvalidLogFormat(t *testing.T) {
	_, _, err := executeCommand("--log-format", "xml", "run", "main.ts")
	require.Error(t, err)
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestRootCommand_EmptyDenoPath(t *testing.T) {
	_, _, err := executeCommand("--deno-path", "", "run", "main.ts")
	require.Error(t, err)
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "invalid deno path")
}

// ---------------------------------------------------------------------------
// exitCode
// ---------------------------------------------------------------------------

func TestExitCode(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{"success", nil, 0, ""},
		{"silent exit code", &ExitError{Code: 3}, 3, ""},
		{"exit error with message", &ExitError{Code: 2, Err: errors.New("No entrypoint specifier given.")}, 2, "error: No entrypoint specifier given.\n"},
		{"plain error", errors.New("boom"), 1, "error: boom\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Equal(t, tt.wantCode, exitCode(tt.err, &buf))
			assert.Equal(t, tt.wantOut, buf.String())
		})
	}
}

// ---------------------------------------------------------------------------
// ExitError
// ---------------------------------------------------------------------------

func TestExitError_ErrorWithMessage(t *testing.T) {
	err := &ExitError{Code: 1, Err: assert.AnError}
	assert.Contains(t, err.Error(), assert.AnError.Error())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestExitError_ErrorWithoutMessage(t *testing.T) {
	err := &ExitError{Code: 42}
	assert.Equal(t, "exit code 42", err.Error())
	assert.Nil(t, err.Unwrap())
}
