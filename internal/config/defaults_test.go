package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// ParseCommandDefaults
// ---------------------------------------------------------------------------

func TestParseCommandDefaults_Check(t *testing.T) {
	data := []byte(`
check:
  libs: [ns, fetchevent]
  reload: true
`)

	cd, err := ParseCommandDefaults(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"ns", "fetchevent"}, cd.Check.Libs)
	assert.True(t, cd.Check.Reload)
	assert.False(t, cd.IsEmpty())
}

func TestParseCommandDefaults_Run(t *testing.T) {
	data := []byte(`
run:
  addr: "127.0.0.1:3000"
  inspect: true
  noCheck: true
`)

	cd, err := ParseCommandDefaults(data)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3000", cd.Run.Addr)
	assert.True(t, cd.Run.Inspect)
	assert.True(t, cd.Run.NoCheck)
	assert.False(t, cd.Run.Reload)
}

func TestParseCommandDefaults_Watch(t *testing.T) {
	cd, err := ParseCommandDefaults([]byte("watch:\n  debounce: 250ms\n"))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cd.DebounceInterval())
}

func TestParseCommandDefaults_Empty(t *testing.T) {
	cd, err := ParseCommandDefaults([]byte("log-level: info\ndeno-path: deno\n"))
	require.NoError(t, err)
	assert.True(t, cd.IsEmpty())
	assert.Zero(t, cd.DebounceInterval())
}

func TestParseCommandDefaults_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown lib", "check:\n  libs: [dom]\n", "check.libs[0]: unknown library"},
		{"bad addr", "run:\n  addr: localhost\n", "run.addr: invalid listen address"},
		{"bad debounce", "watch:\n  debounce: soon\n", "watch.debounce"},
		{"negative debounce", "watch:\n  debounce: -1s\n", "must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCommandDefaults([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseCommandDefaults_Malformed(t *testing.T) {
	_, err := ParseCommandDefaults([]byte("check: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing command defaults")
}

// ---------------------------------------------------------------------------
// LoadCommandDefaults
// ---------------------------------------------------------------------------

func TestLoadCommandDefaults_NoFile(t *testing.T) {
	cd, err := LoadCommandDefaults("")
	require.NoError(t, err)
	assert.True(t, cd.IsEmpty())
}

func TestLoadCommandDefaults_FromFile(t *testing.T) {
	p := writeTempConfig(t, "log-level: debug\nrun:\n  addr: \":9000\"\n")

	cd, err := LoadCommandDefaults(p)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cd.Run.Addr)
}

func TestLoadCommandDefaults_MissingFile(t *testing.T) {
	_, err := LoadCommandDefaults("/tmp/nonexistent-deployctl-defaults-12345.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}
