package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newTestRootCmd creates a cobra.Command with the same persistent flags as the
// real root command so that Load can bind them during tests.
func newTestRootCmd() *cobra.Command {
	cmd := &cobra.Command{}
	pf := cmd.PersistentFlags()
	pf.String("config", "", "")
	pf.String("log-level", "info", "")
	pf.String("log-format", "text", "")
	pf.Bool("no-color", false, "")
	pf.BoolP("quiet", "q", false, "")
	pf.String("deno-path", "deno", "")

	return cmd
}

// writeTempConfig writes a YAML string to a temporary file and returns the path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))

	return p
}

// ---------------------------------------------------------------------------
// Default
// ---------------------------------------------------------------------------

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, LogLevelInfo, cfg.LogLevel)
	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.False(t, cfg.NoColor)
	assert.False(t, cfg.Quiet)
	assert.Equal(t, "deno", cfg.DenoPath)
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestValidate_ValidValues(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		cfg := Default()
		cfg.LogLevel = lvl
		assert.NoError(t, cfg.Validate(), "level=%s", lvl)
	}

	for _, fmt := range []string{"text", "json"} {
		cfg := Default()
		cfg.LogFormat = fmt
		assert.NoError(t, cfg.Validate(), "format=%s", fmt)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	assert.ErrorContains(t, cfg.Validate(), "invalid log level")
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	assert.ErrorContains(t, cfg.Validate(), "invalid log format")
}

func TestValidate_EmptyDenoPath(t *testing.T) {
	cfg := Default()
	cfg.DenoPath = "  "
	assert.ErrorIs(t, cfg.Validate(), errEmptyDenoPath)
}

// ---------------------------------------------------------------------------
// EffectiveLogLevel
// ---------------------------------------------------------------------------

func TestEffectiveLogLevel_Normal(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	assert.Equal(t, "debug", cfg.EffectiveLogLevel())
}

func TestEffectiveLogLevel_QuietOverride(t *testing.T) {
	cfg := &Config{LogLevel: "debug", Quiet: true}
	assert.Equal(t, "error", cfg.EffectiveLogLevel())
}

// ---------------------------------------------------------------------------
// Load - defaults only
// ---------------------------------------------------------------------------

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, cfg.LogLevel)
	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.False(t, cfg.NoColor)
	assert.False(t, cfg.Quiet)
}

// ---------------------------------------------------------------------------
// Load - environment variables
// ---------------------------------------------------------------------------

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("DEPLOYCTL_LOG_LEVEL", "debug")

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_DenoPathFromEnv(t *testing.T) {
	t.Setenv("DEPLOYCTL_DENO_PATH", "/opt/deno/bin/deno")

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "/opt/deno/bin/deno", cfg.DenoPath)
}

func TestLoad_EnvBooleans(t *testing.T) {
	t.Setenv("DEPLOYCTL_NO_COLOR", "true")
	t.Setenv("DEPLOYCTL_QUIET", "true")

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.True(t, cfg.NoColor)
	assert.True(t, cfg.Quiet)
}

// ---------------------------------------------------------------------------
// Load - config file
// ---------------------------------------------------------------------------

func TestLoad_ConfigFile(t *testing.T) {
	p := writeTempConfig(t, "log-level: warn\nlog-format: json\n")

	cfg, err := Load(nil, p)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_ConfigFileRecorded(t *testing.T) {
	p := writeTempConfig(t, "deno-path: /usr/local/bin/deno\n")

	cfg, err := Load(nil, p)
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/deno", cfg.DenoPath)
	assert.Equal(t, p, cfg.ConfigFile)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(nil, "/tmp/nonexistent-deployctl-cfg-12345.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_MalformedFile(t *testing.T) {
	p := writeTempConfig(t, ": invalid yaml :")

	_, err := Load(nil, p)
	require.Error(t, err)
}

func TestLoad_MissingAutoDiscoverFile(t *testing.T) {
	// When no explicit file is given and auto-discover finds nothing, Load
	// should succeed with defaults.
	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, cfg.LogLevel)
}

// ---------------------------------------------------------------------------
// Load - precedence of deno-path
// ---------------------------------------------------------------------------

func TestLoad_DenoPathPrecedence(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  string
		flag string
		want string
	}{
		{name: "default", want: "deno"},
		{name: "file", file: "/opt/deno/bin/deno", want: "/opt/deno/bin/deno"},
		{name: "env over file", file: "/opt/deno/bin/deno", env: "/usr/bin/deno", want: "/usr/bin/deno"},
		{name: "flag over env", env: "/usr/bin/deno", flag: "./deno", want: "./deno"},
		{name: "flag over all", file: "/opt/deno/bin/deno", env: "/usr/bin/deno", flag: "./deno", want: "./deno"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv("DEPLOYCTL_DENO_PATH", tt.env)
			}

			var file string
			if tt.file != "" {
				file = writeTempConfig(t, "deno-path: "+tt.file+"\n")
			}

			cmd := newTestRootCmd()
			if tt.flag != "" {
				require.NoError(t, cmd.PersistentFlags().Set("deno-path", tt.flag))
			}

			cfg, err := Load(cmd, file)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.DenoPath)
		})
	}
}

func TestLoad_LogLevelFlagOverridesEnv(t *testing.T) {
	t.Setenv("DEPLOYCTL_LOG_LEVEL", "debug")

	cmd := newTestRootCmd()
	require.NoError(t, cmd.PersistentFlags().Set("log-level", "error"))

	cfg, err := Load(cmd, "")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

// ---------------------------------------------------------------------------
// Load - auto-discovery
// ---------------------------------------------------------------------------

func TestLoad_DiscoversFileWithCommandSections(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	content := `deno-path: /opt/deno/bin/deno
quiet: true
check:
  libs: [ns, fetchevent]
run:
  addr: ":9000"
watch:
  debounce: 250ms
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".deployctl.yaml"), []byte(content), 0o600))

	cfg, err := Load(newTestRootCmd(), "")
	require.NoError(t, err)
	assert.Equal(t, "/opt/deno/bin/deno", cfg.DenoPath)
	assert.Equal(t, LogLevelError, cfg.EffectiveLogLevel())
	require.NotEmpty(t, cfg.ConfigFile)
	assert.Equal(t, ".deployctl.yaml", filepath.Base(cfg.ConfigFile))

	cd, err := LoadCommandDefaults(cfg.ConfigFile)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cd.Run.Addr)
}

// ---------------------------------------------------------------------------
// Load - validation on loaded values
// ---------------------------------------------------------------------------

func TestLoad_InvalidLogLevelFromEnv(t *testing.T) {
	t.Setenv("DEPLOYCTL_LOG_LEVEL", "verbose")

	_, err := Load(nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestLoad_EmptyDenoPathFromEnv(t *testing.T) {
	t.Setenv("DEPLOYCTL_DENO_PATH", " ")

	_, err := Load(nil, "")
	require.ErrorIs(t, err, errEmptyDenoPath)
}

func TestLoad_InvalidLogFormatFromFile(t *testing.T) {
	p := writeTempConfig(t, "log-format: xml\n")

	_, err := Load(nil, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

func TestContext_RoundTrip(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	ctx := NewContext(context.Background(), cfg)
	got := FromContext(ctx)
	assert.Equal(t, cfg, got)
}

func TestConfigFileContext_RoundTrip(t *testing.T) {
	ctx := NewContextWithConfigFile(context.Background(), "/etc/deployctl.yaml")
	assert.Equal(t, "/etc/deployctl.yaml", ConfigFileFromContext(ctx))
	assert.Empty(t, ConfigFileFromContext(context.Background()))
}

func TestFromContext_FallbackToDefault(t *testing.T) {
	got := FromContext(context.Background())
	assert.Equal(t, Default(), got)
}
