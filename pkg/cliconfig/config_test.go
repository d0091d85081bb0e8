package cliconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeSettings(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, SettingsFileName+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load(LoadOptions{Flags: newFlags(t), SearchPaths: []string{t.TempDir()}})
	require.NoError(t, err)

	assert.Equal(t, DefaultSpecFile, s.Spec)
	assert.Equal(t, "auto", s.Format)
	assert.Equal(t, DefaultHost, s.Host)
	assert.Zero(t, s.Port)
	assert.Zero(t, s.AdminPort)
	assert.Equal(t, DefaultWriteTimeout, s.WriteTimeout)
	assert.Equal(t, "info", s.LogLevel)
	assert.Empty(t, s.SettingsFile)
	for _, k := range Keys {
		assert.Equal(t, SourceDefault, s.Sources[k], k)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, "port: 5000\nlog-level: debug\nwrite-timeout: 90s\nspec: from-file.yaml\n")
	t.Setenv("MOCKAN_PORT", "6000")
	t.Setenv("MOCKAN_WRITE_TIMEOUT", "45s")

	s, err := Load(LoadOptions{
		Flags:       newFlags(t, "--spec", "from-flag.yaml"),
		SearchPaths: []string{dir},
	})
	require.NoError(t, err)

	assert.Equal(t, "from-flag.yaml", s.Spec)
	assert.Equal(t, SourceFlag, s.Sources["spec"])

	assert.Equal(t, 6000, s.Port)
	assert.Equal(t, SourceEnv, s.Sources["port"])

	assert.Equal(t, 45*time.Second, s.WriteTimeout)
	assert.Equal(t, SourceEnv, s.Sources["write-timeout"])

	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, SourceFile, s.Sources["log-level"])

	assert.Equal(t, SourceDefault, s.Sources["host"])
	assert.Equal(t, filepath.Join(dir, SettingsFileName+".yaml"), s.SettingsFile)
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	t.Setenv("MOCKAN_PORT", "6000")

	s, err := Load(LoadOptions{Flags: newFlags(t, "-p", "7000"), SearchPaths: []string{t.TempDir()}})
	require.NoError(t, err)
	assert.Equal(t, 7000, s.Port)
	assert.Equal(t, SourceFlag, s.Sources["port"])
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := writeSettings(t, t.TempDir(), "strict: true\nadmin-port: 4291\n")

	s, err := Load(LoadOptions{Flags: newFlags(t), File: path})
	require.NoError(t, err)
	assert.True(t, s.Strict)
	assert.Equal(t, 4291, s.AdminPort)
	assert.Equal(t, path, s.SettingsFile)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(LoadOptions{Flags: newFlags(t), File: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)

	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, cerr.Error(), "cannot read settings file")
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeSettings(t, t.TempDir(), "port: [1, 2\n")

	_, err := Load(LoadOptions{Flags: newFlags(t), File: path})
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestLoad_InvalidValue(t *testing.T) {
	_, err := Load(LoadOptions{Flags: newFlags(t, "--log-format", "xml"), SearchPaths: []string{t.TempDir()}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log-format must be one of [text json]")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(s *Settings)
		wantErr string
	}{
		{"valid defaults", func(*Settings) {}, ""},
		{"valid custom ports", func(s *Settings) { s.Port = 8080; s.AdminPort = 8090 }, ""},
		{"port too high", func(s *Settings) { s.Port = 70000 }, "port must be <= 65535, got 70000"},
		{"port negative", func(s *Settings) { s.Port = -1 }, "port must be >= 0, got -1"},
		{"admin port too high", func(s *Settings) { s.AdminPort = 65536 }, "admin-port must be <= 65535"},
		{"same ports", func(s *Settings) { s.Port = 4280; s.AdminPort = 4280 }, "admin-port 4280 must differ from port"},
		{"empty spec", func(s *Settings) { s.Spec = "" }, "spec is required"},
		{"bad format", func(s *Settings) { s.Format = "wsdl" }, `format must be one of`},
		{"bad level", func(s *Settings) { s.LogLevel = "trace" }, `log-level must be one of`},
		{"warning level", func(s *Settings) { s.LogLevel = "warning" }, ""},
		{"localhost", func(s *Settings) { s.Host = "localhost" }, ""},
		{"ipv6 host", func(s *Settings) { s.Host = "::1" }, ""},
		{"bad host", func(s *Settings) { s.Host = "not a host" }, "host"},
		{"negative timeout", func(s *Settings) { s.WriteTimeout = -time.Second }, "write-timeout"},
		{"negative log entries", func(s *Settings) { s.MaxLogEntries = -5 }, "max-log-entries must be >= 0, got -5"},
		{"recording disabled", func(s *Settings) { s.MaxLogEntries = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewDefault()
			tt.modify(s)
			err := Validate(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvVar(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "MOCKAN_PORT", EnvVar("port"))
	assert.Equal(t, "MOCKAN_ADMIN_PORT", EnvVar("admin-port"))
	assert.Equal(t, "MOCKAN_LOG_LEVEL", EnvVar("log-level"))
}

func TestSettingKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "port", settingKey("Port"))
	assert.Equal(t, "admin-port", settingKey("AdminPort"))
	assert.Equal(t, "load-concurrency", settingKey("LoadConcurrency"))
}
