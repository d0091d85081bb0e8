package cliconfig

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultSpecFile is the specification file used when none is given.
const DefaultSpecFile = "mockan.yaml"

// DefaultHost is the default bind address of the mock listener.
const DefaultHost = "0.0.0.0"

// DefaultPort is the mock port used when neither the flags nor the spec
// provide one.
const DefaultPort = 4280

// DefaultAdminPort is the suggested admin port. The admin listener is
// disabled unless a port is set.
const DefaultAdminPort = 4290

// DefaultReadTimeout is the default read timeout.
const DefaultReadTimeout = 30 * time.Second

// DefaultWriteTimeout is the default write timeout. It includes the
// configured delay.
const DefaultWriteTimeout = 2 * time.Minute

// DefaultShutdownTimeout is the default graceful shutdown timeout.
const DefaultShutdownTimeout = 10 * time.Second

// DefaultMaxLogEntries is the default size of the request history.
const DefaultMaxLogEntries = 1000

// EnvPrefix is the prefix of environment variables read by the CLI.
const EnvPrefix = "MOCKAN"

// SettingsFileName is the base name of the optional settings file.
const SettingsFileName = ".mockan"

// NewDefault returns Settings holding the default values.
func NewDefault() *Settings {
	s := &Settings{
		Spec:            DefaultSpecFile,
		Format:          "auto",
		Host:            DefaultHost,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		MaxLogEntries:   DefaultMaxLogEntries,
		LogLevel:        "info",
		LogFormat:       "text",
		Sources:         make(map[string]string, len(Keys)),
	}
	for _, k := range Keys {
		s.Sources[k] = SourceDefault
	}
	return s
}

// SetDefaults registers the default values with v.
func SetDefaults(v *viper.Viper) {
	d := NewDefault()
	v.SetDefault("spec", d.Spec)
	v.SetDefault("format", d.Format)
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("admin-port", d.AdminPort)
	v.SetDefault("strict", d.Strict)
	v.SetDefault("read-timeout", d.ReadTimeout)
	v.SetDefault("write-timeout", d.WriteTimeout)
	v.SetDefault("shutdown-timeout", d.ShutdownTimeout)
	v.SetDefault("max-log-entries", d.MaxLogEntries)
	v.SetDefault("load-concurrency", d.LoadConcurrency)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("log-file", d.LogFile)
}
