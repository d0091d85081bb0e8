// Package cliconfig provides settings types, defaults and loading for the
// mockan CLI.
package cliconfig

import "time"

// Settings holds the resolved settings of a mockan command.
// Values can come from several sources, in order of precedence:
//  1. Command-line flags (highest priority)
//  2. Environment variables (MOCKAN_PORT, MOCKAN_LOG_LEVEL, ...)
//  3. Settings file (.mockan.yaml in the current directory, or --config)
//  4. Default values (lowest priority)
type Settings struct {
	// Spec is the specification file to serve.
	Spec string `mapstructure:"spec" validate:"required"`

	// Format forces the specification format instead of detecting it.
	Format string `mapstructure:"format" validate:"oneof=auto openapi oas oas3 servicemap service-map services"`

	// Host is the interface the mock listener binds to.
	Host string `mapstructure:"host" validate:"omitempty,ip|hostname"`

	// Port overrides the port derived from the spec. Zero means unset.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// AdminPort enables the admin listener when non-zero.
	AdminPort int `mapstructure:"admin-port" validate:"min=0,max=65535"`

	// Strict rejects duplicate route paths instead of letting the last win.
	Strict bool `mapstructure:"strict"`

	// ReadTimeout and WriteTimeout bound request I/O. WriteTimeout must be
	// longer than the longest configured delay.
	ReadTimeout  time.Duration `mapstructure:"read-timeout" validate:"min=0"`
	WriteTimeout time.Duration `mapstructure:"write-timeout" validate:"min=0"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" validate:"min=0"`

	// MaxLogEntries caps the request history served on the admin
	// listener. Zero disables recording.
	MaxLogEntries int `mapstructure:"max-log-entries" validate:"min=0"`

	// LoadConcurrency limits concurrent response file reads. Zero means
	// one per CPU.
	LoadConcurrency int `mapstructure:"load-concurrency" validate:"min=0"`

	// Logging settings
	LogLevel  string `mapstructure:"log-level" validate:"oneof=debug info warn warning error"`
	LogFormat string `mapstructure:"log-format" validate:"oneof=text json"`
	LogFile   string `mapstructure:"log-file"`

	// SettingsFile is the settings file that was read, if any.
	SettingsFile string `mapstructure:"-"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `mapstructure:"-"`
}

// Setting sources.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// Keys lists every settings key, in flag order.
var Keys = []string{
	"spec", "format", "host", "port", "admin-port", "strict",
	"read-timeout", "write-timeout", "shutdown-timeout", "max-log-entries",
	"load-concurrency",
	"log-level", "log-format", "log-file",
}
