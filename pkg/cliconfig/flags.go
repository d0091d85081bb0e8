package cliconfig

import (
	"github.com/spf13/pflag"
)

// RegisterFlags defines every settings flag on fs. Flag names match the
// settings keys so Load can bind them directly.
func RegisterFlags(fs *pflag.FlagSet) {
	RegisterSpecFlags(fs)
	RegisterServerFlags(fs)
	RegisterLogFlags(fs)
}

// RegisterSpecFlags defines the flags that select and load a specification.
func RegisterSpecFlags(fs *pflag.FlagSet) {
	d := NewDefault()
	fs.StringP("spec", "s", d.Spec, "Specification file (OpenAPI or service map)")
	fs.StringP("format", "f", d.Format, "Specification format: auto, openapi or servicemap")
	fs.Bool("strict", d.Strict, "Reject duplicate route paths instead of keeping the last one")
	fs.Int("load-concurrency", d.LoadConcurrency, "Concurrent response file reads (0 means one per CPU)")
}

// RegisterServerFlags defines the listener flags.
func RegisterServerFlags(fs *pflag.FlagSet) {
	d := NewDefault()
	fs.String("host", d.Host, "Interface to bind the listeners to")
	fs.IntP("port", "p", d.Port, "Mock port (overrides the port in the specification)")
	fs.Int("admin-port", d.AdminPort, "Admin port for health, routes, metrics and request history (0 disables)")
	fs.Duration("read-timeout", d.ReadTimeout, "HTTP read timeout")
	fs.Duration("write-timeout", d.WriteTimeout, "HTTP write timeout (must exceed the longest delay)")
	fs.Duration("shutdown-timeout", d.ShutdownTimeout, "Graceful shutdown timeout")
	fs.Int("max-log-entries", d.MaxLogEntries, "Requests kept for the admin /requests endpoint (0 disables)")
}

// RegisterLogFlags defines the logging flags.
func RegisterLogFlags(fs *pflag.FlagSet) {
	d := NewDefault()
	fs.String("log-level", d.LogLevel, "Log level: debug, info, warn or error")
	fs.String("log-format", d.LogFormat, "Log format: text or json")
	fs.String("log-file", d.LogFile, "Also write JSON logs to this file, rotated by size")
}
