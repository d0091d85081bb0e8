// Package logging provides structured logging configuration for mockan.
//
// This package wraps log/slog so every component logs the same way. It
// supports configurable log levels, text or JSON console output and an
// optional rotating log file.
//
// # Usage
//
//	logger, closer := logging.Open(logging.Config{
//	    Level:    logging.LevelInfo,
//	    Format:   logging.FormatText,
//	    FilePath: "/var/log/mockan.log",
//	})
//	defer closer.Close()
//
//	logger.Info("server started", "port", 8000)
//
// # Log Files
//
// When FilePath is set, records are also written as JSON to that file. The
// file is rotated by size through lumberjack; MaxSizeMB, MaxBackups and
// MaxAgeDays default to DefaultMaxSizeMB, DefaultMaxBackups and
// DefaultMaxAgeDays.
//
// # Integration
//
// Components accept a *slog.Logger through an option. If no logger is
// provided they use logging.Nop().
package logging
