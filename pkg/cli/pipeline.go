package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/mockan/pkg/cliconfig"
	"github.com/getmockd/mockan/pkg/config"
	"github.com/getmockd/mockan/pkg/engine"
	"github.com/getmockd/mockan/pkg/logging"
	"github.com/getmockd/mockan/pkg/store"
)

// loadSettings resolves the command's settings from flags, environment and
// settings file.
func loadSettings(cmd *cobra.Command, g *globalFlags) (*cliconfig.Settings, error) {
	file := g.settingsFile
	if file == "" {
		file = os.Getenv(cliconfig.EnvVar("config"))
	}
	return cliconfig.Load(cliconfig.LoadOptions{Flags: cmd.Flags(), File: file})
}

// newLogger opens the logger described by s. Logs go to stderr so command
// output on stdout stays parseable.
func newLogger(s *cliconfig.Settings, stderr io.Writer) (*slog.Logger, io.Closer) {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(s.LogLevel)
	cfg.Format = logging.ParseFormat(s.LogFormat)
	cfg.Output = stderr
	cfg.FilePath = s.LogFile
	return logging.Open(cfg)
}

// loaded is everything built from a specification at startup.
type loaded struct {
	spec       *config.Spec
	payloads   *store.Store
	dispatcher *engine.Dispatcher
}

type stage string

const (
	stageSpec      stage = "spec"
	stageResponses stage = "responses"
	stageRoutes    stage = "routes"
)

// stageError records which startup stage failed.
type stageError struct {
	stage stage
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// load runs the startup pipeline: spec, responses, route table.
func load(ctx context.Context, s *cliconfig.Settings, log *slog.Logger) (*loaded, error) {
	spec, err := config.Load(ctx, s.Spec, config.ParseFormat(s.Format), config.WithLogger(log))
	if err != nil {
		return nil, &stageError{stage: stageSpec, err: err}
	}

	payloads, err := store.Load(ctx, spec.ResponseSources(),
		store.WithLogger(log),
		store.WithConcurrency(s.LoadConcurrency),
	)
	if err != nil {
		return &loaded{spec: spec}, &stageError{stage: stageResponses, err: err}
	}

	policy := engine.DuplicateLastWins
	if s.Strict {
		policy = engine.DuplicateReject
	}
	d, err := engine.New(spec, payloads,
		engine.WithDuplicatePolicy(policy),
		engine.WithBuildLogger(log),
	)
	if err != nil {
		return &loaded{spec: spec, payloads: payloads}, &stageError{stage: stageRoutes, err: err}
	}
	return &loaded{spec: spec, payloads: payloads, dispatcher: d}, nil
}

// resolvePort picks the mock port: an explicit setting, then the spec's
// default port, then cliconfig.DefaultPort.
func resolvePort(s *cliconfig.Settings, d *engine.Dispatcher, log *slog.Logger) uint16 {
	if s.Port > 0 {
		return uint16(s.Port)
	}
	if port, ok := d.DefaultPort(); ok {
		return port
	}
	log.Info("no port in settings or specification, using default", "port", cliconfig.DefaultPort)
	return cliconfig.DefaultPort
}
