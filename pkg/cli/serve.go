package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/getmockd/mockan/pkg/cli/internal/output"
	"github.com/getmockd/mockan/pkg/cliconfig"
	"github.com/getmockd/mockan/pkg/engine"
	"github.com/getmockd/mockan/pkg/requestlog"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the routes of a specification file (default command)",
		Long: `Load the specification and every response it references, then serve the
routes until interrupted. Startup fails if any file is missing or malformed.

The mock port is --port if set, else the port of the specification's single
server, else 4280.`,
		Example: `  # Serve a service map on the port it declares
  mockan serve --spec services.yaml

  # Serve an OpenAPI document on port 3000 with the admin endpoints on 4290
  mockan serve --spec openapi.yaml --port 3000 --admin-port 4290

  # Fail on duplicate paths instead of keeping the last one
  mockan serve --spec services.yaml --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, g)
		},
	}
	cliconfig.RegisterFlags(cmd.Flags())
	return cmd
}

func runServe(cmd *cobra.Command, g *globalFlags) error {
	s, err := loadSettings(cmd, g)
	if err != nil {
		return err
	}
	log, closer := newLogger(s, cmd.ErrOrStderr())
	defer closer.Close()

	if s.SettingsFile != "" {
		log.Debug("settings file loaded", "path", s.SettingsFile)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := load(ctx, s, log)
	if err != nil {
		return err
	}
	d := l.dispatcher

	if longest := d.MaxDelay(); longest >= s.WriteTimeout {
		output.Warn(cmd.ErrOrStderr(), "longest delay %s is not below --write-timeout %s; those responses will be cut off", longest, s.WriteTimeout)
	}

	port := resolvePort(s, d, log)
	opts := []engine.ServerOption{
		engine.WithLogger(log),
		engine.WithHost(s.Host),
		engine.WithAdminPort(uint16(s.AdminPort)),
		engine.WithTimeouts(s.ReadTimeout, s.WriteTimeout),
		engine.WithShutdownTimeout(s.ShutdownTimeout),
	}
	// The history is only reachable through the admin listener.
	if s.AdminPort > 0 && s.MaxLogEntries > 0 {
		opts = append(opts, engine.WithRequestLog(requestlog.NewMemory(s.MaxLogEntries)))
	}
	srv := engine.NewServer(d, port, opts...)
	if err := srv.Start(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "mockan serving %d routes from %s on http://%s\n", d.Len(), s.Spec, srv.Addr())
	if addr := srv.AdminAddr(); addr != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "admin endpoints on http://%s\n", addr)
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down", "reason", context.Cause(ctx))
	case err := <-srv.Err():
		_ = srv.Stop()
		return err
	}
	return srv.Stop()
}
