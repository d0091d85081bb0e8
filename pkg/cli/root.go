package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/mockan/pkg/cli/internal/output"
	"github.com/getmockd/mockan/pkg/cliconfig"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	settingsFile string
	jsonOutput   bool
	noColor      bool
}

// NewRootCmd builds the mockan command tree. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "mockan",
		Short: "mockan serves canned JSON responses with configurable latency",
		Long: `mockan reads an OpenAPI document or a service map, loads the referenced
response files and answers every request whose path matches a route with the
route's JSON body after the route's delay. Other paths get a JSON 404.

Settings can be provided via flags, MOCKAN_* environment variables, or a
.mockan.yaml settings file in the working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true, // We handle errors in Execute()
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if g.noColor {
				output.DisableColor()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, g)
		},
	}
	root.PersistentFlags().StringVar(&g.settingsFile, "config", "", "Settings file (default: ./.mockan.yaml if present)")
	root.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "Output command results in JSON format")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable colored output")
	cliconfig.RegisterFlags(root.Flags())

	root.AddCommand(
		newServeCmd(g),
		newValidateCmd(g),
		newRoutesCmd(g),
		newVersionCmd(g),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes args with the given output streams and returns the exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		output.Error(stderr, err)
		return 1
	}
	return 0
}
