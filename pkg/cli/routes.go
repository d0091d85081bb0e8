package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/mockan/pkg/cli/internal/output"
	"github.com/getmockd/mockan/pkg/cliconfig"
	"github.com/getmockd/mockan/pkg/engine"
	"github.com/getmockd/mockan/pkg/logging"
)

func newRoutesCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table of a specification",
		Example: `  mockan routes --spec services.yaml
  mockan routes --spec openapi.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(cmd, g)
			if err != nil {
				return err
			}
			l, err := load(cmd.Context(), s, logging.Nop())
			if err != nil {
				return err
			}

			routes := engine.RouteInfos(l.dispatcher.Routes())
			if g.jsonOutput {
				return output.JSON(cmd.OutOrStdout(), routes)
			}

			t := output.Table(cmd.OutOrStdout(), "Path", "Delay", "Source")
			for _, r := range routes {
				t.Append([]string{r.Path, formatDelay(r.DelayMs), r.Source})
			}
			t.Render()
			return nil
		},
	}
	cliconfig.RegisterSpecFlags(cmd.Flags())
	return cmd
}

func formatDelay(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return (time.Duration(ms) * time.Millisecond).String()
}
