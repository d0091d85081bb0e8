// mockan CLI - serves canned JSON responses described by an OpenAPI
// document or a service map.
package main

import (
	"os"

	"github.com/getmockd/mockan/pkg/cli"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate
	return cli.Execute()
}
