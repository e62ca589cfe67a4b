// reoscore is the batch quality-scoring pipeline for rheometry and
// viscosity trials.
package main

import (
	"os"

	"github.com/leohfurlan/reometro-score/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
