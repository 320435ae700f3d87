package cmd

import (
	"github.com/urfave/cli/v3"
	"github.com/vinceanalytics/tally/internal/config"
	"github.com/vinceanalytics/tally/internal/version"
)

func App() *cli.Command {
	return &cli.Command{
		Name:        "tally",
		Usage:       "Dashboard query server for clickhouse backed web analytics",
		Description: `Compiles dashboard filters and time ranges into clickhouse queries and serves the results`,
		Version:     version.VERSION,
		Flags:       config.Flags(),
		Commands: []*cli.Command{
			serveCMD(),
			explainCMD(),
			version.Command(),
		},
	}
}
