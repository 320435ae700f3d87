package main

import (
	"context"
	"os"

	"github.com/vinceanalytics/tally/internal/cmd"
	"github.com/vinceanalytics/tally/internal/logger"
)

func main() {
	if err := cmd.App().Run(context.Background(), os.Args); err != nil {
		logger.Fail("exited with error", "err", err)
	}
}
