// Command lbptop extracts multi-resolution LBP-TOP feature matrices from the
// videos of a face presentation-attack dataset, one file per video.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/banshee-data/lbptop/internal/monitoring"
	"github.com/banshee-data/lbptop/internal/version"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	// Grid variables such as SGE_TASK_ID may come from a local .env file.
	if err := godotenv.Load(); err == nil {
		log.Printf("loaded environment from .env")
	}

	o, err := parseArgs(args, os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		log.Printf("lbptop: %v", err)
		return 1
	}
	if o.showVersion {
		fmt.Println("lbptop", version.String())
		return 0
	}

	logger, err := monitoring.NewZap(o.logJSON)
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return 1
	}
	defer logger.Sync()
	monitoring.UseZap(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	failed, err := run(ctx, o)
	if err != nil {
		monitoring.Logf("lbptop: %v", err)
		return 1
	}
	if failed > 0 {
		monitoring.Logf("lbptop: %d videos failed", failed)
		return 1
	}
	return 0
}
