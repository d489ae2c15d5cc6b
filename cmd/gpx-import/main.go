package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/logbook/internal/importer"
	"github.com/okian/logbook/pkg/logger"
)

const defaultTimeout = 30 * time.Second

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the logbook service")
		dir     = flag.String("dir", ".", "Directory containing .gpx files")
		workers = flag.Int("workers", runtime.NumCPU(), "Number of concurrent uploads")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		awards  = flag.Bool("awards", true, "Run an award pass after importing")
		verbose = flag.Bool("verbose", false, "Log every file")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := importer.Run(ctx, importer.Config{
		BaseURL:       *baseURL,
		Dir:           *dir,
		Workers:       *workers,
		Timeout:       *timeout,
		ProcessAwards: *awards,
		Verbose:       *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "import failed", logger.Error(err))
		os.Exit(1)
	}
	if stats.Failed > 0 {
		os.Exit(2)
	}
}
