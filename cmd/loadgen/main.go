package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/loadgen"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL  = flag.String("url", loadgen.DefaultBaseURL, "Base URL of the service")
		profiles = flag.Int("profiles", loadgen.DefaultProfiles, "Number of profiles to create")
		reviews  = flag.Int("reviews", loadgen.DefaultReviews, "Number of reviews to submit")
		workers  = flag.Int("workers", 0, "Number of concurrent reviewers (0: CPU cores * 2)")
		timeout  = flag.Duration("timeout", loadgen.DefaultTimeout, "HTTP request timeout")
		settle   = flag.Duration("settle", loadgen.DefaultSettle, "Wait before verification")
		seed     = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for generated content")
		verbose  = flag.Bool("verbose", false, "Log every submission")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	if err := loadgen.SetupLogging(*verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &loadgen.Config{
		BaseURL:  *baseURL,
		Profiles: *profiles,
		Reviews:  *reviews,
		Workers:  *workers,
		Timeout:  *timeout,
		Settle:   *settle,
		Verbose:  *verbose,
	}
	if _, err := loadgen.Run(ctx, cfg, *seed); err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		os.Exit(1)
	}
}
