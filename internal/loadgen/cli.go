package loadgen

import (
	"fmt"
	"os"

	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
)

// SetupLogging initializes the global logger; verbose lowers it to debug.
func SetupLogging(verbose bool) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	os.Stdout.WriteString(`RecruiterScoop Load Generator
=============================

Submits reviews concurrently over HTTP and checks that every profile's
rating equals the mean of its stored reviews.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -profiles int
        Number of profiles to create (default 20)
  -reviews int
        Number of reviews to submit across them (default 2000)
  -workers int
        Number of concurrent reviewers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -settle duration
        Wait before verification (default 1s)
  -seed uint
        Seed for generated content (default: current time)
  -verbose
        Log every submission
  -help
        Show this help message

The server's submit_rate_limit applies per device; every virtual reviewer
uses its own device, so limits only bite when -reviews exceeds what the
server allows per window.
`)
}
