package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Normalize fills unset fields with defaults and checks the rest.
func (c *Config) Normalize() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Profiles <= 0 {
		c.Profiles = DefaultProfiles
	}
	if c.Reviews < 0 {
		return fmt.Errorf("%w: reviews must not be negative", ErrInvalidConfig)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU() * 2
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}

// Run creates profiles, submits reviews concurrently, then verifies that
// every aggregate equals the mean of its stored reviews.
func Run(ctx context.Context, cfg *Config, seed uint64) (*Stats, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now(), ReviewsPlanned: cfg.Reviews}
	log := logger.Get()
	client := NewClient(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout})

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("profiles", cfg.Profiles),
		logger.Int("reviews", cfg.Reviews),
		logger.Int("workers", cfg.Workers))

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	gen := NewGenerator(seed)
	profileIDs, err := createProfiles(ctx, client, gen, cfg, stats)
	if err != nil {
		return stats, fmt.Errorf("profile creation failed: %w", err)
	}

	if err := submitReviews(ctx, client, gen.Plan(cfg), profileIDs, cfg, stats); err != nil {
		return stats, fmt.Errorf("review submission failed: %w", err)
	}

	if cfg.Settle > 0 {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(cfg.Settle):
		}
	}

	// Listing reviews needs a session.
	token, err := client.StartSession(ctx, -1)
	if err != nil {
		return stats, err
	}
	if err := verifyResults(ctx, client, token, profileIDs, stats); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// createProfiles submits one creating review per profile, sequentially.
func createProfiles(ctx context.Context, c *Client, gen *Generator, cfg *Config, stats *Stats) ([]string, error) {
	ids := make([]string, 0, cfg.Profiles)
	for i := 0; i < cfg.Profiles; i++ {
		token, err := c.StartSession(ctx, i)
		if err != nil {
			return nil, err
		}
		draft := gen.Profile(i)
		conf, err := c.Submit(ctx, token, gen.Review(i, i), "", &draft)
		if err != nil {
			return nil, err
		}
		ids = append(ids, conf.ProfileID)
		stats.ProfilesCreated++
	}
	logger.Get().Info(ctx, "profiles created", logger.Int("count", len(ids)))
	return ids, nil
}

// submitReviews runs the plan on cfg.Workers concurrent reviewers. Refusals
// are counted, not returned; only transport failures abort the run.
func submitReviews(ctx context.Context, c *Client, plan []Review, profileIDs []string, cfg *Config, stats *Stats) error {
	log := logger.Get()
	var submitted, accepted, limited, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				log.Info(ctx, "progress",
					logger.Int("submitted", int(submitted.Load())),
					logger.Int("planned", len(plan)))
			}
		}
	}()

	for _, r := range plan {
		g.Go(func() error {
			token, err := c.StartSession(gctx, r.Reviewer)
			if err == nil {
				_, err = c.Submit(gctx, token, r, profileIDs[r.Profile], nil)
			}
			submitted.Add(1)

			var se *StatusError
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.As(err, &se) && se.Status == http.StatusTooManyRequests:
				limited.Add(1)
			case errors.As(err, &se):
				failed.Add(1)
			default:
				return err
			}
			if cfg.Verbose {
				log.Debug(gctx, "review submitted",
					logger.Int("reviewer", r.Reviewer),
					logger.Int("rating", r.Rating),
					logger.Error(err))
			}
			return nil
		})
	}
	err := g.Wait()
	close(done)

	stats.ReviewsSubmitted = int(submitted.Load())
	stats.ReviewsAccepted = int(accepted.Load())
	stats.ReviewsLimited = int(limited.Load())
	stats.ReviewsFailed = int(failed.Load())

	log.Info(ctx, "review submission completed",
		logger.Int("accepted", stats.ReviewsAccepted),
		logger.Int("limited", stats.ReviewsLimited),
		logger.Int("failed", stats.ReviewsFailed))
	return err
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, perSecond float64
	if stats.ReviewsSubmitted > 0 {
		successRate = float64(stats.ReviewsAccepted) / float64(stats.ReviewsSubmitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.ReviewsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("profilesCreated", stats.ProfilesCreated),
		logger.Int("reviewsPlanned", stats.ReviewsPlanned),
		logger.Int("reviewsSubmitted", stats.ReviewsSubmitted),
		logger.Int("reviewsAccepted", stats.ReviewsAccepted),
		logger.Int("reviewsLimited", stats.ReviewsLimited),
		logger.Int("reviewsFailed", stats.ReviewsFailed),
		logger.Int("profilesVerified", stats.ProfilesVerified),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("reviewsPerSecond", perSecond))
}
