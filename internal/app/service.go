// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/feed"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/geo"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/mq/queue"
	workerpool "github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/mq/worker"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/ratelimit"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/repository"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/config"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/captcha"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/dedupe"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/session"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/submission"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	redisPingTimeout = 2 * time.Second
	notifyTimeout    = 2 * time.Second
)

// CityLocator resolves client addresses to cities.
type CityLocator interface {
	City(ctx context.Context, ip string) string
}

// Service implements the API dependencies for the review board.
type Service struct {
	mu sync.RWMutex

	cfg config.Config

	// Core components
	store    repository.Store
	redis    *redis.Client
	notifier feed.Notifier
	hub      *feed.Hub
	captchas *captcha.Store
	issuer   *session.Issuer
	locator  CityLocator
	limiter  ratelimit.Limiter
	deduper  dedupe.Deduper
	queue    *queue.Sharded
	pool     *workerpool.Pool
	workflow *submission.Workflow

	// Components handed in through options are not closed on Stop.
	ownStore bool
	ownRedis bool

	// State
	started bool
	cancel  context.CancelFunc
	hubDone chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = *cfg
		}
	}
}

// WithWorkerCount sets the number of submission workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.cfg.WorkerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued submissions.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.cfg.QueueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.cfg.DedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore uses st instead of opening the configured backend.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithRedisClient uses client instead of dialing redis_addr.
func WithRedisClient(client *redis.Client) Option {
	return func(s *Service) {
		s.redis = client
	}
}

// WithLocator overrides the geolocation lookup.
func WithLocator(l CityLocator) Option {
	return func(s *Service) {
		s.locator = l
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{cfg: *config.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	cfg := s.cfg

	s.logger.Info(ctx, "starting review service...", logger.String("store", cfg.StoreDriver))

	if s.store == nil {
		st, err := openStore(ctx, &cfg)
		if err != nil {
			return err
		}
		s.store, s.ownStore = st, true
	}

	if s.redis == nil && cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "redis unreachable; using in-process notifier and limiter",
				logger.String("addr", cfg.RedisAddr), logger.Error(err))
			_ = client.Close()
		} else {
			s.redis, s.ownRedis = client, true
		}
	}

	if s.redis != nil {
		s.notifier = feed.NewRedisNotifier(s.redis, feed.WithRedisLogger(s.logger.Named("feed")))
		s.limiter = ratelimit.NewRedis(s.redis, cfg.SubmitRateWindow(), cfg.SubmitRateLimit)
	} else {
		s.notifier = feed.NewLocalNotifier()
		s.limiter = ratelimit.NewMemory(cfg.SubmitRateWindow(), cfg.SubmitRateLimit)
	}
	if cfg.SubmitRateLimit <= 0 {
		s.limiter = nil
	}

	s.hub = feed.NewHub(s.store, s.notifier, feed.WithHubLogger(s.logger.Named("hub")))
	s.captchas = captcha.NewStore(
		captcha.WithTTL(cfg.CaptchaTTL()),
		captcha.WithCapacity(cfg.CaptchaCapacity),
	)
	if cfg.InsecureSessionSecret() {
		s.logger.Warn(ctx, "session_secret is the shipped default; session tokens can be forged until it is set")
	}
	s.issuer = session.NewIssuer(cfg.SessionSecret, session.WithTTL(cfg.SessionTTL()))
	if s.locator == nil {
		s.locator = geo.NewLocator(
			geo.WithBaseURL(cfg.GeoBaseURL),
			geo.WithTimeout(cfg.GeoTimeout()),
			geo.WithCacheTTL(cfg.GeoCacheTTL()),
			geo.WithLogger(s.logger.Named("geo")),
		)
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))

	// Workers outlive the start context; Stop ends them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.queue = queue.NewSharded(cfg.WorkerCount, cfg.QueueSize)
	s.pool = workerpool.NewPool(s.queue, s.store,
		workerpool.WithLogger(s.logger),
		workerpool.WithCommitHook(s.onCommit),
	)
	s.pool.Start(runCtx)

	s.workflow = submission.NewWorkflow(queue.NewCommitter(s.queue),
		submission.WithDuplicateGuard(s.store, cfg.EnforceDuplicateGuard),
		submission.WithMaxWords(cfg.MaxCommentWords),
		submission.WithLogger(s.logger.Named("submission")),
	)

	s.hubDone = make(chan struct{})
	go func() {
		defer close(s.hubDone)
		s.hub.Run(runCtx)
	}()

	s.started = true
	s.logger.Info(ctx, "review service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", cfg.QueueSize),
		logger.Int("dedupeSize", cfg.DedupeSize),
		logger.Bool("redis", s.redis != nil),
	)
	return nil
}

// openStore opens the configured backend.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory, "":
		return repository.NewMemoryStore(), nil
	case config.DriverSQLite:
		st, err := repository.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreOpen, err)
		}
		return st, nil
	case config.DriverPostgres:
		st, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreOpen, err)
		}
		return st, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.StoreDriver)
}

// Stop drains the submission queue and releases every component.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping review service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}

	s.cancel()
	_ = s.notifier.Close()
	<-s.hubDone

	if s.ownStore {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "store close failed", logger.Error(err))
		}
		s.store = nil
	}
	if s.ownRedis {
		_ = s.redis.Close()
		s.redis = nil
	}

	s.started = false
	s.logger.Info(ctx, "review service stopped")
}

// onCommit runs on the worker after each applied commit.
func (s *Service) onCommit(p model.Profile, r model.Review, created bool) {
	metrics.RecordReviewSubmitted()
	kind := feed.ChangeReview
	if created {
		kind = feed.ChangeProfile
	}
	s.notify(feed.Change{Kind: kind, ProfileID: p.ID})
}

func (s *Service) notify(c feed.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, c); err != nil {
		s.logger.Warn(ctx, "change notification failed",
			logger.String("kind", c.Kind),
			logger.String("profile_id", c.ProfileID),
			logger.Error(err))
	}
}

// SeenAndRecord atomically checks if an idempotency key was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, key string) bool {
	return s.deduper.SeenAndRecord(ctx, key)
}

// Complete stores the result of the first successful attempt under key.
func (s *Service) Complete(ctx context.Context, key string, result any) {
	s.deduper.Complete(ctx, key, result)
}

// Result returns the stored result for key.
func (s *Service) Result(ctx context.Context, key string) (any, bool) {
	return s.deduper.Result(ctx, key)
}

// Unrecord removes a key from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, key string) {
	s.deduper.Unrecord(ctx, key)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// ParseSession verifies a bearer token.
func (s *Service) ParseSession(token string) (session.Session, error) {
	return s.issuer.Parse(token)
}

// StartSession opens or resumes an anonymous session.
func (s *Service) StartSession(ctx context.Context, customToken, fingerprint string) (session.Session, string, error) {
	return s.issuer.Start(ctx, customToken, fingerprint)
}

// ListProfiles returns every profile.
func (s *Service) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	return s.store.ListProfiles(ctx)
}

// GetProfile returns one profile.
func (s *Service) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	return s.store.GetProfile(ctx, id)
}

// ListReviews returns a profile's reviews, newest first.
func (s *Service) ListReviews(ctx context.Context, profileID string) ([]model.Review, error) {
	return s.store.ListReviews(ctx, profileID)
}

// FlagReview increments a review's moderation counter and refreshes its feed.
func (s *Service) FlagReview(ctx context.Context, reviewID string) (repository.Flag, error) {
	f, err := s.store.FlagReview(ctx, reviewID)
	if err != nil {
		return repository.Flag{}, err
	}
	s.notify(feed.Change{Kind: feed.ChangeFlag, ProfileID: f.ProfileID})
	return f, nil
}

// IssueCaptcha creates an arithmetic challenge.
func (s *Service) IssueCaptcha(ctx context.Context) captcha.Challenge {
	return s.captchas.Issue(ctx)
}

// CheckCaptcha reports whether answer solves the challenge without consuming it.
func (s *Service) CheckCaptcha(ctx context.Context, id, answer string) bool {
	return s.captchas.Check(ctx, id, answer)
}

// RedeemCaptcha consumes the challenge when answer solves it.
func (s *Service) RedeemCaptcha(ctx context.Context, id, answer string) bool {
	return s.captchas.Redeem(ctx, id, answer)
}

// AllowSubmission applies the submission rate limit. A zero limit disables it.
func (s *Service) AllowSubmission(ctx context.Context, key string) bool {
	if s.limiter == nil {
		return true
	}
	return s.limiter.Allow(ctx, key)
}

// PrepareDraft sanitises and normalises d the way SubmitReview will.
func (s *Service) PrepareDraft(d *submission.Draft) {
	s.workflow.Prepare(d)
}

// SubmitReview runs the submission workflow; the commit goes through the
// worker that owns the target profile.
func (s *Service) SubmitReview(ctx context.Context, d *submission.Draft, t submission.Target, sess session.Session) (submission.Confirmation, error) {
	start := time.Now()
	conf, err := s.workflow.Submit(ctx, d, t, sess)
	metrics.RecordSubmissionLatency(float64(time.Since(start).Microseconds()) / 1000)
	return conf, err
}

// City resolves a client address to a city name.
func (s *Service) City(ctx context.Context, ip string) string {
	return s.locator.City(ctx, ip)
}

// SubscribeProfiles streams full profile snapshots.
func (s *Service) SubscribeProfiles(ctx context.Context) (<-chan feed.Snapshot, func(), error) {
	return s.hub.SubscribeProfiles(ctx)
}

// SubscribeReviews streams one profile's review snapshots.
func (s *Service) SubscribeReviews(ctx context.Context, profileID string) (<-chan feed.ReviewSnapshot, func(), error) {
	return s.hub.SubscribeReviews(ctx, profileID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"storeDriver": s.cfg.StoreDriver,
		"workerCount": s.cfg.WorkerCount,
		"queueSize":   s.cfg.QueueSize,
		"dedupeSize":  s.cfg.DedupeSize,
		"redis":       s.redis != nil,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	queueLen := s.queue.Len(ctx)
	stats["queueLength"] = queueLen
	stats["idempotencyKeys"] = s.deduper.Size()
	stats["captchasOutstanding"] = s.captchas.Len()
	stats["feedSubscribers"] = s.hub.Subscribers()

	if st, err := s.store.Stats(ctx); err == nil {
		stats["totalProfiles"] = st.Profiles
		stats["totalReviews"] = st.Reviews
		metrics.UpdateTotals(st.Profiles, st.Reviews)
	} else {
		s.logger.Warn(ctx, "store stats failed", logger.Error(err))
	}
	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateWorkerCount(s.pool.Size())
	return stats
}
