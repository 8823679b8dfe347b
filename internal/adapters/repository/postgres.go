package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		seq                 BIGSERIAL PRIMARY KEY,
		id                  TEXT        NOT NULL UNIQUE,
		kind                TEXT        NOT NULL DEFAULT '',
		name                TEXT        NOT NULL DEFAULT '',
		firm                TEXT        NOT NULL,
		location            TEXT        NOT NULL DEFAULT '',
		role_title          TEXT        NOT NULL DEFAULT '',
		rating              DOUBLE PRECISION NOT NULL DEFAULT 0,
		review_count        INTEGER     NOT NULL DEFAULT 0,
		critical_flag_count INTEGER     NOT NULL DEFAULT 0,
		created_at          TIMESTAMPTZ NOT NULL,
		last_reviewed       TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		seq         BIGSERIAL PRIMARY KEY,
		id          TEXT        NOT NULL UNIQUE,
		profile_id  TEXT        NOT NULL REFERENCES profiles(id),
		stage       TEXT        NOT NULL,
		tags        TEXT[]      NOT NULL DEFAULT '{}',
		headline    TEXT        NOT NULL,
		comment     TEXT        NOT NULL DEFAULT '',
		rating      INTEGER     NOT NULL,
		critical    BOOLEAN     NOT NULL DEFAULT FALSE,
		author_id   TEXT        NOT NULL DEFAULT '',
		fingerprint TEXT        NOT NULL DEFAULT '',
		verified    BOOLEAN     NOT NULL DEFAULT FALSE,
		flags       INTEGER     NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS reviews_profile_created ON reviews (profile_id, created_at DESC)`,
}

const (
	pgProfileColumns = `id, kind, name, firm, location, role_title, rating, review_count,
		critical_flag_count, created_at, last_reviewed`
	pgReviewColumns = `id, profile_id, stage, tags, headline, comment, rating, author_id,
		fingerprint, verified, flags, created_at`

	pgInsertProfile = `INSERT INTO profiles (id, kind, name, firm, location, role_title,
		rating, review_count, critical_flag_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7, $8)`
	pgInsertReview = `INSERT INTO reviews (id, profile_id, stage, tags, headline, comment,
		rating, critical, author_id, fingerprint, verified, flags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, $12)`
	pgRecompute = `UPDATE profiles p SET
		review_count        = agg.n,
		rating              = agg.mean,
		critical_flag_count = agg.crit,
		last_reviewed       = agg.last
		FROM (
			SELECT COUNT(*)::int                           AS n,
			       COALESCE(AVG(rating), 0)::float8         AS mean,
			       (COUNT(*) FILTER (WHERE critical))::int AS crit,
			       MAX(created_at)                         AS last
			FROM reviews WHERE profile_id = $1
		) agg
		WHERE p.id = $1
		RETURNING p.id, p.kind, p.name, p.firm, p.location, p.role_title, p.rating,
		p.review_count, p.critical_flag_count, p.created_at, p.last_reviewed`
)

// PostgresStore persists profiles and reviews in PostgreSQL through pgxpool.
// Commits against an existing profile lock its row.
type PostgresStore struct {
	settings
	pool *pgxpool.Pool
}

// NewPostgresPool builds a tuned connection pool for databaseURL.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, cfg)
}

// NewPostgresStore connects to databaseURL and bootstraps the schema.
func NewPostgresStore(ctx context.Context, databaseURL string, opts ...Option) (*PostgresStore, error) {
	pool, err := NewPostgresPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("bootstrap postgres schema: %w", err)
		}
	}
	return &PostgresStore{settings: applyOptions(opts), pool: pool}, nil
}

// ListProfiles returns every profile in creation order.
func (s *PostgresStore) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(elapsedMs(start)) }()

	rows, err := s.pool.Query(ctx, `SELECT `+pgProfileColumns+` FROM profiles ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	out := []model.Profile{}
	for rows.Next() {
		p, err := scanPgProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProfile returns one profile.
func (s *PostgresStore) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	p, err := scanPgProfile(s.pool.QueryRow(ctx,
		`SELECT `+pgProfileColumns+` FROM profiles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Profile{}, ErrNotFound
	}
	return p, err
}

// ListReviews returns a profile's reviews, newest first.
func (s *PostgresStore) ListReviews(ctx context.Context, profileID string) ([]model.Review, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(elapsedMs(start)) }()

	rows, err := s.pool.Query(ctx, `SELECT `+pgReviewColumns+` FROM reviews
		WHERE profile_id = $1 ORDER BY created_at DESC, seq DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := []model.Review{}
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.ID, &r.ProfileID, &r.Stage, &r.Tags, &r.Headline, &r.Comment,
			&r.Rating, &r.AuthorID, &r.Fingerprint, &r.Verified, &r.Flags, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		if r.Tags == nil {
			r.Tags = []string{}
		}
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Commit runs profile creation or row lock, review insert and aggregate
// recomputation in one transaction.
func (s *PostgresStore) Commit(ctx context.Context, c model.Commit) (model.Profile, model.Review, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreCommitLatency(elapsedMs(start)) }()

	r, err := prepareReview(c, s.settings)
	if err != nil {
		return model.Profile{}, model.Review{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.Profile{}, model.Review{}, fmt.Errorf("begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if c.NewProfile != nil {
		p := newProfile(c.NewProfile, r, s.settings)
		if _, err := tx.Exec(ctx, pgInsertProfile,
			p.ID, string(p.Kind), p.Name, p.Firm, p.Location, p.RoleTitle,
			p.CriticalFlagCount, p.CreatedAt); err != nil {
			return model.Profile{}, model.Review{}, fmt.Errorf("insert profile: %w", err)
		}
		r.ProfileID = p.ID
	} else {
		var id string
		err := tx.QueryRow(ctx, `SELECT id FROM profiles WHERE id = $1 FOR UPDATE`, c.ProfileID).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, model.Review{}, ErrNotFound
		}
		if err != nil {
			return model.Profile{}, model.Review{}, fmt.Errorf("lock profile: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, pgInsertReview,
		r.ID, r.ProfileID, r.Stage, r.Tags, r.Headline, r.Comment,
		r.Rating, r.Critical(), r.AuthorID, r.Fingerprint, r.Verified, r.CreatedAt); err != nil {
		return model.Profile{}, model.Review{}, fmt.Errorf("insert review: %w", err)
	}

	p, err := scanPgProfile(tx.QueryRow(ctx, pgRecompute, r.ProfileID))
	if err != nil {
		return model.Profile{}, model.Review{}, fmt.Errorf("recompute aggregates: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Profile{}, model.Review{}, fmt.Errorf("commit: %w", err)
	}
	return p, r, nil
}

// FlagReview increments a review's flag counter.
func (s *PostgresStore) FlagReview(ctx context.Context, reviewID string) (Flag, error) {
	f := Flag{ReviewID: reviewID}
	err := s.pool.QueryRow(ctx,
		`UPDATE reviews SET flags = flags + 1 WHERE id = $1 RETURNING profile_id, flags`, reviewID).
		Scan(&f.ProfileID, &f.Flags)
	if errors.Is(err, pgx.ErrNoRows) {
		return Flag{}, ErrNotFound
	}
	if err != nil {
		return Flag{}, fmt.Errorf("flag review: %w", err)
	}
	return f, nil
}

// Stats returns profile and review totals.
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM profiles)::int, (SELECT COUNT(*) FROM reviews)::int`).
		Scan(&st.Profiles, &st.Reviews)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPgProfile(row rowScanner) (model.Profile, error) {
	var (
		p    model.Profile
		kind string
	)
	err := row.Scan(&p.ID, &kind, &p.Name, &p.Firm, &p.Location, &p.RoleTitle, &p.Rating,
		&p.ReviewCount, &p.CriticalFlagCount, &p.CreatedAt, &p.LastReviewed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, err
		}
		return model.Profile{}, fmt.Errorf("scan profile: %w", err)
	}
	p.Kind = model.Kind(kind)
	p.CreatedAt = p.CreatedAt.UTC()
	if p.LastReviewed != nil {
		t := p.LastReviewed.UTC()
		p.LastReviewed = &t
	}
	return p.Normalize(), nil
}
