package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/metrics"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		seq                 INTEGER PRIMARY KEY AUTOINCREMENT,
		id                  TEXT    NOT NULL UNIQUE,
		kind                TEXT    NOT NULL DEFAULT '',
		name                TEXT    NOT NULL DEFAULT '',
		firm                TEXT    NOT NULL,
		location            TEXT    NOT NULL DEFAULT '',
		role_title          TEXT    NOT NULL DEFAULT '',
		rating              REAL    NOT NULL DEFAULT 0,
		review_count        INTEGER NOT NULL DEFAULT 0,
		critical_flag_count INTEGER NOT NULL DEFAULT 0,
		created_at          INTEGER NOT NULL,
		last_reviewed       INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		id          TEXT    NOT NULL UNIQUE,
		profile_id  TEXT    NOT NULL REFERENCES profiles(id),
		stage       TEXT    NOT NULL,
		tags        TEXT    NOT NULL DEFAULT '[]',
		headline    TEXT    NOT NULL,
		comment     TEXT    NOT NULL DEFAULT '',
		rating      INTEGER NOT NULL,
		critical    INTEGER NOT NULL DEFAULT 0,
		author_id   TEXT    NOT NULL DEFAULT '',
		fingerprint TEXT    NOT NULL DEFAULT '',
		verified    INTEGER NOT NULL DEFAULT 0,
		flags       INTEGER NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS reviews_profile_created ON reviews (profile_id, created_at DESC)`,
}

const (
	sqliteProfileColumns = `id, kind, name, firm, location, role_title, rating, review_count,
		critical_flag_count, created_at, last_reviewed`
	sqliteReviewColumns = `id, profile_id, stage, tags, headline, comment, rating, author_id,
		fingerprint, verified, flags, created_at`

	sqliteInsertProfile = `INSERT INTO profiles (id, kind, name, firm, location, role_title,
		rating, review_count, critical_flag_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`
	sqliteInsertReview = `INSERT INTO reviews (id, profile_id, stage, tags, headline, comment,
		rating, critical, author_id, fingerprint, verified, flags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`
	sqliteRecompute = `UPDATE profiles SET
		review_count        = (SELECT COUNT(*) FROM reviews WHERE profile_id = ?),
		rating              = COALESCE((SELECT AVG(rating) FROM reviews WHERE profile_id = ?), 0),
		critical_flag_count = (SELECT COUNT(*) FROM reviews WHERE profile_id = ? AND critical = 1),
		last_reviewed       = (SELECT MAX(created_at) FROM reviews WHERE profile_id = ?)
		WHERE id = ?`
)

// SQLiteStore persists profiles and reviews in a SQLite database file.
// Writes are serialised on a single connection.
type SQLiteStore struct {
	settings
	db *sql.DB
}

// NewSQLiteStore opens (creating when needed) the database at path and
// bootstraps the schema.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{`PRAGMA foreign_keys = ON`, `PRAGMA busy_timeout = 5000`}
	for _, stmt := range append(pragmas, sqliteSchema...) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap sqlite schema: %w", err)
		}
	}
	return &SQLiteStore{settings: applyOptions(opts), db: db}, nil
}

// ListProfiles returns every profile in creation order.
func (s *SQLiteStore) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(elapsedMs(start)) }()

	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteProfileColumns+` FROM profiles ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	out := []model.Profile{}
	for rows.Next() {
		p, err := scanSQLiteProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProfile returns one profile.
func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	return getSQLiteProfile(ctx, s.db, id)
}

// ListReviews returns a profile's reviews, newest first.
func (s *SQLiteStore) ListReviews(ctx context.Context, profileID string) ([]model.Review, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(elapsedMs(start)) }()

	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteReviewColumns+` FROM reviews
		WHERE profile_id = ? ORDER BY created_at DESC, seq DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := []model.Review{}
	for rows.Next() {
		r, err := scanSQLiteReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Commit runs profile creation, review insert and aggregate recomputation in
// one transaction.
func (s *SQLiteStore) Commit(ctx context.Context, c model.Commit) (model.Profile, model.Review, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreCommitLatency(elapsedMs(start)) }()

	r, err := prepareReview(c, s.settings)
	if err != nil {
		return model.Profile{}, model.Review{}, err
	}
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return model.Profile{}, model.Review{}, fmt.Errorf("encode tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Profile{}, model.Review{}, fmt.Errorf("begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if c.NewProfile != nil {
		p := newProfile(c.NewProfile, r, s.settings)
		if _, err := tx.ExecContext(ctx, sqliteInsertProfile,
			p.ID, string(p.Kind), p.Name, p.Firm, p.Location, p.RoleTitle,
			p.CriticalFlagCount, p.CreatedAt.UnixNano()); err != nil {
			return model.Profile{}, model.Review{}, fmt.Errorf("insert profile: %w", err)
		}
		r.ProfileID = p.ID
	} else {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM profiles WHERE id = ?`, c.ProfileID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, model.Review{}, ErrNotFound
		}
		if err != nil {
			return model.Profile{}, model.Review{}, fmt.Errorf("lookup profile: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, sqliteInsertReview,
		r.ID, r.ProfileID, r.Stage, string(tags), r.Headline, r.Comment,
		r.Rating, r.Critical(), r.AuthorID, r.Fingerprint, r.Verified,
		r.CreatedAt.UnixNano()); err != nil {
		return model.Profile{}, model.Review{}, fmt.Errorf("insert review: %w", err)
	}

	id := r.ProfileID
	if _, err := tx.ExecContext(ctx, sqliteRecompute, id, id, id, id, id); err != nil {
		return model.Profile{}, model.Review{}, fmt.Errorf("recompute aggregates: %w", err)
	}
	p, err := getSQLiteProfile(ctx, tx, id)
	if err != nil {
		return model.Profile{}, model.Review{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Profile{}, model.Review{}, fmt.Errorf("commit: %w", err)
	}
	return p, r, nil
}

// FlagReview increments a review's flag counter.
func (s *SQLiteStore) FlagReview(ctx context.Context, reviewID string) (Flag, error) {
	f := Flag{ReviewID: reviewID}
	err := s.db.QueryRowContext(ctx,
		`UPDATE reviews SET flags = flags + 1 WHERE id = ? RETURNING profile_id, flags`, reviewID).
		Scan(&f.ProfileID, &f.Flags)
	if errors.Is(err, sql.ErrNoRows) {
		return Flag{}, ErrNotFound
	}
	if err != nil {
		return Flag{}, fmt.Errorf("flag review: %w", err)
	}
	return f, nil
}

// Stats returns profile and review totals.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM profiles), (SELECT COUNT(*) FROM reviews)`).
		Scan(&st.Profiles, &st.Reviews)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

type sqlQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSQLiteProfile(ctx context.Context, q sqlQueryer, id string) (model.Profile, error) {
	p, err := scanSQLiteProfile(q.QueryRowContext(ctx,
		`SELECT `+sqliteProfileColumns+` FROM profiles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Profile{}, ErrNotFound
	}
	return p, err
}

func scanSQLiteProfile(row rowScanner) (model.Profile, error) {
	var (
		p       model.Profile
		kind    string
		created int64
		last    sql.NullInt64
	)
	err := row.Scan(&p.ID, &kind, &p.Name, &p.Firm, &p.Location, &p.RoleTitle, &p.Rating,
		&p.ReviewCount, &p.CriticalFlagCount, &created, &last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, err
		}
		return model.Profile{}, fmt.Errorf("scan profile: %w", err)
	}
	p.Kind = model.Kind(kind)
	p.CreatedAt = time.Unix(0, created).UTC()
	if last.Valid {
		t := time.Unix(0, last.Int64).UTC()
		p.LastReviewed = &t
	}
	return p.Normalize(), nil
}

func scanSQLiteReview(row rowScanner) (model.Review, error) {
	var (
		r       model.Review
		tags    string
		created int64
	)
	err := row.Scan(&r.ID, &r.ProfileID, &r.Stage, &tags, &r.Headline, &r.Comment, &r.Rating,
		&r.AuthorID, &r.Fingerprint, &r.Verified, &r.Flags, &created)
	if err != nil {
		return model.Review{}, fmt.Errorf("scan review: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
		return model.Review{}, fmt.Errorf("decode tags: %w", err)
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, nil
}
