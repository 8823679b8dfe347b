package queue

import (
	"context"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/google/uuid"
)

// Enqueuer accepts jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, j Job) bool
	IsClosed() bool
}

// Committer hands commits to the queue and waits for the worker's result.
// It satisfies the submission workflow's Committer.
type Committer struct {
	q Enqueuer
}

// NewCommitter creates a Committer over q.
func NewCommitter(q Enqueuer) *Committer {
	return &Committer{q: q}
}

// Commit enqueues c and blocks until a worker applies it. A full queue fails
// fast with ErrFull. When ctx ends before a worker claims the job, the job is
// withdrawn and ctx's error returned; once claimed, Commit waits for the
// outcome so the caller never reports a failure for an applied commit.
func (c *Committer) Commit(ctx context.Context, commit model.Commit) (model.Profile, model.Review, error) {
	key := commit.ProfileID
	if key == "" {
		key = uuid.NewString()
	}
	reply := make(chan Result, 1)
	job := NewJob(key, commit, reply)

	if !c.q.Enqueue(ctx, job) {
		if c.q.IsClosed() {
			return model.Profile{}, model.Review{}, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return model.Profile{}, model.Review{}, err
		}
		return model.Profile{}, model.Review{}, ErrFull
	}

	select {
	case res := <-reply:
		return res.Profile, res.Review, res.Err
	case <-ctx.Done():
		if job.abandon() {
			return model.Profile{}, model.Review{}, ctx.Err()
		}
		res := <-reply
		return res.Profile, res.Review, res.Err
	}
}
