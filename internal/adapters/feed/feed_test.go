package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

type mockSource struct {
	mu       sync.Mutex
	profiles []model.Profile
	reviews  map[string][]model.Review
	err      error
	pulls    int
}

func (m *mockSource) ListProfiles(context.Context) ([]model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pulls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]model.Profile(nil), m.profiles...), nil
}

func (m *mockSource) ListReviews(_ context.Context, id string) ([]model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]model.Review(nil), m.reviews[id]...), nil
}

func (m *mockSource) add(p model.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = append(m.profiles, p)
}

func (m *mockSource) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func receive[T any](ch <-chan T) (T, bool) {
	select {
	case v, ok := <-ch:
		return v, ok
	case <-time.After(time.Second):
		var zero T
		return zero, false
	}
}

func TestLocalNotifier(t *testing.T) {
	Convey("Given a local notifier", t, func() {
		n := NewLocalNotifier()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		Convey("When the same change is announced repeatedly before it is read", func() {
			So(n.Notify(ctx, Change{Kind: ChangeReview, ProfileID: "a"}), ShouldBeNil)
			So(n.Notify(ctx, Change{Kind: ChangeReview, ProfileID: "a"}), ShouldBeNil)
			So(n.Notify(ctx, Change{Kind: ChangeReview, ProfileID: "b"}), ShouldBeNil)
			changes := n.Changes(ctx)

			Convey("Then it is delivered once", func() {
				first, _ := receive(changes)
				second, _ := receive(changes)
				So(first.ProfileID, ShouldEqual, "a")
				So(second.ProfileID, ShouldEqual, "b")
				select {
				case extra := <-changes:
					So(extra, ShouldBeZeroValue)
				case <-time.After(20 * time.Millisecond):
				}
			})
		})

		Convey("When the notifier is closed", func() {
			changes := n.Changes(ctx)
			So(n.Close(), ShouldBeNil)

			Convey("Then streams end and notifications are refused", func() {
				_, ok := receive(changes)
				So(ok, ShouldBeFalse)
				So(errors.Is(n.Notify(ctx, Change{ProfileID: "a"}), ErrClosed), ShouldBeTrue)
			})
		})
	})
}

func TestHub(t *testing.T) {
	Convey("Given a hub over a source with one profile", t, func() {
		src := &mockSource{
			profiles: []model.Profile{{ID: "p1", Name: "Ana"}},
			reviews:  map[string][]model.Review{"p1": {{ID: "r1", ProfileID: "p1", Rating: 4}}},
		}
		n := NewLocalNotifier()
		hub := NewHub(src, n)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go hub.Run(ctx)

		Convey("When subscribing to profiles", func() {
			ch, stop, err := hub.SubscribeProfiles(ctx)
			So(err, ShouldBeNil)
			defer stop()

			first, ok := receive(ch)

			Convey("Then the current snapshot arrives first", func() {
				So(ok, ShouldBeTrue)
				So(len(first.Profiles), ShouldEqual, 1)
				So(hub.Subscribers(), ShouldEqual, 1)
			})

			Convey("And a change delivers a newer snapshot", func() {
				src.add(model.Profile{ID: "p2", Name: "Bo"})
				So(n.Notify(ctx, Change{Kind: ChangeProfile, ProfileID: "p2"}), ShouldBeNil)
				next, ok := receive(ch)
				So(ok, ShouldBeTrue)
				So(next.Seq, ShouldBeGreaterThan, first.Seq)
				So(len(next.Profiles), ShouldEqual, 2)
			})

			Convey("And cancelling closes the stream", func() {
				stop()
				_, ok := receive(ch)
				So(ok, ShouldBeFalse)
				So(hub.Subscribers(), ShouldEqual, 0)
			})
		})

		Convey("When a subscriber is slow", func() {
			ch, stop, err := hub.SubscribeProfiles(ctx)
			So(err, ShouldBeNil)
			defer stop()

			for i := 0; i < 5; i++ {
				_, err := hub.refreshProfiles(ctx)
				So(err, ShouldBeNil)
			}

			Convey("Then only the latest pending snapshot is kept", func() {
				latest, ok := receive(ch)
				So(ok, ShouldBeTrue)
				So(latest.Seq, ShouldEqual, hub.seq.Load())
				select {
				case <-ch:
					So("unexpected second snapshot", ShouldBeEmpty)
				default:
				}
			})
		})

		Convey("When the source fails after the first snapshot", func() {
			ch, stop, err := hub.SubscribeProfiles(ctx)
			So(err, ShouldBeNil)
			defer stop()
			first, _ := receive(ch)
			src.fail(errors.New("unavailable"))

			_, err = hub.refreshProfiles(ctx)

			Convey("Then the stale snapshot is kept and nothing is delivered", func() {
				So(err, ShouldNotBeNil)
				cur, err := hub.Profiles(ctx)
				So(err, ShouldBeNil)
				So(cur.Seq, ShouldEqual, first.Seq)
				select {
				case <-ch:
					So("unexpected snapshot", ShouldBeEmpty)
				default:
				}
			})
		})

		Convey("When the source fails before any snapshot", func() {
			src.fail(errors.New("unavailable"))
			_, _, err := hub.SubscribeProfiles(ctx)

			Convey("Then subscribing fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When subscribing to a profile's reviews", func() {
			ch, stop, err := hub.SubscribeReviews(ctx, "p1")
			So(err, ShouldBeNil)
			defer stop()
			first, _ := receive(ch)

			Convey("Then the review list arrives and changes refresh it", func() {
				So(first.ProfileID, ShouldEqual, "p1")
				So(len(first.Reviews), ShouldEqual, 1)

				src.mu.Lock()
				src.reviews["p1"] = append([]model.Review{{ID: "r2", ProfileID: "p1"}}, src.reviews["p1"]...)
				src.mu.Unlock()
				So(n.Notify(ctx, Change{Kind: ChangeReview, ProfileID: "p1"}), ShouldBeNil)

				next, ok := receive(ch)
				So(ok, ShouldBeTrue)
				So(next.Seq, ShouldBeGreaterThan, first.Seq)
				So(next.Reviews[0].ID, ShouldEqual, "r2")
			})
		})

		Convey("When the subscriber context ends", func() {
			subCtx, subCancel := context.WithCancel(ctx)
			ch, _, err := hub.SubscribeReviews(subCtx, "p1")
			So(err, ShouldBeNil)
			_, _ = receive(ch)
			subCancel()

			Convey("Then the stream closes", func() {
				_, ok := receive(ch)
				So(ok, ShouldBeFalse)
			})
		})
	})
}

type mockPublisher struct {
	mu       sync.Mutex
	err      error
	channel  string
	messages []string
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	m.channel = channel
	m.messages = append(m.messages, string(message.([]byte)))
	cmd.SetVal(1)
	return cmd
}

func TestRedisNotifier(t *testing.T) {
	Convey("Given a redis notifier", t, func() {
		pub := &mockPublisher{}
		r := newRedisNotifier(pub, nil)
		ctx := context.Background()

		Convey("When Redis accepts the publish", func() {
			err := r.Notify(ctx, Change{Kind: ChangeReview, ProfileID: "p1"})

			Convey("Then the change is broadcast as JSON", func() {
				So(err, ShouldBeNil)
				So(pub.channel, ShouldEqual, DefaultChannel)
				So(pub.messages, ShouldResemble, []string{`{"kind":"review","profile_id":"p1"}`})
			})
		})

		Convey("When Redis is down", func() {
			pub.err = errors.New("connection refused")
			err := r.Notify(ctx, Change{Kind: ChangeFlag, ProfileID: "p9"})

			Convey("Then the change still reaches this instance", func() {
				So(err, ShouldNotBeNil)
				cctx, cancel := context.WithCancel(ctx)
				defer cancel()
				c, ok := receive(r.local.Changes(cctx))
				So(ok, ShouldBeTrue)
				So(c.ProfileID, ShouldEqual, "p9")
			})
		})

		Convey("When decoding broadcasts", func() {
			c, err := decodeChange(`{"kind":"flag","profile_id":"x"}`)
			So(err, ShouldBeNil)
			So(c, ShouldResemble, Change{Kind: ChangeFlag, ProfileID: "x"})

			_, err = decodeChange(`{"kind":"flag"}`)
			So(err, ShouldNotBeNil)
			_, err = decodeChange(`not json`)
			So(err, ShouldNotBeNil)
		})

		Convey("When a custom channel is configured", func() {
			r = newRedisNotifier(pub, nil, WithChannel("other"))
			So(r.Notify(ctx, Change{ProfileID: "p1"}), ShouldBeNil)
			So(pub.channel, ShouldEqual, "other")
		})
	})
}
