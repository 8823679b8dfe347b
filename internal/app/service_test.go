package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	service "github.com/MatthewHRockwell/RecruiterScoop/internal/app"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/config"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/submission"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type fixedCity string

func (c fixedCity) City(context.Context, string) string { return string(c) }

func testConfig() *config.Config {
	cfg := config.New()
	cfg.WorkerCount = 4
	cfg.QueueSize = 256
	cfg.SessionSecret = "test-secret"
	return cfg
}

func newService(cfg *config.Config, opts ...service.Option) *service.Service {
	base := []service.Option{service.WithConfig(cfg), service.WithLocator(fixedCity("Austin"))}
	return service.New(append(base, opts...)...)
}

func draft(rating int, tags ...string) *submission.Draft {
	return &submission.Draft{
		Stage:         "interviewed",
		Tags:          tags,
		Headline:      "Straight shooter",
		Rating:        rating,
		Agreed:        true,
		CaptchaPassed: true,
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it reports itself stopped", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["storeDriver"], ShouldEqual, config.DriverMemory)
			So(svc.Size(), ShouldBeZeroValue)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
		)

		Convey("Then the options show in the stats", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 50_000)
			So(stats["dedupeSize"], ShouldEqual, 25_000)
		})
	})
}

// warnLog keeps warning messages and discards everything else.
type warnLog struct {
	mu    *sync.Mutex
	warns *[]string
}

func newWarnLog() warnLog { return warnLog{mu: &sync.Mutex{}, warns: &[]string{}} }

func (l warnLog) Info(context.Context, string, ...logger.Field)  {}
func (l warnLog) Error(context.Context, string, ...logger.Field) {}
func (l warnLog) Debug(context.Context, string, ...logger.Field) {}
func (l warnLog) Fatal(context.Context, string, ...logger.Field) {}
func (l warnLog) Named(string) logger.Logger                     { return l }

func (l warnLog) Warn(_ context.Context, msg string, _ ...logger.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.warns = append(*l.warns, msg)
}

func (l warnLog) warned(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range *l.warns {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestService_SessionSecretWarning(t *testing.T) {
	Convey("Given a service started with the shipped session secret", t, func() {
		log := newWarnLog()
		cfg := testConfig()
		cfg.SessionSecret = config.DefaultSessionSecret
		svc := newService(cfg, service.WithLogger(log))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("Then startup warns that tokens can be forged", func() {
			So(log.warned("session_secret"), ShouldBeTrue)
		})
	})

	Convey("Given a service started with its own session secret", t, func() {
		log := newWarnLog()
		svc := newService(testConfig(), service.WithLogger(log))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("Then no secret warning is logged", func() {
			So(log.warned("session_secret"), ShouldBeFalse)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newService(testConfig())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			err := svc.Start(ctx)
			defer svc.Stop()

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["queueLength"], ShouldEqual, 0)
				So(stats["totalProfiles"], ShouldEqual, 0)
			})

			Convey("And starting twice is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When stopping a started service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})

			Convey("And stopping again is safe", func() {
				So(func() { svc.Stop() }, ShouldNotPanic)
			})

			Convey("And it can be started again", func() {
				So(svc.Start(ctx), ShouldBeNil)
				svc.Stop()
			})
		})

		Convey("When the store driver is unknown", func() {
			cfg := testConfig()
			cfg.StoreDriver = "bogus"
			err := newService(cfg).Start(ctx)

			Convey("Then start fails", func() {
				So(errors.Is(err, service.ErrUnknownDriver), ShouldBeTrue)
			})
		})
	})
}

func TestService_Sessions(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newService(testConfig())
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a session starts", func() {
			sess, token, err := svc.StartSession(ctx, "", "fp-1")
			So(err, ShouldBeNil)

			Convey("Then its token parses back to the same session", func() {
				got, err := svc.ParseSession(token)
				So(err, ShouldBeNil)
				So(got.AuthorID, ShouldEqual, sess.AuthorID)
				So(got.Fingerprint, ShouldEqual, "fp-1")
			})
		})

		Convey("Then the city comes from the locator", func() {
			So(svc.City(ctx, "203.0.113.9"), ShouldEqual, "Austin")
		})

		Convey("Then captchas can be checked and redeemed once", func() {
			c := svc.IssueCaptcha(ctx)
			answer := strconv.Itoa(c.A + c.B)
			So(svc.CheckCaptcha(ctx, c.ID, answer), ShouldBeTrue)
			So(svc.RedeemCaptcha(ctx, c.ID, answer), ShouldBeTrue)
			So(svc.RedeemCaptcha(ctx, c.ID, answer), ShouldBeFalse)
		})
	})
}

func TestService_RateLimit(t *testing.T) {
	Convey("Given a limit of two submissions per window", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		cfg.SubmitRateLimit = 2
		svc := newService(cfg)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the third submission from a device is refused", func() {
			So(svc.AllowSubmission(ctx, "fp:a"), ShouldBeTrue)
			So(svc.AllowSubmission(ctx, "fp:a"), ShouldBeTrue)
			So(svc.AllowSubmission(ctx, "fp:a"), ShouldBeFalse)
			So(svc.AllowSubmission(ctx, "fp:b"), ShouldBeTrue)
		})
	})

	Convey("Given a disabled limit", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		cfg.SubmitRateLimit = 0
		svc := newService(cfg)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then every submission is allowed", func() {
			for i := 0; i < 20; i++ {
				So(svc.AllowSubmission(ctx, "fp:a"), ShouldBeTrue)
			}
		})
	})
}

func TestService_SQLite(t *testing.T) {
	Convey("Given a service on the sqlite driver", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		cfg.StoreDriver = config.DriverSQLite
		cfg.SQLitePath = filepath.Join(t.TempDir(), "scoop.db")
		svc := newService(cfg)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a review is submitted", func() {
			sess, _, err := svc.StartSession(ctx, "", "fp-1")
			So(err, ShouldBeNil)
			conf, err := svc.SubmitReview(ctx, draft(4),
				submission.Create(model.ProfileDraft{Firm: "Acme", RoleTitle: "SRE"}), sess)

			Convey("Then it is persisted", func() {
				So(err, ShouldBeNil)
				p, err := svc.GetProfile(ctx, conf.ProfileID)
				So(err, ShouldBeNil)
				So(p.ReviewCount, ShouldEqual, 1)
				So(svc.GetStats()["totalReviews"], ShouldEqual, 1)
			})
		})
	})
}
