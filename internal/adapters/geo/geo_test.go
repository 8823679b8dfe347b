package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLocator(t *testing.T) {
	Convey("Given an ipapi-style endpoint", t, func() {
		var calls atomic.Int32
		var lastPath atomic.Value
		release := make(chan struct{})
		var block atomic.Bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			lastPath.Store(r.URL.Path)
			if block.Load() {
				<-release
			}
			switch r.URL.Path {
			case "/8.8.8.8/json/":
				fmt.Fprint(w, `{"city":"Mountain View"}`)
			case "/json/":
				fmt.Fprint(w, `{"city":"Austin"}`)
			case "/1.1.1.1/json/":
				fmt.Fprint(w, `{"error":true,"reason":"RateLimited"}`)
			default:
				w.WriteHeader(http.StatusInternalServerError)
			}
		}))
		defer srv.Close()

		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		l := NewLocator(WithBaseURL(srv.URL+"/"), WithCacheTTL(time.Minute), WithFailureTTL(10*time.Second),
			WithClock(func() time.Time { return now }))
		ctx := context.Background()

		Convey("A public address is looked up by path", func() {
			So(l.City(ctx, "8.8.8.8"), ShouldEqual, "Mountain View")
			So(lastPath.Load(), ShouldEqual, "/8.8.8.8/json/")
		})

		Convey("Private and empty addresses ask about the caller", func() {
			So(l.City(ctx, "10.0.0.7"), ShouldEqual, "Austin")
			So(l.City(ctx, ""), ShouldEqual, "Austin")
			So(calls.Load(), ShouldEqual, 1)
		})

		Convey("Results are cached until the TTL passes", func() {
			l.City(ctx, "8.8.8.8")
			l.City(ctx, "8.8.8.8")
			So(calls.Load(), ShouldEqual, 1)
			now = now.Add(2 * time.Minute)
			l.City(ctx, "8.8.8.8")
			So(calls.Load(), ShouldEqual, 2)
		})

		Convey("Errors resolve to the empty string until the failure TTL passes", func() {
			So(l.City(ctx, "1.1.1.1"), ShouldEqual, "")
			So(l.City(ctx, "9.9.9.9"), ShouldEqual, "")
			So(l.City(ctx, "1.1.1.1"), ShouldEqual, "")
			So(calls.Load(), ShouldEqual, 2)
			now = now.Add(20 * time.Second)
			So(l.City(ctx, "1.1.1.1"), ShouldEqual, "")
			So(calls.Load(), ShouldEqual, 3)
		})

		Convey("Concurrent lookups for one address share a request", func() {
			block.Store(true)
			var wg sync.WaitGroup
			results := make([]string, 8)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = l.City(ctx, "8.8.8.8")
				}(i)
			}
			time.Sleep(50 * time.Millisecond)
			close(release)
			wg.Wait()
			So(calls.Load(), ShouldEqual, 1)
			for _, c := range results {
				So(c, ShouldEqual, "Mountain View")
			}
		})
	})

	Convey("Given an endpoint that always rate limits", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()
		l := NewLocator(WithBaseURL(srv.URL))

		Convey("Repeat lookups of the failing address stay local", func() {
			for i := 0; i < 5; i++ {
				So(l.City(context.Background(), "8.8.8.8"), ShouldEqual, "")
			}
			So(calls.Load(), ShouldEqual, 1)
		})
	})

	Convey("Given an endpoint that never answers in time", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()
		l := NewLocator(WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))

		Convey("The lookup gives up with an empty city", func() {
			So(l.City(context.Background(), "8.8.8.8"), ShouldEqual, "")
		})
	})
}

func TestClientIP(t *testing.T) {
	Convey("Given requests from behind proxies", t, func() {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.0.2.1:1234"
		So(ClientIP(r), ShouldEqual, "192.0.2.1")

		r.Header.Set("X-Real-IP", "203.0.113.9")
		So(ClientIP(r), ShouldEqual, "203.0.113.9")

		r.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
		So(ClientIP(r), ShouldEqual, "198.51.100.4")
	})
}
