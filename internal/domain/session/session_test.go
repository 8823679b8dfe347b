package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIssuer(t *testing.T) {
	Convey("Given an issuer with a controllable clock", t, func() {
		ctx := context.Background()
		now := time.Now()
		clock := func() time.Time { return now }
		iss := session.NewIssuer("secret", session.WithTTL(time.Hour), session.WithClock(clock))

		Convey("When starting without a custom token", func() {
			s, token, err := iss.Start(ctx, "", "fp1")

			Convey("Then a fresh anonymous author is issued", func() {
				So(err, ShouldBeNil)
				So(token, ShouldNotBeEmpty)
				So(s.AuthorID, ShouldNotBeEmpty)
				So(s.Anonymous, ShouldBeTrue)
				So(s.Fingerprint, ShouldEqual, "fp1")
			})

			Convey("And the token parses back to the same session", func() {
				parsed, err := iss.Parse(token)
				So(err, ShouldBeNil)
				So(parsed.AuthorID, ShouldEqual, s.AuthorID)
				So(parsed.Fingerprint, ShouldEqual, "fp1")
			})

			Convey("And it expires after the TTL", func() {
				now = now.Add(2 * time.Hour)
				_, err := iss.Parse(token)
				So(errors.Is(err, session.ErrExpiredToken), ShouldBeTrue)
			})
		})

		Convey("When starting with a valid custom token", func() {
			_, custom, err := iss.Mint("author-42", "old-fp", false)
			So(err, ShouldBeNil)
			s, _, err := iss.Start(ctx, custom, "new-fp")

			Convey("Then the author id is kept and the fingerprint refreshed", func() {
				So(err, ShouldBeNil)
				So(s.AuthorID, ShouldEqual, "author-42")
				So(s.Anonymous, ShouldBeFalse)
				So(s.Fingerprint, ShouldEqual, "new-fp")
			})
		})

		Convey("When starting with a bad custom token", func() {
			s, _, err := iss.Start(ctx, "garbage", "fp")

			Convey("Then it falls back to anonymous", func() {
				So(err, ShouldBeNil)
				So(s.Anonymous, ShouldBeTrue)
				So(s.AuthorID, ShouldNotBeEmpty)
			})
		})

		Convey("When a token is signed by another secret or issuer", func() {
			_, foreign, _ := session.NewIssuer("other", session.WithClock(clock)).Mint("a", "f", true)
			_, err := iss.Parse(foreign)
			So(errors.Is(err, session.ErrInvalidToken), ShouldBeTrue)

			_, otherIss, _ := session.NewIssuer("secret", session.WithIssuerName("else"), session.WithClock(clock)).Mint("a", "f", true)
			_, err = iss.Parse(otherIss)
			So(errors.Is(err, session.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the token is empty", func() {
			_, err := iss.Parse("  ")
			So(errors.Is(err, session.ErrInvalidToken), ShouldBeTrue)
		})
	})

	Convey("Given an issuer without a secret", t, func() {
		_, _, err := session.NewIssuer("").Start(context.Background(), "", "fp")
		So(errors.Is(err, session.ErrNoSecret), ShouldBeTrue)
	})
}

func TestContext(t *testing.T) {
	Convey("Given a context carrying a session", t, func() {
		ctx := session.WithSession(context.Background(), session.Session{AuthorID: "a"})
		s, ok := session.FromContext(ctx)
		So(ok, ShouldBeTrue)
		So(s.AuthorID, ShouldEqual, "a")
		_, ok = session.FromContext(context.Background())
		So(ok, ShouldBeFalse)
	})
}
