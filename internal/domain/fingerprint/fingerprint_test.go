package fingerprint

import (
	"net/http/httptest"
	"strconv"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHash(t *testing.T) {
	Convey("Given the rolling hash", t, func() {
		Convey("The empty string hashes to zero", func() {
			So(Hash(""), ShouldEqual, "0")
		})

		Convey("Known inputs produce known outputs", func() {
			// "abc" = 97*31^2 + 98*31 + 99 = 96354
			So(Hash("abc"), ShouldEqual, "17862")
			So(Hash("a"), ShouldEqual, "61")
		})

		Convey("Negative hashes are rendered as their absolute value", func() {
			// "polygenelubricants" wraps to math.MinInt32.
			So(Hash("polygenelubricants"), ShouldEqual, "80000000")
		})

		Convey("Characters outside the BMP hash as surrogate pairs", func() {
			// U+1F600 is D83D DE00.
			want := int64((0xD83D*31 + 0xDE00))
			So(Hash("\U0001F600"), ShouldEqual, strconv.FormatInt(want, 16))
		})

		Convey("The hash is deterministic", func() {
			a := Attributes{UserAgent: "UA", Language: "en-US", ScreenWidth: 1920, ScreenHeight: 1080,
				PixelDepth: 24, ColorDepth: 24, TimezoneOffset: -60}
			So(Compute(a), ShouldEqual, Compute(a))
			So(a.String(), ShouldEqual, "UA-en-US-1920x1080-24-24--60")
			b := a
			b.TimezoneOffset = 0
			So(Compute(b), ShouldNotEqual, Compute(a))
		})
	})
}

func TestFromRequest(t *testing.T) {
	Convey("Given a request with browser headers", t, func() {
		r := httptest.NewRequest("POST", "/sessions", nil)
		r.Header.Set("User-Agent", "Mozilla/5.0")
		r.Header.Set("Accept-Language", "de-DE;q=0.9, en;q=0.8")

		Convey("Missing attributes are filled from headers", func() {
			a := FromRequest(r, Attributes{ScreenWidth: 10})
			So(a.UserAgent, ShouldEqual, "Mozilla/5.0")
			So(a.Language, ShouldEqual, "de-DE")
			So(a.ScreenWidth, ShouldEqual, 10)
		})

		Convey("Client-sent attributes win", func() {
			a := FromRequest(r, Attributes{UserAgent: "custom", Language: "fr"})
			So(a.UserAgent, ShouldEqual, "custom")
			So(a.Language, ShouldEqual, "fr")
		})
	})
}
