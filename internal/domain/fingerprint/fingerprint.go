// Package fingerprint derives a short device identifier from client attributes.
//
// The identifier is a soft duplicate-review deterrent. It is trivially
// spoofable and must not be treated as authentication.
package fingerprint

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Attributes are the browser/device properties the fingerprint is built from.
type Attributes struct {
	UserAgent      string `json:"user_agent"`
	Language       string `json:"language"`
	ScreenWidth    int    `json:"screen_width"`
	ScreenHeight   int    `json:"screen_height"`
	PixelDepth     int    `json:"pixel_depth"`
	ColorDepth     int    `json:"color_depth"`
	TimezoneOffset int    `json:"timezone_offset"`
}

// String renders the attributes as ua-lang-WxH-pixel-color-tz.
func (a Attributes) String() string {
	return fmt.Sprintf("%s-%s-%dx%d-%d-%d-%d",
		a.UserAgent, a.Language, a.ScreenWidth, a.ScreenHeight, a.PixelDepth, a.ColorDepth, a.TimezoneOffset)
}

// Compute hashes the attribute string into lowercase hex.
func Compute(a Attributes) string {
	return Hash(a.String())
}

// Hash is the 31-multiplier rolling hash over UTF-16 code units, wrapped to a
// signed 32-bit integer, rendered as the hex of its absolute value.
func Hash(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 16)
}

// FromRequest fills the user agent and language from request headers when the
// client did not send them.
func FromRequest(r *http.Request, a Attributes) Attributes {
	if a.UserAgent == "" {
		a.UserAgent = r.UserAgent()
	}
	if a.Language == "" {
		a.Language = primaryLanguage(r.Header.Get("Accept-Language"))
	}
	return a
}

// primaryLanguage returns the first tag of an Accept-Language header.
func primaryLanguage(header string) string {
	first, _, _ := strings.Cut(header, ",")
	tag, _, _ := strings.Cut(first, ";")
	return strings.TrimSpace(tag)
}
