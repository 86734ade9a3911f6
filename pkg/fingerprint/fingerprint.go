// Package fingerprint derives a device fingerprint from coarse client
// signals.
//
// A fingerprint is a convenience heuristic for recognising a returning
// device. Fingerprints collide and can be spoofed, so they are never an
// authentication factor: trust is only granted after a successful second
// factor and always expires.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
)

// Signals are the inputs to Generate. Zero values are allowed.
type Signals struct {
	ScreenWidth  int    `json:"screen_width"`
	ScreenHeight int    `json:"screen_height"`
	Timezone     string `json:"timezone"`
	Platform     string `json:"platform"`
	Browser      string `json:"browser"`
}

// version prefixes the digest input so a future change to the
// canonical form never matches an old fingerprint.
const version = "fp1"

// Generate returns the hex SHA-256 of the canonicalised signals.
func Generate(s Signals) string {
	s = s.Canonical()
	parts := []string{
		version,
		strconv.Itoa(s.ScreenWidth) + "x" + strconv.Itoa(s.ScreenHeight),
		s.Timezone,
		s.Platform,
		s.Browser,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Canonical trims and lowercases the string signals and reduces platform
// and browser to their families. Width and height are ordered so that a
// rotated screen yields the same fingerprint.
func (s Signals) Canonical() Signals {
	if s.ScreenWidth < 0 {
		s.ScreenWidth = 0
	}
	if s.ScreenHeight < 0 {
		s.ScreenHeight = 0
	}
	if s.ScreenHeight > s.ScreenWidth {
		s.ScreenWidth, s.ScreenHeight = s.ScreenHeight, s.ScreenWidth
	}
	s.Timezone = strings.TrimSpace(s.Timezone)
	s.Platform = PlatformFamily(s.Platform)
	s.Browser = BrowserFamily(s.Browser)
	return s
}

// FromRequest fills Platform and Browser from the User-Agent header when
// the client did not send them.
func FromRequest(r *http.Request, s Signals) Signals {
	ua := r.UserAgent()
	if s.Platform == "" {
		s.Platform = ua
	}
	if s.Browser == "" {
		s.Browser = ua
	}
	return s
}

// PlatformFamily maps a platform string or user agent to a coarse family.
func PlatformFamily(v string) string {
	v = strings.ToLower(v)
	switch {
	case v == "":
		return ""
	case strings.Contains(v, "android"):
		return "android"
	case strings.Contains(v, "iphone"), strings.Contains(v, "ipad"), strings.Contains(v, "ios"):
		return "ios"
	case strings.Contains(v, "mac"), strings.Contains(v, "darwin"):
		return "macos"
	case strings.Contains(v, "win"):
		return "windows"
	case strings.Contains(v, "cros"):
		return "chromeos"
	case strings.Contains(v, "linux"), strings.Contains(v, "x11"):
		return "linux"
	default:
		return "other"
	}
}

// BrowserFamily maps a browser string or user agent to a coarse family.
// Order matters: Edge and Opera user agents also contain "chrome", and
// Chrome user agents contain "safari".
func BrowserFamily(v string) string {
	v = strings.ToLower(v)
	switch {
	case v == "":
		return ""
	case strings.Contains(v, "edg"):
		return "edge"
	case strings.Contains(v, "opr"), strings.Contains(v, "opera"):
		return "opera"
	case strings.Contains(v, "firefox"), strings.Contains(v, "fxios"):
		return "firefox"
	case strings.Contains(v, "chrome"), strings.Contains(v, "crios"), strings.Contains(v, "chromium"):
		return "chrome"
	case strings.Contains(v, "safari"):
		return "safari"
	default:
		return "other"
	}
}
