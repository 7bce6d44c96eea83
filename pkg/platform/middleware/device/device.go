// Package device labels each request with the caller's client ("Chrome on
// macOS", "anchorctl") so audit events show which tool drove an operation.
package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"vcanchor/pkg/requestcontext"
)

// MaxLabelLength bounds what a caller-supplied User-Agent can put into
// audit records.
const MaxLabelLength = 64

// Device stores the client label for the request's User-Agent in the context.
// Requests without a User-Agent carry no label.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if label := Label(r.UserAgent()); label != "" {
			ctx = requestcontext.WithClientDevice(ctx, label)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Label turns a User-Agent into "Browser on OS". Non-browser clients such
// as anchorctl or Go-http-client are reported by product name.
func Label(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	if ua.Mozilla() == "" {
		// CLI and SDK clients: "anchorctl/1.0" -> "anchorctl"
		name, _, _ := strings.Cut(userAgent, "/")
		return truncate(name)
	}

	browser, _ := ua.Browser()
	if ua.Bot() {
		return truncate("bot " + browser)
	}
	os := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		os = ua.Platform()
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return truncate(browser + " on " + os)
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > MaxLabelLength {
		return s[:MaxLabelLength]
	}
	return s
}
