package device

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"vcanchor/pkg/requestcontext"
)

func TestLabel(t *testing.T) {
	t.Run("browser on desktop", func(t *testing.T) {
		got := Label("Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0")
		assert.True(t, strings.HasPrefix(got, "Firefox on Linux"), got)
	})

	t.Run("cli client by product name", func(t *testing.T) {
		assert.Equal(t, "anchorctl", Label("anchorctl/0.3.1"))
		assert.Equal(t, "Go-http-client", Label("Go-http-client/1.1"))
	})

	t.Run("empty user agent has no label", func(t *testing.T) {
		assert.Empty(t, Label("   "))
	})

	t.Run("oversized agent is truncated", func(t *testing.T) {
		assert.Len(t, Label(strings.Repeat("x", 300)), MaxLabelLength)
	})
}

func TestDevice(t *testing.T) {
	var got string
	h := Device(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.ClientDevice(r.Context())
	}))

	t.Run("stores the label", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/anchor/queue", nil)
		req.Header.Set("User-Agent", "anchorctl/0.3.1")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "anchorctl", got)
	})

	t.Run("no user agent leaves the context untouched", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/anchor/queue", nil)
		req.Header.Del("User-Agent")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Empty(t, got)
	})
}
