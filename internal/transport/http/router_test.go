package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "vcanchor/internal/jwt_token"
	"vcanchor/internal/platform/health"
	"vcanchor/pkg/requestcontext"
)

// stubRoutes mounts one operator and one public route under prefix.
type stubRoutes struct{ prefix string }

func (s stubRoutes) Register(r chi.Router) {
	r.Post("/"+s.prefix+"/op", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Subject", requestcontext.Subject(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s stubRoutes) RegisterPublic(r chi.Router) {
	r.Get("/"+s.prefix+"/public", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Client", requestcontext.ClientDevice(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func newTestRouter(t *testing.T) (http.Handler, *jwttoken.JWTService) {
	t.Helper()
	jwt := jwttoken.NewJWTService("test-key", "vcanchor", "vcanchor-api", time.Hour)
	router := NewRouter(Routes{
		Health:       health.New("test"),
		Credentials:  stubRoutes{"credentials"},
		Anchor:       stubRoutes{"anchor"},
		Claims:       stubRoutes{"claims"},
		Verification: stubRoutes{"verification"},
	}, jwttoken.NewJWTServiceAdapter(jwt), Config{
		RequestTimeout: time.Second,
		Scopes:         Scopes{Credentials: "credentials", Anchor: "anchor", Claims: "claims"},
	}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return router, jwt
}

func token(t *testing.T, jwt *jwttoken.JWTService, scopes ...string) string {
	t.Helper()
	ctx := requestcontext.WithTime(context.Background(), time.Now())
	tok, err := jwt.GenerateOperatorToken(ctx, "operator@registrar", scopes)
	require.NoError(t, err)
	return tok
}

func serve(router http.Handler, method, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPublicRoutesNeedNoToken(t *testing.T) {
	router, _ := newTestRouter(t)
	for _, prefix := range []string{"anchor", "claims", "verification"} {
		w := serve(router, http.MethodGet, "/"+prefix+"/public", "")
		assert.Equal(t, http.StatusOK, w.Code, prefix)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"), prefix)
	}
}

func TestClientDeviceLabelled(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/claims/public", nil)
	req.Header.Set("User-Agent", "anchorctl/0.3.1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anchorctl", w.Header().Get("X-Client"))
}

func TestOperatorRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t)

	w := serve(router, http.MethodPost, "/anchor/op", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(router, http.MethodPost, "/anchor/op", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOperatorRoutesRequireModuleScope(t *testing.T) {
	router, jwt := newTestRouter(t)
	tok := token(t, jwt, "claims")

	w := serve(router, http.MethodPost, "/claims/op", tok)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "operator@registrar", w.Header().Get("X-Subject"))

	w = serve(router, http.MethodPost, "/anchor/op", tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "scope"))

	w = serve(router, http.MethodPost, "/credentials/op", token(t, jwt, "credentials", "anchor"))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHealthAndMetricsAreMounted(t *testing.T) {
	router, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/metrics", "").Code)
}

func TestUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/missing", "").Code)
}
