package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"vcanchor/pkg/requestcontext"
)

type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(tokenString string) (*Claims, error) {
	args := m.Called(tokenString)
	if claims := args.Get(0); claims != nil {
		return claims.(*Claims), args.Error(1)
	}
	return nil, args.Error(1)
}

type captureHandler struct {
	called  bool
	context context.Context
}

func (h *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.context = r.Context()
	w.WriteHeader(http.StatusOK)
}

type AuthMiddlewareTestSuite struct {
	suite.Suite
	validator *MockTokenValidator
	logger    *slog.Logger
	next      *captureHandler
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareTestSuite))
}

func (s *AuthMiddlewareTestSuite) SetupTest() {
	s.validator = new(MockTokenValidator)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.next = &captureHandler{}
}

func (s *AuthMiddlewareTestSuite) serve(header string, mw ...func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	var h http.Handler = s.next
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	req := httptest.NewRequest(http.MethodPost, "/anchor/now/vc_1", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func (s *AuthMiddlewareTestSuite) TestMissingHeader() {
	w := s.serve("", RequireAuth(s.validator, s.logger))

	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.next.called)
	s.validator.AssertNotCalled(s.T(), "ValidateToken", mock.Anything)
}

func (s *AuthMiddlewareTestSuite) TestNonBearerScheme() {
	w := s.serve("Basic abc", RequireAuth(s.validator, s.logger))

	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.next.called)
}

func (s *AuthMiddlewareTestSuite) TestInvalidToken() {
	s.validator.On("ValidateToken", "bad").Return(nil, errors.New("invalid token"))

	w := s.serve("Bearer bad", RequireAuth(s.validator, s.logger))

	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.next.called)
	s.validator.AssertExpectations(s.T())
}

func (s *AuthMiddlewareTestSuite) TestValidTokenPopulatesSubject() {
	s.validator.On("ValidateToken", "good").Return(&Claims{Subject: "registrar", Scopes: []string{"anchor"}}, nil)

	w := s.serve("Bearer good", RequireAuth(s.validator, s.logger), RequireScope("anchor", s.logger))

	s.Equal(http.StatusOK, w.Code)
	s.Require().True(s.next.called)
	s.Equal("registrar", requestcontext.Subject(s.next.context))
}

func (s *AuthMiddlewareTestSuite) TestMissingScope() {
	s.validator.On("ValidateToken", "good").Return(&Claims{Subject: "registrar", Scopes: []string{"claims"}}, nil)

	w := s.serve("Bearer good", RequireAuth(s.validator, s.logger), RequireScope("anchor", s.logger))

	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.next.called)
}
