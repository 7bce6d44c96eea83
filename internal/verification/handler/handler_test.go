package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"vcanchor/internal/verification/handler/mocks"
	"vcanchor/internal/verification/models"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/testutil"
)

type VerificationHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestVerificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(VerificationHandlerSuite))
}

func (s *VerificationHandlerSuite) SetupTest() {
	s.service = mocks.NewMockService(gomock.NewController(s.T()))
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterPublic(s.router)
}

func (s *VerificationHandlerSuite) do(method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(method, target, &buf))
	return w
}

func (s *VerificationHandlerSuite) decode(w *httptest.ResponseRecorder) models.SessionResponse {
	var resp models.SessionResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func session(state models.State, result *models.Result) *models.Session {
	return &models.Session{
		ID:        "vs_1",
		State:     state,
		Result:    result,
		CreatedAt: testutil.FixedNow,
		ExpiresAt: testutil.FixedNow.Add(24 * time.Hour),
	}
}

func (s *VerificationHandlerSuite) TestCreate() {
	s.Run("credential id is optional", func() {
		s.service.EXPECT().Create(gomock.Any(), "").Return(session(models.StateCreated, nil), nil)

		w := s.do(http.MethodPost, "/verification/session", nil)

		s.Require().Equal(http.StatusCreated, w.Code)
		resp := s.decode(w)
		s.Equal("vs_1", resp.SessionID)
		s.Equal(models.StateCreated, resp.State)
		s.Equal(models.ReasonPending, resp.Result.Reason)
	})

	s.Run("empty body of unknown length is accepted", func() {
		s.service.EXPECT().Create(gomock.Any(), "").Return(session(models.StateCreated, nil), nil)

		req := httptest.NewRequest(http.MethodPost, "/verification/session", io.NopCloser(strings.NewReader("")))
		req.ContentLength = -1
		req.TransferEncoding = []string{"chunked"}
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		s.Equal(http.StatusCreated, w.Code)
	})

	s.Run("malformed body is still rejected", func() {
		w := s.do(http.MethodPost, "/verification/session", json.RawMessage(`"not an object"`))

		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("credential id is trimmed", func() {
		s.service.EXPECT().Create(gomock.Any(), "vc_a").Return(session(models.StateCreated, nil), nil)

		w := s.do(http.MethodPost, "/verification/session", map[string]string{"credential_id": " vc_a "})

		s.Equal(http.StatusCreated, w.Code)
	})
}

func (s *VerificationHandlerSuite) TestBegin() {
	s.Run("moves the session to awaiting_holder", func() {
		verifier := models.Verifier{Org: "Acme", Contact: "hr@acme.test", Purpose: "hiring"}
		s.service.EXPECT().Begin(gomock.Any(), "vs_1", verifier).Return(session(models.StateAwaitingHolder, nil), nil)

		w := s.do(http.MethodPost, "/verification/session/vs_1/begin", verifier)

		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal(models.StateAwaitingHolder, s.decode(w).State)
	})

	s.Run("second begin is a conflict", func() {
		s.service.EXPECT().Begin(gomock.Any(), "vs_1", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidState, "verification session already awaiting_holder"))

		w := s.do(http.MethodPost, "/verification/session/vs_1/begin", map[string]string{"org": "Acme", "purpose": "hiring"})

		s.Equal(http.StatusConflict, w.Code)
		s.Contains(w.Body.String(), "invalid_state")
	})

	s.Run("org and purpose are required", func() {
		w := s.do(http.MethodPost, "/verification/session/vs_1/begin", map[string]string{"contact": "hr@acme.test"})
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *VerificationHandlerSuite) TestGetResult() {
	s.Run("pending while awaiting the holder", func() {
		s.service.EXPECT().GetResult(gomock.Any(), "vs_1").Return(session(models.StateAwaitingHolder, nil), nil)

		w := s.do(http.MethodGet, "/verification/session/vs_1", nil)

		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal("no-store", w.Header().Get("Cache-Control"))
		s.JSONEq(`{"valid":false,"reason":"pending"}`, string(mustField(s, w, "result")))
	})

	s.Run("resolved result", func() {
		s.service.EXPECT().GetResult(gomock.Any(), "vs_1").
			Return(session(models.StateResolved, &models.Result{Valid: true, Reason: models.ReasonNotAnchored}), nil)

		w := s.do(http.MethodGet, "/verification/session/vs_1", nil)

		s.Require().Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"valid":true,"reason":"not_anchored"}`, string(mustField(s, w, "result")))
	})

	s.Run("unknown session", func() {
		s.service.EXPECT().GetResult(gomock.Any(), "vs_x").Return(nil, dErrors.New(dErrors.CodeNotFound, "verification session not found"))

		w := s.do(http.MethodGet, "/verification/session/vs_x", nil)

		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *VerificationHandlerSuite) TestPresent() {
	s.Run("approval is forwarded", func() {
		s.service.EXPECT().Present(gomock.Any(), "vs_1", "vc_a", true).
			Return(session(models.StateResolved, &models.Result{Valid: true, Reason: models.ReasonOK}), nil)

		w := s.do(http.MethodPost, "/verification/session/vs_1/present", map[string]any{"credential_id": "vc_a", "approve": true})

		s.Require().Equal(http.StatusOK, w.Code)
		resp := s.decode(w)
		s.Equal(models.StateResolved, resp.State)
		s.True(resp.Result.Valid)
	})

	s.Run("missing approve means decline", func() {
		s.service.EXPECT().Present(gomock.Any(), "vs_1", "", false).
			Return(session(models.StateResolved, &models.Result{Reason: models.ReasonHolderDeclined}), nil)

		w := s.do(http.MethodPost, "/verification/session/vs_1/present", map[string]any{})

		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal(models.ReasonHolderDeclined, s.decode(w).Result.Reason)
	})

	s.Run("expired session", func() {
		s.service.EXPECT().Present(gomock.Any(), "vs_1", "vc_a", true).
			Return(nil, dErrors.New(dErrors.CodeExpired, "verification session has expired"))

		w := s.do(http.MethodPost, "/verification/session/vs_1/present", map[string]any{"credential_id": "vc_a", "approve": true})

		s.Equal(http.StatusGone, w.Code)
	})
}

func mustField(s *VerificationHandlerSuite, w *httptest.ResponseRecorder, field string) json.RawMessage {
	var raw map[string]json.RawMessage
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &raw))
	v, ok := raw[field]
	s.Require().True(ok, "missing %s", field)
	return v
}
