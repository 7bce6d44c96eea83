//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	jwttoken "vcanchor/internal/jwt_token"
)

// Defaults match config.go so the suite runs against `go run ./cmd/server`.
const (
	devSigningKey = "dev-secret-key-change-in-production"
	devIssuer     = "vcanchor"
	devAudience   = "vcanchor-api"
)

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	Token            string
	LastResponse     *http.Response
	LastResponseBody []byte
	vars             map[string]string
}

// NewTestContext creates a new test context
func NewTestContext() *TestContext {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &TestContext{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		vars:       map[string]string{},
	}
}

// UseOperator signs a token for subject with scopes using the dev key, or
// VCANCHOR_SERVER_JWT_SIGNING_KEY when the target runs with another key.
func (tc *TestContext) UseOperator(subject string, scopes []string) error {
	key := os.Getenv("VCANCHOR_SERVER_JWT_SIGNING_KEY")
	if key == "" {
		key = devSigningKey
	}
	svc := jwttoken.NewJWTService(key, devIssuer, devAudience, 15*time.Minute)
	token, err := svc.GenerateOperatorToken(context.Background(), subject, scopes)
	if err != nil {
		return fmt.Errorf("sign operator token: %w", err)
	}
	tc.Token = token
	return nil
}

func (tc *TestContext) ClearToken() {
	tc.Token = ""
}

// POST makes a POST request and stores the response. A nil body sends none.
func (tc *TestContext) POST(path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	return tc.do(http.MethodPost, path, reader)
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+tc.Expand(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.Token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.Token)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// Expand replaces {name} with values saved earlier in the scenario.
func (tc *TestContext) Expand(s string) string {
	for k, v := range tc.vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func (tc *TestContext) Save(name, value string) {
	tc.vars[name] = value
}

func (tc *TestContext) Var(name string) string {
	return tc.vars[name]
}

// GetResponseField extracts a field from the JSON response. Dots walk into
// nested objects: "anchoring.state".
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
		if data, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
	}
	return data, nil
}

// ResponseContains checks if the response body contains a field or text
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}
	_, err := tc.GetResponseField(text)
	return err == nil
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}
