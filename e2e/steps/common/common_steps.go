//go:build e2e

package common

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	UseOperator(subject string, scopes []string) error
	ClearToken()
	POST(path string, body any) error
	GET(path string) error
	Expand(s string) string
	Save(name, value string)
	GetResponseField(field string) (any, error)
	ResponseContains(field string) bool
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions used across features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Background steps
	ctx.Step(`^the anchoring service is running$`, steps.serviceIsRunning)
	ctx.Step(`^I am an operator with scopes "([^"]*)"$`, steps.operatorWithScopes)
	ctx.Step(`^I am not authenticated$`, steps.notAuthenticated)

	// Generic request steps
	ctx.Step(`^I POST to "([^"]*)"$`, steps.postWithoutBody)
	ctx.Step(`^I POST to "([^"]*)" with body:$`, steps.postWithBody)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)

	// Response assertion steps
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^I save the response field "([^"]*)" as "([^"]*)"$`, steps.saveResponseField)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serviceIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/health/live"); err != nil {
		return err
	}
	return s.responseStatusShouldBe(ctx, 200)
}

func (s *commonSteps) operatorWithScopes(ctx context.Context, scopes string) error {
	return s.tc.UseOperator("e2e-operator", strings.Split(scopes, ","))
}

func (s *commonSteps) notAuthenticated(ctx context.Context) error {
	s.tc.ClearToken()
	return nil
}

func (s *commonSteps) postWithoutBody(ctx context.Context, path string) error {
	return s.tc.POST(path, nil)
}

func (s *commonSteps) postWithBody(ctx context.Context, path string, doc *godog.DocString) error {
	var body any
	if err := json.Unmarshal([]byte(s.tc.Expand(doc.Content)), &body); err != nil {
		return fmt.Errorf("body is not JSON: %w", err)
	}
	return s.tc.POST(path, body)
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	actualStatus := s.tc.GetLastResponseStatus()
	if actualStatus != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s", expectedStatus, actualStatus, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseShouldContain(ctx context.Context, field string) error {
	if !s.tc.ResponseContains(field) {
		return fmt.Errorf("response does not contain field: %s\nResponse: %s", field, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	actualValue, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(actualValue) != s.tc.Expand(expectedValue) {
		return fmt.Errorf("field %s: expected %s but got %v", field, expectedValue, actualValue)
	}
	return nil
}

func (s *commonSteps) saveResponseField(ctx context.Context, field, name string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	s.tc.Save(name, fmt.Sprint(value))
	return nil
}
