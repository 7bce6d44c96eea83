//go:build e2e

package verification

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	Save(name, value string)
	Var(name string) string
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers verifier and holder handshake steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &verificationSteps{tc: tc}

	ctx.Step(`^I open a verification session for the credential$`, steps.openSession)
	ctx.Step(`^I begin the session as "([^"]*)" for "([^"]*)"$`, steps.begin)
	ctx.Step(`^the holder (approves|declines) the request$`, steps.holderAnswers)
	ctx.Step(`^the verification result should be (valid|invalid) with reason "([^"]*)"$`, steps.resultShouldBe)
}

type verificationSteps struct {
	tc TestContext
}

func (s *verificationSteps) path() string {
	return "/verification/session/" + s.tc.Var("sessionId")
}

func (s *verificationSteps) openSession(ctx context.Context) error {
	if err := s.tc.POST("/verification/session", map[string]any{"credential_id": s.tc.Var("credId")}); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("expected 201 but got %d\nResponse: %s", status, string(s.tc.GetLastResponseBody()))
	}
	id, err := s.tc.GetResponseField("session_id")
	if err != nil {
		return err
	}
	s.tc.Save("sessionId", fmt.Sprint(id))
	return nil
}

func (s *verificationSteps) begin(ctx context.Context, org, purpose string) error {
	return s.tc.POST(s.path()+"/begin", map[string]any{"org": org, "purpose": purpose})
}

func (s *verificationSteps) holderAnswers(ctx context.Context, answer string) error {
	return s.tc.POST(s.path()+"/present", map[string]any{
		"credential_id": s.tc.Var("credId"),
		"approve":       answer == "approves",
	})
}

func (s *verificationSteps) resultShouldBe(ctx context.Context, validity, reason string) error {
	if err := s.tc.GET(s.path()); err != nil {
		return err
	}
	valid, err := s.tc.GetResponseField("result.valid")
	if err != nil {
		return err
	}
	gotReason, err := s.tc.GetResponseField("result.reason")
	if err != nil {
		return err
	}
	if valid != (validity == "valid") || fmt.Sprint(gotReason) != reason {
		return fmt.Errorf("expected %s/%s but got valid=%v reason=%v", validity, reason, valid, gotReason)
	}
	return nil
}
