//go:build e2e

package anchor

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

// RegisterSteps registers credential and anchor queue steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &anchorSteps{tc: tc}

	ctx.Step(`^a credential issued from template "([^"]*)"$`, steps.issueCredential)
	ctx.Step(`^I queue the credential for "(now|batch)" anchoring$`, steps.enqueue)
	ctx.Step(`^I approve the credential for "(single|batch)" minting$`, steps.approve)
	ctx.Step(`^I run single anchoring for the credential$`, steps.runSingle)
	ctx.Step(`^I mint the "(now|batch|all)" batch$`, steps.mintBatch)
	ctx.Step(`^the credential anchoring state should be "([^"]*)"$`, steps.anchoringStateShouldBe)
	ctx.Step(`^the credential should have an inclusion proof$`, steps.shouldHaveProof)
}

type anchorSteps struct {
	tc TestContext
}

func (s *anchorSteps) expect(status int) error {
	if got := s.tc.GetLastResponseStatus(); got != status {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s", status, got, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *anchorSteps) issueCredential(ctx context.Context, template string) error {
	err := s.tc.POST("/credentials", map[string]any{
		"template_id": template,
		"subject":     map[string]any{"name": "E2E Holder", "degree": "BSc"},
	})
	if err != nil {
		return err
	}
	if err := s.expect(201); err != nil {
		return err
	}
	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.Save("credId", fmt.Sprint(id))
	return nil
}

func (s *anchorSteps) enqueue(ctx context.Context, mode string) error {
	return s.tc.POST("/anchor/"+mode+"/"+s.tc.Var("credId"), nil)
}

func (s *anchorSteps) approve(ctx context.Context, mode string) error {
	return s.tc.POST("/anchor/approve", map[string]any{
		"credIds":       []string{s.tc.Var("credId")},
		"approved_mode": mode,
	})
}

func (s *anchorSteps) runSingle(ctx context.Context) error {
	return s.tc.POST("/anchor/run-single/"+s.tc.Var("credId"), nil)
}

func (s *anchorSteps) mintBatch(ctx context.Context, mode string) error {
	return s.tc.POST("/anchor/mint-batch?mode="+mode, nil)
}

func (s *anchorSteps) anchoringStateShouldBe(ctx context.Context, state string) error {
	if err := s.tc.GET("/credentials/" + s.tc.Var("credId")); err != nil {
		return err
	}
	if err := s.expect(200); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("anchoring.state")
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != state {
		return fmt.Errorf("expected anchoring state %s but got %v", state, got)
	}
	return nil
}

func (s *anchorSteps) shouldHaveProof(ctx context.Context) error {
	if err := s.tc.GET("/anchor/credentials/" + s.tc.Var("credId") + "/proof"); err != nil {
		return err
	}
	if err := s.expect(200); err != nil {
		return err
	}
	_, err := s.tc.GetResponseField("merkle_root")
	return err
}
