//go:build e2e

package claim

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"

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

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// RegisterSteps registers claim ticket and QR frame steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &claimSteps{tc: tc}

	ctx.Step(`^I request a claim ticket for the credential$`, steps.requestTicket)
	ctx.Step(`^the claim should have (\d+) frames$`, steps.framesShouldBe)
	ctx.Step(`^frame (\d+) should be a PNG image$`, steps.frameShouldBePNG)
	ctx.Step(`^I redeem the claim token$`, steps.redeem)
	ctx.Step(`^the claim URL should report state "([^"]*)"$`, steps.claimURLState)
}

type claimSteps struct {
	tc TestContext
}

func (s *claimSteps) requestTicket(ctx context.Context) error {
	err := s.tc.POST("/claims", map[string]any{"credId": s.tc.Var("credId"), "singleActive": true})
	if err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 && status != 201 {
		return fmt.Errorf("expected 200 or 201 but got %d\nResponse: %s", status, string(s.tc.GetLastResponseBody()))
	}
	for field, name := range map[string]string{"claim_id": "claimId", "token": "claimToken", "claim_url": "claimURL"} {
		v, err := s.tc.GetResponseField(field)
		if err != nil {
			return err
		}
		s.tc.Save(name, fmt.Sprint(v))
	}
	return nil
}

func (s *claimSteps) framesShouldBe(ctx context.Context, n int) error {
	if err := s.tc.GET("/claims/" + s.tc.Var("claimId") + "/qr-embed/frames"); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("framesCount")
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != strconv.Itoa(n) {
		return fmt.Errorf("expected %d frames but got %v", n, got)
	}
	return nil
}

func (s *claimSteps) frameShouldBePNG(ctx context.Context, i int) error {
	if err := s.tc.GET("/claims/" + s.tc.Var("claimId") + "/qr-embed/frame?i=" + strconv.Itoa(i)); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("expected 200 but got %d", status)
	}
	if !bytes.HasPrefix(s.tc.GetLastResponseBody(), pngMagic) {
		return fmt.Errorf("frame %d is not a PNG", i)
	}
	return nil
}

func (s *claimSteps) redeem(ctx context.Context) error {
	return s.tc.POST("/claims/redeem", map[string]any{"token": s.tc.Var("claimToken")})
}

func (s *claimSteps) claimURLState(ctx context.Context, want string) error {
	link, err := url.Parse(s.tc.Var("claimURL"))
	if err != nil {
		return fmt.Errorf("claim_url is not a URL: %w", err)
	}
	if err := s.tc.GET(link.Path); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("GET %s: expected 200 but got %d", link.Path, status)
	}
	got, err := s.tc.GetResponseField("state")
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("expected claim state %q but got %v", want, got)
	}
	return nil
}
