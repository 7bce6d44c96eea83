//go:build e2e

package e2e

import (
	"github.com/cucumber/godog"

	"vcanchor/e2e/steps/anchor"
	"vcanchor/e2e/steps/claim"
	"vcanchor/e2e/steps/common"
	"vcanchor/e2e/steps/verification"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	anchor.RegisterSteps(ctx, tc)
	claim.RegisterSteps(ctx, tc)
	verification.RegisterSteps(ctx, tc)
}
