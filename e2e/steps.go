package e2e

import (
	"github.com/cucumber/godog"

	"docverify/e2e/steps/auth"
	"docverify/e2e/steps/common"
	"docverify/e2e/steps/document"
	"docverify/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Generic requests and response assertions
	common.RegisterSteps(ctx, tc)

	// Verification, edge detection and history lookups
	document.RegisterSteps(ctx, tc, document.Images{
		"card": CardImage(),
		"flat": FlatImage(),
	})

	// Bearer token handling
	auth.RegisterSteps(ctx, tc)

	// Per-client throttling
	ratelimit.RegisterSteps(ctx, tc, FlatImage())
}
