package auth

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	SetToken(token string)
	GetLastHeader(key string) string
}

// RegisterSteps registers bearer token steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I send no credentials$`, steps.noCredentials)
	ctx.Step(`^I use the bearer token "([^"]*)"$`, steps.useToken)
	ctx.Step(`^the response should challenge for a bearer token$`, steps.shouldChallenge)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) noCredentials(ctx context.Context) error {
	s.tc.SetToken("")
	return nil
}

func (s *authSteps) useToken(ctx context.Context, token string) error {
	s.tc.SetToken(token)
	return nil
}

func (s *authSteps) shouldChallenge(ctx context.Context) error {
	if got := s.tc.GetLastHeader("WWW-Authenticate"); got == "" {
		return fmt.Errorf("expected a WWW-Authenticate challenge")
	}
	return nil
}
