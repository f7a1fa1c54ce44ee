package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Upload(path, contentType string, image []byte, fields map[string]string) error
	GetLastResponseStatus() int
	GetLastHeader(key string) string
}

// RegisterSteps registers per-client throttling steps. The scenarios assume
// the server runs with a small RATE_LIMIT_BURST.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext, image []byte) {
	steps := &ratelimitSteps{tc: tc, image: image}

	ctx.Step(`^I send detect-edges requests until one is throttled, at most (\d+)$`, steps.sendUntilThrottled)
	ctx.Step(`^a request should have been throttled$`, steps.shouldBeThrottled)
	ctx.Step(`^the retry delay should be at least (\d+) seconds?$`, steps.retryAfterAtLeast)
}

type ratelimitSteps struct {
	tc        TestContext
	image     []byte
	throttled bool
	sent      int
}

func (s *ratelimitSteps) sendUntilThrottled(ctx context.Context, max int) error {
	s.throttled = false
	for s.sent = 0; s.sent < max; s.sent++ {
		if err := s.tc.Upload("/api/v1/document/detect-edges", "image/png", s.image, nil); err != nil {
			return err
		}
		if s.tc.GetLastResponseStatus() == http.StatusTooManyRequests {
			s.throttled = true
			return nil
		}
	}
	return nil
}

func (s *ratelimitSteps) shouldBeThrottled(ctx context.Context) error {
	if !s.throttled {
		return fmt.Errorf("no request throttled after %d attempts", s.sent)
	}
	return nil
}

func (s *ratelimitSteps) retryAfterAtLeast(ctx context.Context, seconds int) error {
	got, err := strconv.Atoi(s.tc.GetLastHeader("Retry-After"))
	if err != nil {
		return fmt.Errorf("invalid Retry-After header: %w", err)
	}
	if got < seconds {
		return fmt.Errorf("expected Retry-After >= %d, got %d", seconds, got)
	}
	return nil
}
