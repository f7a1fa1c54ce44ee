package document

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	Upload(path, contentType string, image []byte, fields map[string]string) error
	GetResponseField(field string) (any, error)
	GetVerificationID() string
	SetVerificationID(id string)
}

// Images the scenarios can upload by name.
type Images map[string][]byte

// RegisterSteps registers verification and edge detection steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext, images Images) {
	steps := &documentSteps{tc: tc, images: images}

	ctx.Step(`^I verify the (\w+) image as a "([^"]*)"$`, steps.verifyAs)
	ctx.Step(`^I verify the (\w+) image without a document type$`, steps.verify)
	ctx.Step(`^I upload "([^"]*)" bytes declared as "([^"]*)"$`, steps.uploadRaw)
	ctx.Step(`^I detect edges on the (\w+) image$`, steps.detectEdges)
	ctx.Step(`^I save the verification id$`, steps.saveVerificationID)
	ctx.Step(`^I fetch the saved verification$`, steps.fetchSaved)
	ctx.Step(`^the response should list (\d+) corners$`, steps.cornersShouldBe)
	ctx.Step(`^the response should contain (\d+) checks$`, steps.checksShouldBe)
}

type documentSteps struct {
	tc     TestContext
	images Images
}

func (s *documentSteps) image(name string) ([]byte, error) {
	img, ok := s.images[name]
	if !ok {
		return nil, fmt.Errorf("unknown test image %q", name)
	}
	return img, nil
}

func (s *documentSteps) verifyAs(ctx context.Context, name, documentType string) error {
	img, err := s.image(name)
	if err != nil {
		return err
	}
	return s.tc.Upload("/api/v1/document/verify", "image/png", img, map[string]string{"document_type": documentType})
}

func (s *documentSteps) verify(ctx context.Context, name string) error {
	img, err := s.image(name)
	if err != nil {
		return err
	}
	return s.tc.Upload("/api/v1/document/verify", "image/png", img, nil)
}

func (s *documentSteps) uploadRaw(ctx context.Context, content, contentType string) error {
	return s.tc.Upload("/api/v1/document/verify", contentType, []byte(content), nil)
}

func (s *documentSteps) detectEdges(ctx context.Context, name string) error {
	img, err := s.image(name)
	if err != nil {
		return err
	}
	return s.tc.Upload("/api/v1/document/detect-edges", "image/png", img, nil)
}

func (s *documentSteps) saveVerificationID(ctx context.Context) error {
	id, err := s.tc.GetResponseField("data.id")
	if err != nil {
		return err
	}
	s.tc.SetVerificationID(fmt.Sprint(id))
	return nil
}

func (s *documentSteps) fetchSaved(ctx context.Context) error {
	if s.tc.GetVerificationID() == "" {
		return fmt.Errorf("no verification id saved")
	}
	return s.tc.GET("/api/v1/document/verifications/"+s.tc.GetVerificationID(), nil)
}

func (s *documentSteps) cornersShouldBe(ctx context.Context, n int) error {
	value, err := s.tc.GetResponseField("data.corners")
	if err != nil {
		return err
	}
	corners, ok := value.([]any)
	if !ok || len(corners) != n {
		return fmt.Errorf("expected %d corners, got %v", n, value)
	}
	return nil
}

func (s *documentSteps) checksShouldBe(ctx context.Context, n int) error {
	value, err := s.tc.GetResponseField("data.checks")
	if err != nil {
		return err
	}
	checks, ok := value.(map[string]any)
	if !ok || len(checks) != n {
		return fmt.Errorf("expected %d checks, got %v", n, value)
	}
	return nil
}
