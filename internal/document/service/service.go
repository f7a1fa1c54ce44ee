package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"docverify/internal/document/checks"
	"docverify/internal/document/imaging"
	"docverify/internal/document/metrics"
	"docverify/internal/document/models"
	"docverify/internal/document/profile"
	dErrors "docverify/pkg/domain-errors"
	"docverify/pkg/platform/sentinel"
	"docverify/pkg/requestcontext"
)

// RecordStore persists verification records for later retrieval.
type RecordStore interface {
	Save(ctx context.Context, record *models.VerificationRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VerificationRecord, error)
}

// Service runs document verifications. It holds configuration only; every
// call works on its own copy of the image.
type Service struct {
	records    RecordStore
	aggregator Aggregator
	threshold  float64
	parallel   bool
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(s *Service)

func WithRecordStore(records RecordStore) Option {
	return func(s *Service) {
		s.records = records
	}
}

func WithAggregator(a Aggregator) Option {
	return func(s *Service) {
		if a != nil {
			s.aggregator = a
		}
	}
}

// WithThreshold sets the authenticity cut-off. Values outside [0, 1] are
// ignored.
func WithThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold >= 0 && threshold <= 1 {
			s.threshold = threshold
		}
	}
}

// WithParallel runs the selected checks concurrently.
func WithParallel(parallel bool) Option {
	return func(s *Service) {
		s.parallel = parallel
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New constructs a Service with the unweighted mean and a 0.7 threshold.
func New(opts ...Option) *Service {
	s := &Service{
		aggregator: MeanAggregator{},
		threshold:  DefaultThreshold,
		tracer:     otel.Tracer("docverify/document"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify runs the checks of the profile selected by documentType and
// returns the verdict. Unknown document types use the generic profile.
// Invalid images and orchestration failures are returned as a
// *models.VerificationError; a failing check only degrades to not detected.
func (s *Service) Verify(ctx context.Context, img models.PixelImage, documentType string) (record *models.VerificationRecord, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "document.verify",
		trace.WithAttributes(attribute.String("document_type", documentType)))
	defer func() {
		if r := recover(); r != nil {
			record, err = nil, &models.VerificationError{Op: "verify", Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := img.Validate(); err != nil {
		return nil, &models.VerificationError{Op: "validate", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &models.VerificationError{Op: "verify", Err: err}
	}

	docProfile, names := profile.Resolve(documentType)
	gray := imaging.Gray(img)

	outcomes, err := s.runChecks(ctx, names, gray)
	if err != nil {
		return nil, &models.VerificationError{Op: "run checks", Err: err}
	}

	confidence := clamp01(s.aggregator.Aggregate(outcomes))
	record = &models.VerificationRecord{
		ID:                    uuid.New(),
		DocumentType:          documentType,
		Profile:               docProfile,
		VerificationTimestamp: requestcontext.Now(ctx),
		IsAuthentic:           confidence >= s.threshold,
		Confidence:            confidence,
		Checks:                make(map[models.CheckName]models.CheckResult, len(outcomes)),
	}
	for _, o := range outcomes {
		record.Checks[o.Name] = o.Result
	}

	if s.records != nil {
		if err := s.records.Save(ctx, record); err != nil {
			return nil, &models.VerificationError{Op: "persist", Err: err}
		}
	}

	span.SetAttributes(
		attribute.String("profile", string(docProfile)),
		attribute.Float64("confidence", confidence),
		attribute.Bool("is_authentic", record.IsAuthentic),
	)
	s.metrics.IncrementOutcome(string(docProfile), record.IsAuthentic)
	s.metrics.ObserveVerifyLatency(time.Since(start))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "document verified",
			"verification_id", record.ID,
			"document_type", documentType,
			"profile", docProfile,
			"confidence", confidence,
			"is_authentic", record.IsAuthentic,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return record, nil
}

// runChecks executes names against gray and returns the results in the same
// order. In parallel mode every check runs in its own goroutine and the call
// waits for all of them.
func (s *Service) runChecks(ctx context.Context, names []models.CheckName, gray *image.Gray) ([]CheckOutcome, error) {
	outcomes := make([]CheckOutcome, len(names))
	if !s.parallel {
		for i, name := range names {
			outcomes[i] = s.runCheck(ctx, name, gray)
		}
		return outcomes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			outcomes[i] = s.runCheck(gctx, name, gray)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (s *Service) runCheck(ctx context.Context, name models.CheckName, gray *image.Gray) CheckOutcome {
	ctx, span := s.tracer.Start(ctx, "document.check."+string(name))
	defer span.End()

	start := time.Now()
	result, degraded := checks.Run(ctx, s.logger, name, gray)
	s.metrics.ObserveCheck(string(name), time.Since(start), result.Detected, degraded)

	span.SetAttributes(
		attribute.Bool("detected", result.Detected),
		attribute.Bool("degraded", degraded),
	)
	return CheckOutcome{Name: name, Result: result}
}

// DetectEdges runs only the outline check and reports the document corners.
func (s *Service) DetectEdges(ctx context.Context, img models.PixelImage) (*models.EdgeDetection, error) {
	ctx, span := s.tracer.Start(ctx, "document.detect_edges")
	defer span.End()

	if err := img.Validate(); err != nil {
		span.RecordError(err)
		return nil, &models.VerificationError{Op: "validate", Err: err}
	}

	outcome := s.runCheck(ctx, models.CheckEdges, imaging.Gray(img))
	detection := &models.EdgeDetection{
		Detected:   outcome.Result.Detected,
		Confidence: outcome.Result.Confidence,
	}
	if detail, ok := outcome.Result.Detail.(models.EdgeDetail); ok {
		detection.Corners = detail.Corners
	}
	return detection, nil
}

// Find returns a stored verification record.
func (s *Service) Find(ctx context.Context, id uuid.UUID) (*models.VerificationRecord, error) {
	if s.records == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "verification history is not enabled")
	}
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification")
	}
	return record, nil
}
