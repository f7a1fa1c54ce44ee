package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"docverify/internal/document/metrics"
	"docverify/internal/document/models"
	dErrors "docverify/pkg/domain-errors"
	"docverify/pkg/platform/sentinel"
	"docverify/pkg/requestcontext"
)

type fakeRecordStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.VerificationRecord
	saveErr error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[uuid.UUID]*models.VerificationRecord)}
}

func (f *fakeRecordStore) Save(_ context.Context, record *models.VerificationRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.ID] = record
	return nil
}

func (f *fakeRecordStore) FindByID(_ context.Context, id uuid.UUID) (*models.VerificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record, nil
}

// flatImage is a uniform, textureless page.
func flatImage(w, h int) models.PixelImage {
	pix := make([]uint8, w*h)
	for i := range pix {
		pix[i] = 200
	}
	return models.NewGrayImage(w, h, pix)
}

// cardImage is a bright card on a dark desk: only the outline check fires.
func cardImage() models.PixelImage {
	const w, h = 100, 80
	pix := make([]uint8, w*h)
	for y := 15; y < 65; y++ {
		for x := 20; x < 80; x++ {
			pix[y*w+x] = 255
		}
	}
	return models.NewGrayImage(w, h, pix)
}

func toBGR(img models.PixelImage) models.PixelImage {
	pix := make([]uint8, 0, len(img.Pix)*3)
	for _, v := range img.Pix {
		pix = append(pix, v, v, v)
	}
	return models.PixelImage{Width: img.Width, Height: img.Height, Order: models.ChannelBGR, Pix: pix}
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	records *fakeRecordStore
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.records = newFakeRecordStore()
	s.service = New(
		WithRecordStore(s.records),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// =============================================================================
// Verify
// =============================================================================

func (s *ServiceSuite) TestVerifyFlatImage() {
	for _, docType := range []string{"passport", "id_card", "driving_license", "generic"} {
		s.Run(docType, func() {
			record, err := s.service.Verify(s.ctx, flatImage(240, 160), docType)
			s.Require().NoError(err)
			s.Zero(record.Confidence)
			s.False(record.IsAuthentic)
			for name, result := range record.Checks {
				s.False(result.Detected, name)
				s.Zero(result.Confidence, name)
			}
		})
	}
}

func (s *ServiceSuite) TestVerifyRunsProfileChecks() {
	tests := []struct {
		docType     string
		wantProfile models.DocumentType
		wantChecks  []models.CheckName
	}{
		{"passport", models.DocumentPassport, []models.CheckName{"edges", "watermarks", "tampering", "mrz"}},
		{"id_card", models.DocumentIDCard, []models.CheckName{"edges", "watermarks", "tampering", "hologram"}},
		{"driving_license", models.DocumentDrivingLicense, []models.CheckName{"edges", "watermarks", "tampering", "security_features"}},
		{"generic", models.DocumentGeneric, []models.CheckName{"edges", "watermarks", "tampering"}},
	}
	for _, tt := range tests {
		s.Run(tt.docType, func() {
			record, err := s.service.Verify(s.ctx, cardImage(), tt.docType)
			s.Require().NoError(err)
			s.Equal(tt.docType, record.DocumentType)
			s.Equal(tt.wantProfile, record.Profile)

			names := make([]models.CheckName, 0, len(record.Checks))
			sum := 0.0
			for name, result := range record.Checks {
				names = append(names, name)
				sum += result.Confidence
			}
			s.ElementsMatch(tt.wantChecks, names)
			s.InDelta(sum/float64(len(tt.wantChecks)), record.Confidence, 1e-12)
			s.GreaterOrEqual(record.Confidence, 0.0)
			s.LessOrEqual(record.Confidence, 1.0)
			s.Equal(record.Confidence >= DefaultThreshold, record.IsAuthentic)
		})
	}
}

func (s *ServiceSuite) TestVerifyCardOutline() {
	record, err := s.service.Verify(s.ctx, cardImage(), "generic")
	s.Require().NoError(err)

	s.True(record.Checks[models.CheckEdges].Detected)
	s.Equal(0.9, record.Checks[models.CheckEdges].Confidence)
	s.False(record.Checks[models.CheckWatermarks].Detected)
	s.False(record.Checks[models.CheckTampering].Detected)
	s.Equal(0.3, record.Confidence)
	s.False(record.IsAuthentic)
	s.Equal(s.now, record.VerificationTimestamp)
	s.NotEqual(uuid.Nil, record.ID)
}

func (s *ServiceSuite) TestVerifyUnknownTypeFallsBackToGeneric() {
	record, err := s.service.Verify(s.ctx, cardImage(), "library_card")
	s.Require().NoError(err)

	s.Equal("library_card", record.DocumentType)
	s.Equal(models.DocumentGeneric, record.Profile)
	s.Len(record.Checks, 3)
}

func (s *ServiceSuite) TestVerifyThreshold() {
	// The card image scores exactly 0.3 on the generic profile,
	// so a 0.3 threshold must pass and anything above must fail.
	s.Run("confidence at threshold is authentic", func() {
		svc := New(WithThreshold(0.3))
		record, err := svc.Verify(s.ctx, cardImage(), "generic")
		s.Require().NoError(err)
		s.True(record.IsAuthentic)
	})

	s.Run("confidence below threshold is not", func() {
		svc := New(WithThreshold(0.31))
		record, err := svc.Verify(s.ctx, cardImage(), "generic")
		s.Require().NoError(err)
		s.False(record.IsAuthentic)
	})

	s.Run("out of range threshold is ignored", func() {
		svc := New(WithThreshold(1.5))
		s.Equal(DefaultThreshold, svc.threshold)
	})
}

func (s *ServiceSuite) TestVerifyColorMatchesGray() {
	gray, err := s.service.Verify(s.ctx, cardImage(), "id_card")
	s.Require().NoError(err)
	color, err := s.service.Verify(s.ctx, toBGR(cardImage()), "id_card")
	s.Require().NoError(err)

	s.Equal(gray.Checks, color.Checks)
	s.Equal(gray.Confidence, color.Confidence)
}

func (s *ServiceSuite) TestVerifyParallelMatchesSequential() {
	sequential := New(WithParallel(false))
	parallel := New(WithParallel(true))

	for _, docType := range []string{"passport", "id_card", "driving_license"} {
		want, err := sequential.Verify(s.ctx, cardImage(), docType)
		s.Require().NoError(err)
		got, err := parallel.Verify(s.ctx, cardImage(), docType)
		s.Require().NoError(err)

		s.Equal(want.Checks, got.Checks, docType)
		s.Equal(want.Confidence, got.Confidence, docType)
	}
}

func (s *ServiceSuite) TestVerifyDoesNotMutateInput() {
	img := cardImage()
	before := append([]uint8(nil), img.Pix...)

	_, err := s.service.Verify(s.ctx, img, "driving_license")
	s.Require().NoError(err)
	s.Equal(before, img.Pix)
}

func (s *ServiceSuite) TestVerifyPersistsRecord() {
	record, err := s.service.Verify(s.ctx, cardImage(), "passport")
	s.Require().NoError(err)

	found, err := s.service.Find(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(record, found)
}

func (s *ServiceSuite) TestVerifyErrors() {
	s.Run("invalid image", func() {
		_, err := s.service.Verify(s.ctx, models.PixelImage{Width: 0, Height: 3, Order: models.ChannelGray}, "passport")
		s.Require().Error(err)
		s.True(models.IsVerificationError(err))
		s.ErrorIs(err, models.ErrInvalidImage)
	})

	s.Run("mismatched buffer", func() {
		img := models.PixelImage{Width: 4, Height: 4, Order: models.ChannelBGR, Pix: make([]uint8, 16)}
		_, err := s.service.Verify(s.ctx, img, "generic")
		s.ErrorIs(err, models.ErrInvalidImage)
	})

	s.Run("cancelled context", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		_, err := s.service.Verify(ctx, cardImage(), "generic")
		s.True(models.IsVerificationError(err))
		s.ErrorIs(err, context.Canceled)
	})

	s.Run("store failure", func() {
		s.records.saveErr = errors.New("connection reset")
		defer func() { s.records.saveErr = nil }()

		_, err := s.service.Verify(s.ctx, cardImage(), "generic")
		var ve *models.VerificationError
		s.Require().ErrorAs(err, &ve)
		s.Equal("persist", ve.Op)
	})
}

// =============================================================================
// DetectEdges
// =============================================================================

func (s *ServiceSuite) TestDetectEdges() {
	s.Run("card outline", func() {
		detection, err := s.service.DetectEdges(s.ctx, cardImage())
		s.Require().NoError(err)
		s.True(detection.Detected)
		s.Equal(0.9, detection.Confidence)
		s.Len(detection.Corners, 4)
	})

	s.Run("blank page", func() {
		detection, err := s.service.DetectEdges(s.ctx, flatImage(50, 50))
		s.Require().NoError(err)
		s.False(detection.Detected)
		s.Zero(detection.Confidence)
		s.Nil(detection.Corners)
	})

	s.Run("invalid image", func() {
		_, err := s.service.DetectEdges(s.ctx, models.PixelImage{})
		s.True(models.IsVerificationError(err))
	})
}

// =============================================================================
// Find
// =============================================================================

func (s *ServiceSuite) TestFind() {
	s.Run("missing record", func() {
		_, err := s.service.Find(s.ctx, uuid.New())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("history disabled", func() {
		_, err := New().Find(s.ctx, uuid.New())
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

// =============================================================================
// Observability
// =============================================================================

func TestVerifyEmitsSpansAndMetrics(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	svc := New(WithTracer(tp.Tracer("test")), WithMetrics(m), WithParallel(true))

	_, err := svc.Verify(context.Background(), cardImage(), "passport")
	require.NoError(t, err)

	var names []string
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}
	assert.ElementsMatch(t, []string{
		"document.verify",
		"document.check.edges",
		"document.check.watermarks",
		"document.check.tampering",
		"document.check.mrz",
	}, names)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerificationOutcome.WithLabelValues("passport", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckDetections.WithLabelValues("edges")))
	assert.Zero(t, testutil.ToFloat64(m.CheckDegraded.WithLabelValues("edges")))
}

// =============================================================================
// Aggregation
// =============================================================================

func outcomes(confidences map[models.CheckName]float64) []CheckOutcome {
	var out []CheckOutcome
	for _, name := range []models.CheckName{"edges", "watermarks", "tampering", "hologram", "security_features", "mrz"} {
		if c, ok := confidences[name]; ok {
			out = append(out, CheckOutcome{Name: name, Result: models.CheckResult{Detected: c > 0, Confidence: c}})
		}
	}
	return out
}

func TestMeanAggregator(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		assert.Zero(t, MeanAggregator{}.Aggregate(nil))
	})

	t.Run("unweighted mean", func(t *testing.T) {
		got := MeanAggregator{}.Aggregate(outcomes(map[models.CheckName]float64{
			"edges": 0.9, "watermarks": 0.8, "tampering": 0, "mrz": 0.8,
		}))
		assert.InDelta(t, 0.625, got, 1e-12)
	})
}

func TestWeightedAggregator(t *testing.T) {
	t.Run("missing weights count as one", func(t *testing.T) {
		agg := WeightedAggregator{Weights: map[models.CheckName]float64{"edges": 3}}
		got := agg.Aggregate(outcomes(map[models.CheckName]float64{"edges": 0.9, "watermarks": 0.5}))
		assert.InDelta(t, (3*0.9+0.5)/4, got, 1e-12)
	})

	t.Run("zero total weight", func(t *testing.T) {
		agg := WeightedAggregator{Weights: map[models.CheckName]float64{"edges": 0}}
		assert.Zero(t, agg.Aggregate(outcomes(map[models.CheckName]float64{"edges": 0.9})))
	})

	t.Run("default weights on card", func(t *testing.T) {
		svc := New(WithAggregator(WeightedAggregator{Weights: DefaultWeights}))
		record, err := svc.Verify(context.Background(), cardImage(), "generic")
		require.NoError(t, err)
		assert.InDelta(t, 1.5*0.9/3, record.Confidence, 1e-12)
	})
}

func TestNewAggregator(t *testing.T) {
	agg, err := NewAggregator("")
	require.NoError(t, err)
	assert.IsType(t, MeanAggregator{}, agg)

	agg, err = NewAggregator("weighted")
	require.NoError(t, err)
	assert.IsType(t, WeightedAggregator{}, agg)

	_, err = NewAggregator("median")
	assert.Error(t, err)
}
