package handler

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"docverify/internal/document/models"
	"docverify/internal/document/service"
	"docverify/internal/document/store"
	"docverify/internal/ocr"
	audit "docverify/pkg/platform/audit"
	"docverify/pkg/platform/audit/publisher"
	auditmemory "docverify/pkg/platform/audit/store/memory"
	"docverify/pkg/testutil"
)

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// cardPNG is a white 60x50 card on a black 100x80 background.
func cardPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 100, 80))
	for y := 15; y < 65; y++ {
		for x := 20; x < 80; x++ {
			img.Pix[y*img.Stride+x] = 255
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type stubOCR struct {
	result *ocr.Result
	err    error
}

func (s stubOCR) Extract(context.Context, []byte) (*ocr.Result, error) { return s.result, s.err }
func (s stubOCR) Close() error                                         { return nil }

type HandlerSuite struct {
	suite.Suite
	router http.Handler
	audit  *auditmemory.InMemoryStore
	now    time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s.audit = auditmemory.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := service.New(
		service.WithRecordStore(store.NewInMemoryRecordStore(time.Hour, 0)),
		service.WithLogger(logger),
	)
	h := New(svc,
		WithAuditor(publisher.NewPublisher(s.audit)),
		WithLogger(logger),
		WithMaxFileSize(64<<10),
		WithOCR(stubOCR{result: &ocr.Result{
			FullText: "P<FRA",
			Lines:    []ocr.TextLine{{Text: "P<FRA", Confidence: 0.92, Type: ocr.TextMixed}},
		}}),
	)
	r := chi.NewRouter()
	h.RegisterHealth(r)
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) upload(path string, file *testutil.FilePart, fields map[string]string) *http.Request {
	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, path, file, fields)
	return testutil.WithClientID(testutil.WithTime(req, s.now), "acme")
}

func (s *HandlerSuite) cardFile() *testutil.FilePart {
	return &testutil.FilePart{Field: "file", Name: "card.png", ContentType: "image/png", Data: cardPNG(s.T())}
}

// =============================================================================
// Health
// =============================================================================

func (s *HandlerSuite) TestHealth() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/health"))
	testutil.AssertStatusOK(s.T(), rr)

	body := testutil.UnmarshalResponse[healthResponse](s.T(), rr)
	s.Equal("healthy", body.Status)
	s.Equal("operational", body.Services["document_verification"])
	s.Equal("operational", body.Services["ocr"])
}

// =============================================================================
// POST /api/v1/document/verify
// =============================================================================

func (s *HandlerSuite) TestVerify() {
	t := s.T()
	testutil.Given(t, "a card image uploaded as a passport", func(t *testing.T) {
		req := s.upload("/api/v1/document/verify", s.cardFile(), map[string]string{"document_type": "passport"})
		rr := testutil.DoRequest(s.router, req)

		testutil.Then(t, "the record is returned in the envelope", func(t *testing.T) {
			testutil.AssertStatusOK(t, rr)
			body := testutil.UnmarshalResponse[envelope[models.VerificationRecord]](t, rr)
			require.True(t, body.Success)
			rec := body.Data
			require.Equal(t, "passport", rec.DocumentType)
			require.Equal(t, models.DocumentPassport, rec.Profile)
			require.Len(t, rec.Checks, 4)
			require.True(t, rec.Checks[models.CheckEdges].Detected)
			require.Equal(t, s.now, rec.VerificationTimestamp.UTC())
			require.Equal(t, rec.Confidence >= 0.7, rec.IsAuthentic)
		})

		testutil.Then(t, "the record can be fetched again", func(t *testing.T) {
			body := testutil.UnmarshalResponse[envelope[models.VerificationRecord]](t, testutil.DoRequest(s.router,
				s.upload("/api/v1/document/verify", s.cardFile(), nil)))
			get := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet,
				"/api/v1/document/verifications/"+body.Data.ID.String()))
			testutil.AssertStatusOK(t, get)
			fetched := testutil.UnmarshalResponse[envelope[models.VerificationRecord]](t, get)
			require.Equal(t, body.Data.ID, fetched.Data.ID)
			require.Equal(t, body.Data.Checks, fetched.Data.Checks)
		})
	})
}

func (s *HandlerSuite) TestVerifyDefaultsToGenericAndAudits() {
	rr := testutil.DoRequest(s.router, s.upload("/api/v1/document/verify", s.cardFile(), nil))
	testutil.AssertStatusOK(s.T(), rr)

	body := testutil.UnmarshalResponse[envelope[models.VerificationRecord]](s.T(), rr)
	s.Equal("generic", body.Data.DocumentType)
	s.Equal(0.3, body.Data.Confidence)
	s.False(body.Data.IsAuthentic)

	events, err := s.audit.ListByVerification(context.Background(), body.Data.ID.String())
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventDocumentRejected), events[0].Action)
	s.Equal("acme", events[0].ClientID)
	s.Equal(s.now, events[0].Timestamp)
	s.Equal(audit.DecisionRejected, events[0].Decision)
}

func (s *HandlerSuite) TestVerifyDocumentTypeFromQuery() {
	req := s.upload("/api/v1/document/verify?document_type=id_card", s.cardFile(), nil)
	body := testutil.UnmarshalResponse[envelope[models.VerificationRecord]](s.T(), testutil.DoRequest(s.router, req))
	s.Equal("id_card", body.Data.DocumentType)
	s.Contains(body.Data.Checks, models.CheckHologram)
}

func (s *HandlerSuite) TestVerifySniffsUndeclaredType() {
	file := s.cardFile()
	file.ContentType = ""
	rr := testutil.DoRequest(s.router, s.upload("/api/v1/document/verify", file, nil))
	testutil.AssertStatusOK(s.T(), rr)
}

func (s *HandlerSuite) TestVerifyRejectsUploads() {
	cases := []struct {
		name   string
		file   *testutil.FilePart
		fields map[string]string
		status int
		code   string
	}{
		{
			name:   "missing file",
			status: http.StatusBadRequest,
			code:   "bad_request",
		},
		{
			name:   "disallowed type",
			file:   &testutil.FilePart{Field: "file", Name: "doc.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")},
			status: http.StatusUnsupportedMediaType,
			code:   "unsupported_media_type",
		},
		{
			name:   "sniffed text",
			file:   &testutil.FilePart{Field: "file", Name: "notes", Data: []byte("just some text")},
			status: http.StatusUnsupportedMediaType,
			code:   "unsupported_media_type",
		},
		{
			name:   "too large",
			file:   &testutil.FilePart{Field: "file", Name: "big.png", ContentType: "image/png", Data: bytes.Repeat([]byte{1}, 65<<10)},
			status: http.StatusRequestEntityTooLarge,
			code:   "payload_too_large",
		},
		{
			name:   "oversized dimensions",
			file:   &testutil.FilePart{Field: "file", Name: "huge.png", ContentType: "image/png", Data: testutil.PNGHeader(100000, 100000)},
			status: http.StatusRequestEntityTooLarge,
			code:   "payload_too_large",
		},
		{
			name:   "corrupt image",
			file:   &testutil.FilePart{Field: "file", Name: "bad.png", ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\nnope")},
			status: http.StatusBadRequest,
			code:   "bad_request",
		},
		{
			name:   "empty file",
			file:   &testutil.FilePart{Field: "file", Name: "empty.png", ContentType: "image/png"},
			status: http.StatusBadRequest,
			code:   "bad_request",
		},
		{
			name:   "document type too long",
			file:   s.cardFile(),
			fields: map[string]string{"document_type": strings.Repeat("x", 65)},
			status: http.StatusBadRequest,
			code:   "validation_error",
		},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			rr := testutil.DoRequest(s.router, s.upload("/api/v1/document/verify", tc.file, tc.fields))
			testutil.AssertStatusAndError(s.T(), rr, tc.status, tc.code)
		})
	}
}

func (s *HandlerSuite) TestVerifyRejectsNonMultipart() {
	req := testutil.NewRequest(s.T(), http.MethodPost, "/api/v1/document/verify")
	testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusBadRequest, "bad_request")
}

// =============================================================================
// POST /api/v1/document/detect-edges
// =============================================================================

func (s *HandlerSuite) TestDetectEdges() {
	rr := testutil.DoRequest(s.router, s.upload("/api/v1/document/detect-edges", s.cardFile(), nil))
	testutil.AssertStatusOK(s.T(), rr)

	body := testutil.UnmarshalResponse[envelope[models.EdgeDetection]](s.T(), rr)
	s.True(body.Data.Detected)
	s.Equal(0.9, body.Data.Confidence)
	s.ElementsMatch([]models.Point{{X: 79, Y: 64}, {X: 79, Y: 15}, {X: 20, Y: 15}, {X: 20, Y: 64}}, body.Data.Corners)

	events, err := s.audit.ListRecent(context.Background(), 1)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventEdgesDetected), events[0].Action)
}

// =============================================================================
// GET /api/v1/document/verifications/{id}
// =============================================================================

func (s *HandlerSuite) TestGetVerificationErrors() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/document/verifications/not-a-uuid"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/document/verifications/"+uuid.NewString()))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

// =============================================================================
// POST /api/v1/ocr/extract-text
// =============================================================================

func (s *HandlerSuite) TestExtractText() {
	rr := testutil.DoRequest(s.router, s.upload("/api/v1/ocr/extract-text", s.cardFile(), nil))
	testutil.AssertStatusOK(s.T(), rr)

	body := testutil.UnmarshalResponse[envelope[ocr.Result]](s.T(), rr)
	s.Equal("P<FRA", body.Data.FullText)
	s.Require().Len(body.Data.Lines, 1)
	s.Equal(0.92, body.Data.Lines[0].Confidence)
}

func TestExtractTextWithoutOCR(t *testing.T) {
	h := New(service.New())
	r := chi.NewRouter()
	h.RegisterHealth(r)
	h.Register(r)

	file := &testutil.FilePart{Field: "file", Name: "card.png", ContentType: "image/png", Data: cardPNG(t)}
	rr := testutil.DoRequest(r, testutil.NewMultipartRequest(t, http.MethodPost, "/api/v1/ocr/extract-text", file, nil))
	testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, "unavailable")

	health := testutil.UnmarshalResponse[healthResponse](t, testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/health")))
	require.Equal(t, "disabled", health.Services["ocr"])
}

func TestMaxImagePixels(t *testing.T) {
	r := chi.NewRouter()
	New(service.New(), WithMaxImagePixels(100*80-1)).Register(r)

	for _, path := range []string{"/api/v1/document/verify", "/api/v1/document/detect-edges"} {
		file := &testutil.FilePart{Field: "file", Name: "card.png", ContentType: "image/png", Data: cardPNG(t)}
		rr := testutil.DoRequest(r, testutil.NewMultipartRequest(t, http.MethodPost, path, file, nil))
		testutil.AssertStatusAndError(t, rr, http.StatusRequestEntityTooLarge, "payload_too_large")
	}

	r = chi.NewRouter()
	New(service.New(), WithMaxImagePixels(100*80)).Register(r)
	file := &testutil.FilePart{Field: "file", Name: "card.png", ContentType: "image/png", Data: cardPNG(t)}
	rr := testutil.DoRequest(r, testutil.NewMultipartRequest(t, http.MethodPost, "/api/v1/document/detect-edges", file, nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestGetVerificationWithoutHistory(t *testing.T) {
	r := chi.NewRouter()
	New(service.New()).Register(r)
	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/api/v1/document/verifications/"+uuid.NewString()))
	testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, "unavailable")
}
