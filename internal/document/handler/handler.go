package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"docverify/internal/document/decode"
	"docverify/internal/document/models"
	"docverify/internal/ocr"
	dErrors "docverify/pkg/domain-errors"
	audit "docverify/pkg/platform/audit"
	"docverify/pkg/platform/httputil"
	request "docverify/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Verifier

// Verifier is the document service as seen by the HTTP layer.
type Verifier interface {
	Verify(ctx context.Context, img models.PixelImage, documentType string) (*models.VerificationRecord, error)
	DetectEdges(ctx context.Context, img models.PixelImage) (*models.EdgeDetection, error)
	Find(ctx context.Context, id uuid.UUID) (*models.VerificationRecord, error)
}

// Auditor receives one event per completed document operation.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

const defaultMaxFileSize = 10 << 20

// Handler serves the document verification and OCR endpoints.
type Handler struct {
	verifier     Verifier
	auditor      Auditor
	ocr          ocr.Engine
	logger       *slog.Logger
	maxFileSize  int64
	maxPixels    int64
	allowedTypes map[string]bool
	validate     *validator.Validate
}

type Option func(*Handler)

func WithAuditor(a Auditor) Option {
	return func(h *Handler) {
		h.auditor = a
	}
}

// WithOCR enables the text extraction endpoint. Without it the endpoint
// answers 503.
func WithOCR(engine ocr.Engine) Option {
	return func(h *Handler) {
		h.ocr = engine
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func WithMaxFileSize(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxFileSize = n
		}
	}
}

// WithMaxImagePixels bounds width*height of uploaded images.
func WithMaxImagePixels(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxPixels = n
		}
	}
}

// WithAllowedTypes replaces the accepted upload MIME types.
func WithAllowedTypes(types []string) Option {
	return func(h *Handler) {
		if len(types) == 0 {
			return
		}
		h.allowedTypes = make(map[string]bool, len(types))
		for _, t := range types {
			h.allowedTypes[t] = true
		}
	}
}

// New creates a document Handler.
func New(verifier Verifier, opts ...Option) *Handler {
	h := &Handler{
		verifier:    verifier,
		logger:      slog.Default(),
		maxFileSize: defaultMaxFileSize,
		maxPixels:   decode.DefaultMaxPixels,
		allowedTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/tiff": true,
			"image/bmp":  true,
			"image/webp": true,
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterHealth mounts the unauthenticated liveness endpoint.
func (h *Handler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

// Register mounts the API routes. Callers wrap r with auth and rate limiting.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/document/verify", h.handleVerify)
	r.Post("/api/v1/document/detect-edges", h.handleDetectEdges)
	r.Get("/api/v1/document/verifications/{id}", h.handleGetVerification)
	r.Post("/api/v1/ocr/extract-text", h.handleExtractText)
}

type healthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	ocrStatus := "disabled"
	if h.ocr != nil {
		ocrStatus = "operational"
	}
	httputil.WriteJSON(w, http.StatusOK, healthResponse{
		Status: "healthy",
		Services: map[string]string{
			"document_verification": "operational",
			"ocr":                   ocrStatus,
		},
	})
}

type verifyRequest struct {
	DocumentType string `validate:"omitempty,max=64,printascii"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	up, err := h.readUpload(w, r)
	if err != nil {
		h.writeUploadError(ctx, w, err)
		return
	}

	req := verifyRequest{DocumentType: r.FormValue("document_type")}
	if err := h.validate.Struct(req); err != nil {
		h.logger.WarnContext(ctx, "invalid verify request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "document_type must be at most 64 printable characters"))
		return
	}
	if req.DocumentType == "" {
		req.DocumentType = string(models.DocumentGeneric)
	}

	img, err := up.decode(h.maxPixels)
	if err != nil {
		h.writeUploadError(ctx, w, err)
		return
	}

	record, err := h.verifier.Verify(ctx, img, req.DocumentType)
	if err != nil {
		h.writeVerificationError(ctx, w, "verify", err)
		return
	}

	h.emit(ctx, audit.VerificationEvent(record.ID.String(), record.DocumentType, record.Confidence, record.IsAuthentic))
	httputil.WriteData(w, http.StatusOK, record)
}

func (h *Handler) handleDetectEdges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	up, err := h.readUpload(w, r)
	if err != nil {
		h.writeUploadError(ctx, w, err)
		return
	}
	img, err := up.decode(h.maxPixels)
	if err != nil {
		h.writeUploadError(ctx, w, err)
		return
	}

	detection, err := h.verifier.DetectEdges(ctx, img)
	if err != nil {
		h.writeVerificationError(ctx, w, "detect edges", err)
		return
	}

	h.emit(ctx, audit.Event{
		Action:     string(audit.EventEdgesDetected),
		Confidence: detection.Confidence,
	})
	httputil.WriteData(w, http.StatusOK, detection)
}

func (h *Handler) handleGetVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid verification id"))
		return
	}

	record, err := h.verifier.Find(ctx, id)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to load verification",
				"request_id", request.GetRequestID(ctx),
				"verification_id", id,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, record)
}

func (h *Handler) handleExtractText(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.ocr == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "text extraction is not enabled"))
		return
	}

	up, err := h.readUpload(w, r)
	if err != nil {
		h.writeUploadError(ctx, w, err)
		return
	}

	result, err := h.ocr.Extract(ctx, up.data)
	if err != nil {
		if errors.Is(err, models.ErrInvalidImage) {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "file is not a readable image"))
			return
		}
		h.logger.ErrorContext(ctx, "text extraction failed",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "text extraction failed"))
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}

// emit records an audit event. Audit failures never fail the request.
func (h *Handler) emit(ctx context.Context, event audit.Event) {
	if h.auditor == nil {
		return
	}
	if err := h.auditor.Emit(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
	}
}

// writeVerificationError maps service failures: bad pixels are the caller's
// fault, everything else is ours.
func (h *Handler) writeVerificationError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if errors.Is(err, models.ErrInvalidImage) {
		h.logger.WarnContext(ctx, "rejected unreadable image",
			"op", op,
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "file is not a readable image"))
		return
	}
	h.logger.ErrorContext(ctx, "document operation failed",
		"op", op,
		"request_id", request.GetRequestID(ctx),
		"verification_error", models.IsVerificationError(err),
		"error", err,
	)
	httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "document "+op+" failed"))
}
