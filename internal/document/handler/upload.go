package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"docverify/internal/document/decode"
	"docverify/internal/document/models"
	dErrors "docverify/pkg/domain-errors"
	"docverify/pkg/platform/httputil"
	request "docverify/pkg/platform/middleware/request"
)

const (
	uploadField = "file"
	// multipartOverhead covers boundaries, part headers and small form fields.
	multipartOverhead = 1 << 20
	maxFormMemory     = 32 << 20
)

var (
	errFileMissing   = dErrors.New(dErrors.CodeBadRequest, "multipart field \"file\" is required")
	errFileTooLarge  = dErrors.New(dErrors.CodePayloadTooLarge, "file exceeds the maximum allowed size")
	errMalformedForm = dErrors.New(dErrors.CodeBadRequest, "request must be multipart/form-data")
)

type upload struct {
	data        []byte
	contentType string
}

// readUpload reads the "file" part, enforcing the size limit and the MIME
// allow-list. The declared part type wins; generic or missing types fall back
// to sniffing the content.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errFileTooLarge
		}
		return nil, errMalformedForm
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, errFileMissing
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		return nil, errFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read uploaded file")
	}
	if int64(len(data)) > h.maxFileSize {
		return nil, errFileTooLarge
	}
	if len(data) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "uploaded file is empty")
	}

	contentType := declaredType(header.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = decode.SniffContentType(data)
	}
	if !h.allowedTypes[contentType] {
		return nil, dErrors.New(dErrors.CodeUnsupportedMediaType,
			fmt.Sprintf("file type %q is not allowed", contentType))
	}
	return &upload{data: data, contentType: contentType}, nil
}

func declaredType(v string) string {
	if v == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}
	return mediaType
}

func (u *upload) decode(maxPixels int64) (models.PixelImage, error) {
	img, _, err := decode.Bytes(u.data, decode.WithMaxPixels(maxPixels))
	switch {
	case errors.Is(err, decode.ErrTooManyPixels):
		return models.PixelImage{}, dErrors.Wrap(err, dErrors.CodePayloadTooLarge,
			fmt.Sprintf("image exceeds the maximum of %d pixels", maxPixels))
	case err != nil:
		return models.PixelImage{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "file is not a readable image")
	}
	return img, nil
}

func (h *Handler) writeUploadError(ctx context.Context, w http.ResponseWriter, err error) {
	h.logger.WarnContext(ctx, "rejected upload",
		"request_id", request.GetRequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
