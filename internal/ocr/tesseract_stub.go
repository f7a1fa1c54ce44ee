//go:build !ocr

package ocr

// Enabled reports whether OCR support is compiled in.
const Enabled = false

// New returns ErrNotEnabled. Rebuild with -tags ocr to enable OCR.
func New(languages string) (Engine, error) {
	return nil, ErrNotEnabled
}
