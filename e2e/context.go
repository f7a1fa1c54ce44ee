package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"
)

// TestContext holds the target service and the last response of a scenario.
type TestContext struct {
	BaseURL string
	APIKey  string

	client       *http.Client
	token        string
	lastStatus   int
	lastBody     []byte
	lastHeaders  http.Header
	verification string
}

// NewTestContext targets DOCVERIFY_E2E_URL, authenticating with
// DOCVERIFY_E2E_API_KEY when set.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL: strings.TrimRight(os.Getenv("DOCVERIFY_E2E_URL"), "/"),
		APIKey:  os.Getenv("DOCVERIFY_E2E_API_KEY"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.token = tc.APIKey
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeaders = nil
	tc.verification = ""
}

func (tc *TestContext) SetToken(token string) { tc.token = token }

func (tc *TestContext) do(req *http.Request) error {
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastStatus = resp.StatusCode
	tc.lastBody = body
	tc.lastHeaders = resp.Header
	return nil
}

// GET issues a request with optional extra headers.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

// Upload posts image as the multipart "file" part with the given form fields.
func (tc *TestContext) Upload(path, contentType string, image []byte, fields map[string]string) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="document"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(image); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.BaseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return tc.do(req)
}

func (tc *TestContext) GetLastResponseStatus() int { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }
func (tc *TestContext) GetLastHeader(k string) string { return tc.lastHeaders.Get(k) }
func (tc *TestContext) GetVerificationID() string { return tc.verification }
func (tc *TestContext) SetVerificationID(id string) { tc.verification = id }

// GetResponseField reads a dotted path such as "data.checks.edges.detected"
// from the last JSON body.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var cur any
	if err := json.Unmarshal(tc.lastBody, &cur); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, key := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, key)
		}
		if cur, ok = obj[key]; !ok {
			return nil, fmt.Errorf("field %q not found in response", field)
		}
	}
	return cur, nil
}

// CardImage is a white 60x50 card on a black 100x80 background, PNG encoded.
func CardImage() []byte {
	img := image.NewGray(image.Rect(0, 0, 100, 80))
	for y := 15; y < 65; y++ {
		for x := 20; x < 80; x++ {
			img.Pix[y*img.Stride+x] = 255
		}
	}
	return encodePNG(img)
}

// FlatImage is a uniform grey square with nothing to detect.
func FlatImage() []byte {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
