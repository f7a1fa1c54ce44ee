package cli

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"docverify/internal/document/decode"
	"docverify/internal/document/models"
	jwttoken "docverify/internal/jwt_token"
	"docverify/pkg/testutil"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// writeCard saves a white card on a black background as PNG.
func writeCard(t *testing.T) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 100, 80))
	for y := 15; y < 65; y++ {
		for x := 20; x < 80; x++ {
			img.Pix[y*img.Stride+x] = 255
		}
	}
	path := filepath.Join(t.TempDir(), "card.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "env-key")

	out, err := execute(t, "", "token", "--client-id", "acme", "--ttl", "10m")
	require.NoError(t, err)

	claims, err := jwttoken.NewJWTService("env-key", "docverify", "docverify-api").ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.ClientID)

	t.Run("flag overrides environment", func(t *testing.T) {
		out, err := execute(t, "", "token", "--client-id", "acme", "--signing-key", "flag-key")
		require.NoError(t, err)
		_, err = jwttoken.NewJWTService("flag-key", "docverify", "docverify-api").ValidateToken(strings.TrimSpace(out))
		assert.NoError(t, err)
	})

	t.Run("client id is required", func(t *testing.T) {
		_, err := execute(t, "", "token")
		assert.Error(t, err)
	})
}

func TestTokenCmdWithoutKey(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "")
	_, err := execute(t, "", "token", "--client-id", "acme")
	assert.ErrorContains(t, err, "no signing key")
}

func TestHashKeyCmd(t *testing.T) {
	t.Run("from argument", func(t *testing.T) {
		out, err := execute(t, "", "hash-key", "--cost", "4", "s3cret")
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("s3cret")))
	})

	t.Run("from stdin", func(t *testing.T) {
		out, err := execute(t, "piped-key\n", "hash-key", "--cost", "4")
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("piped-key")))
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := execute(t, "\n", "hash-key")
		assert.Error(t, err)
	})
}

func TestVerifyCmd(t *testing.T) {
	path := writeCard(t)

	out, err := execute(t, "", "verify", path)
	require.NoError(t, err)

	var record models.VerificationRecord
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, "generic", record.DocumentType)
	assert.Equal(t, 0.3, record.Confidence)
	assert.False(t, record.IsAuthentic)
	assert.True(t, record.Checks[models.CheckEdges].Detected)

	t.Run("strict fails a rejected document", func(t *testing.T) {
		_, err := execute(t, "", "verify", "--strict", path)
		assert.ErrorIs(t, err, ErrNotAuthentic)
	})

	t.Run("low threshold accepts it", func(t *testing.T) {
		out, err := execute(t, "", "verify", "--strict", "--threshold", "0.3", path)
		require.NoError(t, err)
		assert.Contains(t, out, `"is_authentic": true`)
	})

	t.Run("unknown aggregation", func(t *testing.T) {
		_, err := execute(t, "", "verify", "--aggregation", "median", path)
		assert.ErrorContains(t, err, "unknown aggregation")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "", "verify", filepath.Join(t.TempDir(), "nope.png"))
		assert.Error(t, err)
	})

	t.Run("not an image", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(bad, []byte("hello"), 0o600))
		_, err := execute(t, "", "verify", bad)
		assert.ErrorContains(t, err, "decode")
	})
}

func TestDetectEdgesCmd(t *testing.T) {
	out, err := execute(t, "", "detect-edges", writeCard(t))
	require.NoError(t, err)

	var detection models.EdgeDetection
	require.NoError(t, json.Unmarshal([]byte(out), &detection))
	assert.True(t, detection.Detected)
	assert.Len(t, detection.Corners, 4)
}

func TestVerifyCmdRejectsOversizedImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.png")
	require.NoError(t, os.WriteFile(path, testutil.PNGHeader(100000, 100000), 0o600))

	_, err := execute(t, "", "verify", path)
	assert.ErrorIs(t, err, decode.ErrTooManyPixels)
}
