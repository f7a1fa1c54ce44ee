package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches wrapped domain error", func(t *testing.T) {
		err := Wrap(errors.New("boom"), CodeNotFound, "verification not found")
		wrapped := errors.Join(errors.New("outer"), err)
		assert.True(t, HasCode(wrapped, CodeNotFound))
		assert.False(t, HasCode(wrapped, CodeInternal))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
		assert.Equal(t, "internal error", MessageOf(errors.New("plain")))
	})

	t.Run("unwrap exposes cause", func(t *testing.T) {
		cause := errors.New("cause")
		err := Wrap(cause, CodeBadRequest, "bad")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "bad_request: bad: cause", err.Error())
	})
}
