package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAffectsBreaker(t *testing.T) {
	assert.True(t, AffectsBreaker(NewExtractionError(FailureConnection, errors.New("refused"))))
	assert.True(t, AffectsBreaker(NewExtractionError(FailureTimeout, errors.New("deadline"))))
	assert.False(t, AffectsBreaker(NewExtractionError(FailureUnprocessable, errors.New("bad pdf"))))
	assert.False(t, AffectsBreaker(ErrCircuitOpen))
	assert.False(t, AffectsBreaker(errors.New("plain")))
}

func TestAffectsBreaker_Wrapped(t *testing.T) {
	err := fmt.Errorf("attempt 2: %w", NewExtractionError(FailureTimeout, errors.New("deadline")))
	assert.True(t, AffectsBreaker(err))
}

func TestIsUnprocessable(t *testing.T) {
	assert.True(t, IsUnprocessable(NewExtractionError(FailureUnprocessable, errors.New("bad pdf"))))
	assert.False(t, IsUnprocessable(NewExtractionError(FailureConnection, errors.New("refused"))))
	assert.False(t, IsUnprocessable(errors.New("plain")))
}

func TestExtractionError_Unwrap(t *testing.T) {
	cause := errors.New("refused")
	err := NewExtractionError(FailureConnection, cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection")
}
