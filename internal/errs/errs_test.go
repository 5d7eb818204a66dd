package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf_ClassifiedError(t *testing.T) {
	err := New(CodeDuplicate, "already exists")
	assert.Equal(t, CodeDuplicate, CodeOf(err))
}

func TestCodeOf_WrappedInChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeEmptyPDF, "no text"))
	assert.Equal(t, CodeEmptyPDF, CodeOf(err))
}

func TestCodeOf_UnclassifiedDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternalError, CodeOf(errors.New("boom")))
}

func TestNew_QuotaFlagSetForQuotaExceeded(t *testing.T) {
	assert.True(t, IsQuota(New(CodeQuotaExceeded, "limit reached")))
	assert.False(t, IsQuota(New(CodeQuotaError, "redis down")))
	assert.False(t, IsQuota(errors.New("boom")))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeQuotaError, "failed to check daily quota", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeQuotaError, CodeOf(err))
	assert.Contains(t, err.Error(), "QUOTA_ERROR")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMessageOf_IncludesCause(t *testing.T) {
	cause := errors.New("status 500")
	err := Wrap(CodeExtractionError, "extraction failed on batch 1 of 2", cause)

	msg := MessageOf(err)
	assert.Contains(t, msg, "extraction failed on batch 1 of 2")
	assert.Contains(t, msg, "status 500")
}

func TestMessageOf_UnclassifiedError(t *testing.T) {
	assert.Equal(t, "raw failure", MessageOf(errors.New("raw failure")))
}
