package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryableOnlyForTransientAndTimeout(t *testing.T) {
	assert.True(t, ErrTransientFailure.Retryable())
	assert.True(t, ErrTimeout.Retryable())
	assert.False(t, ErrAccessDenied.Retryable())
	assert.False(t, ErrNotFound.Retryable())
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, 400, ErrInvalidUrl.HTTPStatus())
	assert.Equal(t, 400, ErrInvalidItem.HTTPStatus())
	assert.Equal(t, 400, ErrWrongApplication.HTTPStatus())
	assert.Equal(t, 429, ErrCapacityExhausted.HTTPStatus())
	assert.Equal(t, 500, ErrInternal.HTTPStatus())
	assert.Equal(t, 404, ErrNotFound.HTTPStatus())
	assert.Equal(t, 403, ErrAccessDenied.HTTPStatus())
	assert.Equal(t, 416, ErrRangeNotSatisfiable.HTTPStatus())
}

func TestKindOfUnwrapsWrappedAppError(t *testing.T) {
	base := NewAppError(ErrTimeout, "adapter timed out")
	wrapped := errors.New("context: " + base.Error())

	assert.Equal(t, ErrTimeout, KindOf(base))
	assert.Equal(t, ErrInternal, KindOf(wrapped), "an unclassified error defaults to Internal")
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestWrapAppErrorPreservesCauseChain(t *testing.T) {
	cause := errors.New("exec: no such file")
	wrapped := WrapAppError(ErrTransientFailure, "spawn steamcmd", cause)

	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, ErrTransientFailure, KindOf(wrapped))
}
