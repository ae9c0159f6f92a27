package recipe

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	err := OutOfRange(5, 2)
	assert.Equal(t, "INDEX_OUT_OF_RANGE: invalid recipe index 5 (have 2 recipes)", err.Error())
	assert.Equal(t, 5, err.Index)
	assert.Equal(t, 2, err.Len)

	cause := errors.New("disk full")
	perr := PersistenceFailure(cause)
	assert.Contains(t, perr.Error(), "disk full")
	assert.ErrorIs(t, perr, cause)
}

func TestCodeOfWrapped(t *testing.T) {
	wrapped := fmt.Errorf("dispatch: %w", Malformed("bad json", nil))
	assert.Equal(t, ErrCodeMalformedRequest, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, ErrCodeMalformedRequest))
	assert.False(t, IsCode(wrapped, ErrCodeIndexOutOfRange))
	assert.False(t, IsCode(nil, ErrCodeMalformedRequest))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(Malformed("x", nil)))
	assert.True(t, IsClientError(OutOfRange(1, 0)))
	assert.True(t, IsClientError(TransportFailure("no body", nil)))
	assert.False(t, IsClientError(Empty()))
	assert.False(t, IsClientError(PersistenceFailure(errors.New("x"))))
	assert.False(t, IsClientError(errors.New("boom")))
}
