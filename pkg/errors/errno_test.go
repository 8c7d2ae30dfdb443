package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeCode(t *testing.T) {
	assert.Equal(t, 2001001, MakeCode(ServiceGraphRAG, CategoryRequest, 1))
	assert.Equal(t, 1, MakeCode(ServiceCommon, CategorySuccess, 1))

	svc, cat, seq := ParseCode(2007003)
	assert.Equal(t, ServiceGraphRAG, svc)
	assert.Equal(t, CategoryInternal, cat)
	assert.Equal(t, 3, seq)
}

func TestErrnoWithCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := ErrProviderUnavailable.WithCause(cause)

	// Original is untouched.
	assert.Nil(t, ErrProviderUnavailable.Unwrap())
	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "connection refused")

	// errors.Is matches on code, wrapped or not.
	assert.True(t, errors.Is(err, ErrProviderUnavailable))
	assert.False(t, errors.Is(err, ErrInvalidRequest))
}

func TestErrnoWithMessage(t *testing.T) {
	err := ErrInvalidRequest.WithMessage("question is required")
	assert.Equal(t, "question is required", err.MessageEN)
	assert.Equal(t, ErrInvalidRequest.Code, err.Code)
	assert.Equal(t, 400, err.HTTPStatus())
}

func TestRegistryUniqueness(t *testing.T) {
	e, ok := Lookup(ErrQueryTimeout.Code)
	require.True(t, ok)
	assert.Equal(t, ErrQueryTimeout, e)

	assert.Panics(t, func() {
		Register(New(ErrQueryTimeout.Code, 504, ErrQueryTimeout.GRPCCode, "dup", ""))
	})
}
