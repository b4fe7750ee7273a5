package wxerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindDispatch(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(NetworkError, "KJFK", cause)

	require.True(t, IsKind(err, NetworkError))
	assert.False(t, IsKind(err, Timeout))
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIsMatchesByKindOnly(t *testing.T) {
	a := New(NoData, "KZZZ")
	b := New(NoData, "KABC")
	assert.True(t, errors.Is(a, b), "two NoData errors for different stations should still match on kind")

	c := New(InvalidData, "KZZZ")
	assert.False(t, errors.Is(a, c))
}

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	inner := New(StorageError, "KJFK")
	outer := errors.Join(errors.New("batch failed"), inner)

	kind, ok := KindOf(outer)
	require.True(t, ok)
	assert.Equal(t, StorageError, kind)
}

func TestErrorMessageIncludesStationAndCause(t *testing.T) {
	err := Wrapf(Timeout, "KLAX", errors.New("deadline exceeded"), "fetch timed out")
	msg := err.Error()
	assert.Contains(t, msg, "KLAX")
	assert.Contains(t, msg, "fetch timed out")
	assert.Contains(t, msg, "deadline exceeded")
}
