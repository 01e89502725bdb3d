package errors

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuredError_Error(t *testing.T) {
	err := New(ErrorTypeConfiguration, "load", "bad mode")
	assert.Equal(t, "[configuration] load: bad mode", err.Error())

	cause := errors.New("disk full")
	err = Wrap(cause, ErrorTypeIO, "save", "write record")
	assert.Contains(t, err.Error(), "[io] save: write record")
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, cause, err.Unwrap())
}

func TestStructuredError_WithContext(t *testing.T) {
	err := NewDialError("dial", "no addresses").
		WithContext("peer", "12D3KooW").
		WithContext("attempt", 1)

	assert.Equal(t, "12D3KooW", err.Context["peer"])
	assert.Equal(t, 1, err.Context["attempt"])
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, "op", "msg"))
}

func TestWrap_PreservesStdlibChain(t *testing.T) {
	_, statErr := os.Stat("definitely-not-here.json")
	err := WrapIOError(statErr, "load", "read record")

	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.True(t, IsType(err, ErrorTypeIO))
	assert.False(t, IsType(err, ErrorTypeParse))
}

func TestIsType_Nested(t *testing.T) {
	inner := NewParseError("decode", "missing key")
	outer := fmt.Errorf("startup: %w", WrapConfigurationError(inner, "load", "record"))

	assert.True(t, IsType(outer, ErrorTypeConfiguration))
	assert.True(t, IsType(outer, ErrorTypeParse))
	assert.False(t, IsType(outer, ErrorTypeDial))
	assert.Equal(t, ErrorTypeConfiguration, TypeOf(outer))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestErrorConstructors(t *testing.T) {
	assert.Equal(t, ErrorTypeParse, NewParseError("op", "msg").Type)
	assert.Equal(t, ErrorTypeConfiguration, NewConfigurationError("op", "msg").Type)
	assert.Equal(t, ErrorTypeDial, NewDialError("op", "msg").Type)

	cause := errors.New("x")
	assert.Equal(t, ErrorTypeIO, WrapIOError(cause, "op", "msg").Type)
	assert.Equal(t, ErrorTypeNetwork, WrapNetworkError(cause, "op", "msg").Type)
	assert.Equal(t, ErrorTypeDial, WrapDialError(cause, "op", "msg").Type)
	assert.Equal(t, ErrorTypeParse, WrapParseError(cause, "op", "msg").Type)
	assert.Nil(t, Wrap(nil, ErrorTypeIO, "op", "msg"))
}
