// pkg/errors/errors_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test error creation, wrapping, classification and utility functions

package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		message string
		wantStr string
	}{
		{
			name:    "not_found_error",
			code:    errors.ErrNotFound,
			message: "package not installed",
			wantStr: "[NOT_FOUND] package not installed",
		},
		{
			name:    "bridge_timeout",
			code:    errors.ErrBridgeTimeout,
			message: "bridge timed out",
			wantStr: "[BRIDGE_TIMEOUT] bridge timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.code, tt.message)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.NotNil(t, err.Details)
			assert.Equal(t, tt.wantStr, err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	base := stderrors.New("disk full")

	err := errors.Wrapf(base, errors.ErrStoreIO, "writing %s", "bat")
	require.NotNil(t, err)
	assert.Equal(t, "[STORE_IO] writing bat: disk full", err.Error())
	assert.True(t, stderrors.Is(err, base))

	assert.Nil(t, errors.Wrap(nil, errors.ErrStoreIO, "ignored"))
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", errors.New(errors.ErrLinkConflict, "exists"))

	assert.True(t, stderrors.Is(err, errors.New(errors.ErrLinkConflict, "")))
	assert.False(t, stderrors.Is(err, errors.New(errors.ErrLinkCreate, "")))
	assert.True(t, errors.IsErrorCode(err, errors.ErrLinkConflict))
	assert.Equal(t, errors.ErrLinkConflict, errors.GetErrorCode(err))
	assert.Equal(t, errors.ErrUnknown, errors.GetErrorCode(stderrors.New("plain")))
}

func TestDetails(t *testing.T) {
	err := errors.New(errors.ErrBridgeNonZeroExit, "failed").
		WithDetail("exit_code", 3).
		WithDetail("bridge", "cargo")

	details := errors.GetErrorDetails(err)
	assert.Equal(t, 3, details["exit_code"])
	assert.Equal(t, "cargo", details["bridge"])
	assert.Nil(t, errors.GetErrorDetails(stderrors.New("plain")))
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		code errors.ErrorCode
		want errors.Category
	}{
		{errors.ErrBridgeNotFound, errors.CategoryBridgeResolution},
		{errors.ErrBridgeNotExecutable, errors.CategoryBridgeResolution},
		{errors.ErrBridgeMalformedOutput, errors.CategoryBridgeExecution},
		{errors.ErrBridgeSpawnFailure, errors.CategoryBridgeExecution},
		{errors.ErrNamespaceConflict, errors.CategoryStore},
		{errors.ErrLinkCreate, errors.CategoryLink},
		{errors.ErrInputDuplicate, errors.CategoryConfig},
		{errors.ErrInternal, errors.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, errors.CategoryOf(errors.New(tt.code, "x")))
		})
	}
	assert.Equal(t, errors.CategoryOther, errors.CategoryOf(stderrors.New("plain")))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", errors.Message(nil))
	assert.Equal(t, "no such bridge", errors.Message(errors.New(errors.ErrBridgeNotFound, "no such bridge")))
	assert.Equal(t, "open: denied", errors.Message(errors.Wrap(stderrors.New("denied"), errors.ErrStoreOpen, "open")))
	assert.Equal(t, "plain", errors.Message(stderrors.New("plain")))
}
