package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodeNotFound, "report abc not found"),
			expected: "[NOT_FOUND] report abc not found",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeDumpToolError, "jstack failed", errors.New("exit status 1")),
			expected: "[DUMP_TOOL_ERROR] jstack failed: exit status 1",
		},
		{
			name:     "formatted",
			err:      Newf(CodeProcessNotFound, "no java process with pid %d", 42),
			expected: "[PROCESS_NOT_FOUND] no java process with pid 42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("disk full")
	err := Wrap(CodeStorageError, "write failed", underlying)

	assert.Equal(t, underlying, err.Unwrap())
	assert.ErrorIs(t, err, underlying)
}

func TestAppError_Is(t *testing.T) {
	a := New(CodeStoreError, "a")
	b := New(CodeStoreError, "b")
	c := New(CodeConfigError, "c")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
	assert.False(t, errors.Is(a, errors.New("plain")))
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", New(CodeInvalidInput, "empty body"))

	assert.True(t, IsInvalidInput(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.True(t, IsNotFound(Wrap(CodeNotFound, "missing", nil)))
	assert.True(t, IsUnsupportedFormat(ErrUnsupportedFormat))
	assert.False(t, IsUnsupportedFormat(nil))
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"app error", New(CodeStoreError, "x"), CodeStoreError},
		{"wrapped app error", fmt.Errorf("ctx: %w", ErrProcessNotFound), CodeProcessNotFound},
		{"plain error", errors.New("plain"), CodeUnknown},
		{"nil", nil, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCode(tt.err))
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	assert.Equal(t, "bad format", GetErrorMessage(New(CodeUnsupportedFormat, "bad format")))
	assert.Equal(t, "plain", GetErrorMessage(errors.New("plain")))
	assert.Equal(t, "", GetErrorMessage(nil))
}
