package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCodeThroughWrapping(t *testing.T) {
	base := New(CodeForbidden, "drive refused the request").WithMeta("status", 403)
	wrapped := fmt.Errorf("failed to upload backup: %w", base)

	assert.True(t, IsCode(wrapped, CodeForbidden))
	assert.False(t, IsCode(wrapped, CodeNotFound))
	assert.Equal(t, CodeForbidden, CodeOf(wrapped))
	assert.Equal(t, 403, base.Meta["status"])
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.False(t, IsCode(nil, CodeInternal))
}

func TestErrorString(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(cause, CodeUnavailable, "drive unreachable")

	assert.Equal(t, "unavailable: drive unreachable: dial tcp: timeout", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "not_connected: not connected", New(CodeNotConnected, "not connected").Error())
}

func TestSentinelMatchesWithErrorsIs(t *testing.T) {
	sentinel := New(CodeNotConnected, "not connected")
	err := fmt.Errorf("backup: %w", New(CodeNotConnected, "not connected"))

	assert.True(t, errors.Is(err, sentinel))
	assert.False(t, errors.Is(err, New(CodeNotConnected, "other")))
}
