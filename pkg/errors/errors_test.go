package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeSurvivesWrapping(t *testing.T) {
	base := Wrap(CodeUpstream, "upstream failed", fmt.Errorf("status 502"))
	wrapped := fmt.Errorf("history: %w", base)

	require.True(t, IsCode(wrapped, CodeUpstream))
	require.False(t, IsCode(wrapped, CodeInvalidInput))
	require.Equal(t, "upstream failed", MessageOf(wrapped))
	require.Equal(t, "upstream failed: status 502", base.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	err := fmt.Errorf("boom")
	require.Empty(t, CodeOf(err))
	require.Equal(t, "boom", MessageOf(err))
	require.Empty(t, MessageOf(nil))
}
