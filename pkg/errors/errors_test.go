package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	veterr "github.com/walletvet/walletvet/pkg/errors"
)

var (
	errInner = errors.New("inner")
	errPlain = errors.New("plain error")
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, veterr.ExitSuccess},
		{"general error", veterr.ErrGeneral, veterr.ExitGeneral},
		{"missing parameter", veterr.ErrMissingParameter, veterr.ExitInput},
		{"invalid format", veterr.ErrInvalidFormat, veterr.ExitInput},
		{"already blacklisted", veterr.ErrAlreadyBlacklisted, veterr.ExitConflict},
		{"not found", veterr.ErrNotFound, veterr.ExitNotFound},
		{"upstream unavailable", veterr.ErrUpstreamUnavailable, veterr.ExitUpstream},
		{"persistence", veterr.ErrPersistence, veterr.ExitPersistence},
		{"plain error", errPlain, veterr.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, veterr.ExitCode(tt.err))
		})
	}
}

func TestTaxonomyCodesAreDistinct(t *testing.T) {
	t.Parallel()
	all := []*veterr.VetError{
		veterr.ErrMissingParameter,
		veterr.ErrInvalidFormat,
		veterr.ErrAlreadyBlacklisted,
		veterr.ErrNotFound,
		veterr.ErrUpstreamUnavailable,
		veterr.ErrUpstreamRateLimited,
		veterr.ErrUpstreamMalformedResponse,
		veterr.ErrPersistence,
	}
	seen := make(map[string]bool)
	messages := make(map[string]bool)
	for _, e := range all {
		assert.False(t, seen[e.Code], "duplicate code %s", e.Code)
		assert.False(t, messages[e.Message], "duplicate message %s", e.Message)
		seen[e.Code] = true
		messages[e.Message] = true
	}
}

func TestWrap_PreservesIdentity(t *testing.T) {
	t.Parallel()
	wrapped := veterr.Wrap(veterr.ErrNotFound, "vendor %s", "acme")
	require.ErrorIs(t, wrapped, veterr.ErrNotFound)
	assert.Equal(t, veterr.CodeNotFound, veterr.Code(wrapped))
	assert.Equal(t, veterr.ExitNotFound, veterr.ExitCode(wrapped))
	assert.Contains(t, wrapped.Error(), "vendor acme")
}

func TestWrap_PlainError(t *testing.T) {
	t.Parallel()
	wrapped := veterr.Wrap(errInner, "context")
	require.ErrorIs(t, wrapped, errInner)
	assert.Equal(t, veterr.CodeGeneral, veterr.Code(wrapped))
	assert.Equal(t, "context: inner", wrapped.Error())
}

func TestWrap_Nil(t *testing.T) {
	t.Parallel()
	require.NoError(t, veterr.Wrap(nil, "noop"))
	require.NoError(t, veterr.WithDetails(nil, nil))
	require.NoError(t, veterr.WithSuggestion(nil, "noop"))
}

func TestWithCause(t *testing.T) {
	t.Parallel()
	err := veterr.WithCause(veterr.ErrPersistence, errInner)
	require.ErrorIs(t, err, veterr.ErrPersistence)
	require.ErrorIs(t, err, errInner)
	assert.Equal(t, "registry persistence failed: inner", err.Error())
}

func TestWithDetails_Merges(t *testing.T) {
	t.Parallel()
	err := veterr.WithDetails(veterr.ErrInvalidFormat, map[string]string{"length": "12"})
	err = veterr.WithDetails(err, map[string]string{"address": "Tabc"})

	var ve *veterr.VetError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "12", ve.Details["length"])
	assert.Equal(t, "Tabc", ve.Details["address"])
	assert.Equal(t, "invalid address format (address: Tabc) (length: 12)", err.Error())
}

func TestWithSuggestion(t *testing.T) {
	t.Parallel()
	err := veterr.WithSuggestion(veterr.ErrNotFound, "did you mean acme?")

	var ve *veterr.VetError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "did you mean acme?", ve.Suggestion)
	require.ErrorIs(t, err, veterr.ErrNotFound)
}

func TestMessage(t *testing.T) {
	t.Parallel()
	assert.Empty(t, veterr.Message(nil))
	assert.Equal(t, "plain error", veterr.Message(errPlain))
	withDetails := veterr.WithDetails(veterr.ErrUpstreamUnavailable, map[string]string{"status": "503"})
	assert.Equal(t, "ledger service unavailable", veterr.Message(withDetails))
}

func TestIs_MatchesByCode(t *testing.T) {
	t.Parallel()
	custom := veterr.New(veterr.CodeNotFound, "something else")
	assert.True(t, veterr.Is(custom, veterr.ErrNotFound))
	assert.False(t, veterr.Is(custom, veterr.ErrPersistence))
}
