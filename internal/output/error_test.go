package output_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletvet/walletvet/internal/output"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

func notFoundErr() error {
	err := veterr.WithDetails(veterr.ErrNotFound, map[string]string{
		"vendor_id": "acme-crop",
		"address":   "TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7",
	})
	return veterr.WithSuggestion(err, `did you mean vendor "acme-corp"?`)
}

func TestFormatError_Nil(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, nil, output.FormatText))
	assert.Empty(t, buf.String())
}

func TestFormatError_Text(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, notFoundErr(), output.FormatText))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Error [NOT_FOUND]: entry not found\n"))
	assert.Contains(t, out, `Suggestion: did you mean vendor "acme-corp"?`)

	// Details are sorted by key.
	assert.Less(t, strings.Index(out, "address:"), strings.Index(out, "vendor_id:"))
}

func TestFormatError_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	cause := errors.New("connection reset")
	require.NoError(t, output.FormatError(&buf, veterr.WithCause(veterr.ErrUpstreamUnavailable, cause), output.FormatJSON))

	var got output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, veterr.CodeUpstreamUnavailable, got.Error.Code)
	assert.Equal(t, "connection reset", got.Error.Cause)
	assert.Equal(t, veterr.ExitUpstream, got.Error.ExitCode)
	assert.Contains(t, buf.String(), "\n  \"error\"")
}

func TestFormatError_Generic(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, errors.New("boom"), output.FormatJSON))

	var got output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, veterr.CodeGeneral, got.Error.Code)
	assert.Equal(t, "boom", got.Error.Message)
	assert.Equal(t, veterr.ExitGeneral, got.Error.ExitCode)
}

func TestFormatError_WriterError(t *testing.T) {
	t.Parallel()
	err := output.FormatError(brokenWriter{}, notFoundErr(), output.FormatText)
	require.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestFormatSuccess(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, output.FormatSuccess(&buf, "blacklisted", output.FormatText))
	assert.Equal(t, "blacklisted\n", buf.String())

	buf.Reset()
	require.NoError(t, output.FormatSuccess(&buf, "blacklisted", output.FormatJSON))
	var got map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "success", got["status"])
}
