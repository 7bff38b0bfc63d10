package output_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walletvet/walletvet/internal/output"
)

func TestStatusLines(t *testing.T) {
	output.DisableColor()

	tests := []struct {
		name  string
		write func(*bytes.Buffer)
		want  string
	}{
		{"info", func(b *bytes.Buffer) { output.Info(b, "%d rows", 3) }, "• 3 rows\n"},
		{"warn", func(b *bytes.Buffer) { output.Warn(b, "slow upstream") }, "! slow upstream\n"},
		{"success", func(b *bytes.Buffer) { output.Success(b, "saved %s", "x") }, "✓ saved x\n"},
		{"failure", func(b *bytes.Buffer) { output.Failure(b, "blocked") }, "✗ blocked\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			tc.write(&buf)
			assert.Equal(t, tc.want, buf.String())
		})
	}
}
