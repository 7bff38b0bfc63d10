package ledger_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walletvet/walletvet/internal/ledger"
)

func TestFormatUnits(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		amount   *big.Int
		decimals int
		want     string
	}{
		{"1.5 USDT", big.NewInt(1_500_000), 6, "1.500000"},
		{"nil amount", nil, 6, "0.000000"},
		{"zero", big.NewInt(0), 6, "0.000000"},
		{"one sun", big.NewInt(1), 6, "0.000001"},
		{"large", big.NewInt(123_456_789_012), 6, "123456.789012"},
		{"no decimals", big.NewInt(42), 0, "42"},
		{"negative", big.NewInt(-2_500_000), 6, "-2.500000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ledger.FormatUnits(tt.amount, tt.decimals))
		})
	}
}

func TestParseUnits(t *testing.T) {
	t.Parallel()

	v, ok := ledger.ParseUnits("1500000")
	assert.True(t, ok)
	assert.Equal(t, "1500000", v.String())

	v, ok = ledger.ParseUnits("  ")
	assert.True(t, ok)
	assert.Equal(t, int64(0), v.Int64())

	_, ok = ledger.ParseUnits("1.5")
	assert.False(t, ok)

	_, ok = ledger.ParseUnits("abc")
	assert.False(t, ok)
}
