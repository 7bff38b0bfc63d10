package ledger

import (
	"math/big"
	"strings"
)

// Token decimals used by the TRON ledger.
const (
	TRXDecimals  = 6
	USDTDecimals = 6
)

// FormatUnits converts an integer amount in base units to a decimal string
// with exactly the given number of fractional digits. Nil formats as zero.
// For example, 1500000 with 6 decimals returns "1.500000".
func FormatUnits(amount *big.Int, decimalPlaces int) string {
	if amount == nil {
		amount = new(big.Int)
	}

	neg := amount.Sign() < 0
	str := new(big.Int).Abs(amount).String()

	if decimalPlaces <= 0 {
		if neg {
			return "-" + str
		}
		return str
	}

	// Pad with leading zeros if necessary
	if len(str) <= decimalPlaces {
		str = strings.Repeat("0", decimalPlaces-len(str)+1) + str
	}

	decimalPos := len(str) - decimalPlaces
	result := str[:decimalPos] + "." + str[decimalPos:]
	if neg {
		return "-" + result
	}
	return result
}

// ParseUnits parses a base-unit integer string as returned by the ledger
// API. Empty input is zero; ok is false when the text is not an integer.
func ParseUnits(raw string) (*big.Int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return new(big.Int), true
	}
	return new(big.Int).SetString(raw, 10)
}
