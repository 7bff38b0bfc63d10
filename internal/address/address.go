// Package address validates TRC20 wallet addresses.
package address

import (
	"strconv"
	"strings"

	veterr "github.com/walletvet/walletvet/pkg/errors"
)

const (
	// Length is the length of a TRC20 address.
	Length = 34

	// Prefix is the leading character of every mainnet TRON address.
	Prefix = 'T'

	// base58Alphabet excludes 0, O, I and l.
	base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
)

// Format tags the result of validation.
type Format int

// Format values.
const (
	InvalidFormat Format = iota
	Valid
)

func (f Format) String() string {
	if f == Valid {
		return "valid"
	}
	return "invalid_format"
}

// Address is a validated wallet address. The zero value is invalid.
type Address struct {
	value  string
	format Format
}

// String returns the address text.
func (a Address) String() string {
	return a.value
}

// Format returns the validation tag.
func (a Address) Format() Format {
	return a.format
}

// IsValid reports whether the address passed validation.
func (a Address) IsValid() bool {
	return a.format == Valid
}

// MustParse validates raw and panics on failure. Intended for tests and
// constants.
func MustParse(raw string) Address {
	a, err := Validate(raw)
	if err != nil {
		panic(err)
	}
	return a
}

// Validate checks raw against the TRC20 address rules. Surrounding whitespace
// is ignored. Empty input fails with ErrMissingParameter, anything else that
// does not match fails with ErrInvalidFormat carrying the reason in details.
func Validate(raw string) (Address, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Address{format: InvalidFormat}, veterr.Wrap(veterr.ErrMissingParameter, "address")
	}

	invalid := func(details map[string]string) (Address, error) {
		details["address"] = s
		return Address{value: s, format: InvalidFormat}, veterr.WithDetails(veterr.ErrInvalidFormat, details)
	}

	if len(s) != Length {
		return invalid(map[string]string{
			"length": strconv.Itoa(len(s)),
			"reason": "TRC20 addresses are 34 characters",
		})
	}

	if s[0] != Prefix {
		return invalid(map[string]string{
			"position": "0",
			"char":     string(s[0]),
			"reason":   "TRC20 addresses start with T",
		})
	}

	for i := 1; i < len(s); i++ {
		if strings.IndexByte(base58Alphabet, s[i]) < 0 {
			return invalid(map[string]string{
				"position": strconv.Itoa(i),
				"char":     string(s[i]),
				"reason":   "character is not base58",
			})
		}
	}

	return Address{value: s, format: Valid}, nil
}

// IsValid reports whether raw is a valid TRC20 address.
func IsValid(raw string) bool {
	_, err := Validate(raw)
	return err == nil
}
