// Package xref combines registry lookups and a ledger snapshot into a
// verdict. It performs no I/O.
package xref

import (
	"github.com/walletvet/walletvet/internal/model"
)

// Verdict is the result of cross-referencing one (vendor, address) pair.
type Verdict struct {
	BlacklistMatch     bool
	BlacklistTag       string
	CrossVendorMatches []string
	RedFlag            bool
	Outcome            model.Outcome
}

// Evaluate derives the verdict for vendorID using the given address.
//
// otherVendors is deduplicated and never contains vendorID; its order is
// kept. A nil snapshot counts as no red flag. Outcome precedence is
// BLACKLISTED over REVIEW over CLEAR.
func Evaluate(vendorID, address string, snapshot *model.LedgerSnapshot, blacklist *model.BlacklistEntry, otherVendors []string) Verdict {
	v := Verdict{
		CrossVendorMatches: dedupe(vendorID, otherVendors),
	}

	if blacklist != nil {
		v.BlacklistMatch = true
		v.BlacklistTag = blacklist.Tag
	}

	if snapshot != nil {
		v.RedFlag = snapshot.RedFlag
	}

	switch {
	case v.BlacklistMatch:
		v.Outcome = model.OutcomeBlacklisted
	case v.RedFlag || len(v.CrossVendorMatches) > 0:
		v.Outcome = model.OutcomeReview
	default:
		v.Outcome = model.OutcomeClear
	}

	return v
}

func dedupe(self string, vendors []string) []string {
	out := make([]string, 0, len(vendors))
	seen := make(map[string]struct{}, len(vendors))
	for _, v := range vendors {
		if v == self || v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
