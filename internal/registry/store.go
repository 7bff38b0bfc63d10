// Package registry stores the blacklist, the vendor-address whitelist and the
// append-only audit log of check records.
//
// Mutations of a single key are linearizable: every implementation serializes
// them through a per-key lock, never through a store-wide lock held across a
// batch.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/walletvet/walletvet/internal/model"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

// Store is the registry contract shared by the memory and LevelDB backends.
type Store interface {
	// IsBlacklisted returns the entry for address, or nil when absent.
	IsBlacklisted(ctx context.Context, address string) (*model.BlacklistEntry, error)

	// AddBlacklist adds an entry. Fails with ErrAlreadyBlacklisted when the
	// address is present.
	AddBlacklist(ctx context.Context, entry model.BlacklistEntry) error

	// RemoveBlacklist deletes an entry. Fails with ErrNotFound when absent.
	RemoveBlacklist(ctx context.Context, address string) error

	// ListBlacklist returns every entry ordered by AddedAt.
	ListBlacklist(ctx context.Context) ([]model.BlacklistEntry, error)

	// FindOtherVendors returns the vendors known for address other than
	// excludingVendor, ordered by first sighting.
	FindOtherVendors(ctx context.Context, address, excludingVendor string) ([]string, error)

	// ListVendors returns every vendor entry for address ordered by first sighting.
	ListVendors(ctx context.Context, address string) ([]model.VendorAddressEntry, error)

	// UpsertVendorAddress creates the entry on first sighting and refreshes
	// LastChecked afterwards. Never duplicates.
	UpsertVendorAddress(ctx context.Context, vendorID, address string, at time.Time) (model.VendorAddressEntry, error)

	// RemoveVendorAddress deletes an entry. Fails with ErrNotFound when absent.
	RemoveVendorAddress(ctx context.Context, vendorID, address string) error

	// AppendCheckRecord appends to the audit log. Records are never rewritten.
	AppendCheckRecord(ctx context.Context, record model.CheckRecord) error

	// CheckRecords returns the audit history of address in append order.
	CheckRecords(ctx context.Context, address string) ([]model.CheckRecord, error)

	// Close releases the store.
	Close() error
}

// maxSuggestionDistance bounds how far a "did you mean" candidate may be.
const maxSuggestionDistance = 3

// suggest returns the candidate closest to target by edit distance, or ""
// when none is close enough.
func suggest(target string, candidates []string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1
	for _, c := range candidates {
		if c == target {
			continue
		}
		d := levenshtein.ComputeDistance(strings.ToLower(target), strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return veterr.WithCause(veterr.ErrCanceled, err)
	}
	return nil
}

func persistenceError(op string, err error) error {
	return veterr.WithDetails(veterr.WithCause(veterr.ErrPersistence, err), map[string]string{"op": op})
}

func alreadyBlacklisted(existing model.BlacklistEntry) error {
	return veterr.WithDetails(veterr.ErrAlreadyBlacklisted, map[string]string{
		"address":  existing.Address,
		"tag":      existing.Tag,
		"added_at": existing.AddedAt.UTC().Format(time.RFC3339),
	})
}

func blacklistNotFound(address string, known []string) error {
	err := veterr.WithDetails(veterr.ErrNotFound, map[string]string{
		"address":  address,
		"registry": "blacklist",
	})
	if s := suggest(address, known); s != "" {
		err = veterr.WithSuggestion(err, fmt.Sprintf("did you mean %s?", s))
	}
	return err
}

func vendorNotFound(vendorID, address string, known []model.VendorAddressEntry) error {
	err := veterr.WithDetails(veterr.ErrNotFound, map[string]string{
		"vendor_id": vendorID,
		"address":   address,
		"registry":  "vendor",
	})
	names := make([]string, 0, len(known))
	for _, e := range known {
		names = append(names, e.VendorID)
	}
	if s := suggest(vendorID, names); s != "" {
		err = veterr.WithSuggestion(err, fmt.Sprintf("did you mean vendor %q?", s))
	}
	return err
}

func sortBlacklist(entries []model.BlacklistEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].AddedAt.Equal(entries[j].AddedAt) {
			return entries[i].Address < entries[j].Address
		}
		return entries[i].AddedAt.Before(entries[j].AddedAt)
	})
}

func sortVendors(entries []model.VendorAddressEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Seq < entries[j].Seq
	})
}

func otherVendors(entries []model.VendorAddressEntry, excluding string) []string {
	sortVendors(entries)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.VendorID != excluding {
			out = append(out, e.VendorID)
		}
	}
	return out
}

func validateVendorKey(vendorID, address string) error {
	if strings.TrimSpace(vendorID) == "" {
		return veterr.Wrap(veterr.ErrMissingParameter, "vendor_id")
	}
	if strings.TrimSpace(address) == "" {
		return veterr.Wrap(veterr.ErrMissingParameter, "address")
	}
	if strings.ContainsRune(vendorID, keySep) || strings.ContainsRune(address, keySep) {
		return veterr.WithDetails(veterr.ErrInvalidFormat, map[string]string{"reason": "NUL byte in key"})
	}
	return nil
}

// keySep separates composite key parts.
const keySep = '\x00'
