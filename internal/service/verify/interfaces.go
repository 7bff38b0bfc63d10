package verify

import (
	"context"
	"time"

	"github.com/walletvet/walletvet/internal/ledger"
	"github.com/walletvet/walletvet/internal/model"
	"github.com/walletvet/walletvet/internal/registry"
)

// Compile-time interface checks.
var (
	_ Registry      = (registry.Store)(nil)
	_ ledger.Logger = (Logger)(nil)
)

// Registry is the subset of the registry store used by a check.
// Satisfied by registry.Store.
type Registry interface {
	IsBlacklisted(ctx context.Context, address string) (*model.BlacklistEntry, error)
	FindOtherVendors(ctx context.Context, address, excludingVendor string) ([]string, error)
	UpsertVendorAddress(ctx context.Context, vendorID, address string, at time.Time) (model.VendorAddressEntry, error)
	AppendCheckRecord(ctx context.Context, record model.CheckRecord) error
}

// Logger provides logging capabilities.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}
