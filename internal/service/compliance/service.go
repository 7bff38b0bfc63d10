// Package compliance is the command surface used by front ends: single
// checks, batch runs and registry administration.
package compliance

import (
	"context"
	"strings"
	"time"

	"github.com/walletvet/walletvet/internal/address"
	"github.com/walletvet/walletvet/internal/ledger"
	"github.com/walletvet/walletvet/internal/model"
	"github.com/walletvet/walletvet/internal/registry"
	"github.com/walletvet/walletvet/internal/service/batch"
	"github.com/walletvet/walletvet/internal/service/verify"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

// Config holds the dependencies of the compliance service.
type Config struct {
	Store  registry.Store
	Ledger ledger.Fetcher
	Logger verify.Logger

	// Concurrency is the batch worker pool size.
	Concurrency int

	// Operator is recorded as added_by when a caller does not name one.
	Operator string

	Now func() time.Time
}

// Service implements the command surface.
type Service struct {
	store       registry.Store
	verifier    *verify.Service
	logger      verify.Logger
	concurrency int
	operator    string
	now         func() time.Time
}

// NewService creates a new compliance service.
func NewService(cfg *Config) *Service {
	s := &Service{
		store:       cfg.Store,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
		operator:    cfg.Operator,
		now:         cfg.Now,
	}
	if s.logger == nil {
		s.logger = ledger.NopLogger{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.verifier = verify.NewService(&verify.Config{
		Ledger:   cfg.Ledger,
		Registry: cfg.Store,
		Logger:   s.logger,
		Now:      s.now,
	})
	return s
}

// CheckSingle verifies one (vendor, address) pair.
func (s *Service) CheckSingle(ctx context.Context, vendorID, addr string) (*verify.Result, error) {
	return s.verifier.Check(ctx, &verify.Request{VendorID: vendorID, Address: addr})
}

// RunBatch verifies pairs through a bounded worker pool. progress may be nil.
func (s *Service) RunBatch(ctx context.Context, pairs []batch.Pair, progress batch.ProgressCallback) *batch.Job {
	p := batch.New(&batch.Config{
		Checker:     s.verifier,
		Concurrency: s.concurrency,
		Progress:    progress,
		Logger:      s.logger,
		Now:         s.now,
	})
	return p.Run(ctx, pairs)
}

// AddBlacklist puts address on the blacklist under tag. An address already
// present is rejected with ErrAlreadyBlacklisted; the existing tag is kept.
func (s *Service) AddBlacklist(ctx context.Context, addr, tag, addedBy string) (*model.BlacklistEntry, error) {
	a, err := address.Validate(addr)
	if err != nil {
		return nil, err
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, veterr.Wrap(veterr.ErrMissingParameter, "tag")
	}
	addedBy = strings.TrimSpace(addedBy)
	if addedBy == "" {
		addedBy = s.operator
	}

	entry := model.BlacklistEntry{
		Address: a.String(),
		Tag:     tag,
		AddedAt: s.now().UTC(),
		AddedBy: addedBy,
	}
	if err := s.store.AddBlacklist(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.Debug("compliance: blacklisted %s as %q by %s", a, tag, addedBy)
	return &entry, nil
}

// RemoveBlacklist takes address off the blacklist.
func (s *Service) RemoveBlacklist(ctx context.Context, addr string) error {
	a, err := address.Validate(addr)
	if err != nil {
		return err
	}
	if err := s.store.RemoveBlacklist(ctx, a.String()); err != nil {
		return err
	}
	s.logger.Debug("compliance: removed %s from blacklist", a)
	return nil
}

// ShowBlacklist returns the blacklist entry for address, or ErrNotFound.
func (s *Service) ShowBlacklist(ctx context.Context, addr string) (*model.BlacklistEntry, error) {
	a, err := address.Validate(addr)
	if err != nil {
		return nil, err
	}
	entry, err := s.store.IsBlacklisted(ctx, a.String())
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, veterr.WithDetails(veterr.ErrNotFound, map[string]string{
			"address":  a.String(),
			"registry": "blacklist",
		})
	}
	return entry, nil
}

// ListBlacklist returns every blacklist entry ordered by when it was added.
func (s *Service) ListBlacklist(ctx context.Context) ([]model.BlacklistEntry, error) {
	return s.store.ListBlacklist(ctx)
}

// VendorsFor returns the vendors that have been checked against address.
func (s *Service) VendorsFor(ctx context.Context, addr string) ([]model.VendorAddressEntry, error) {
	a, err := address.Validate(addr)
	if err != nil {
		return nil, err
	}
	return s.store.ListVendors(ctx, a.String())
}

// RemoveVendorAddress deletes a vendor-address whitelist entry.
func (s *Service) RemoveVendorAddress(ctx context.Context, vendorID, addr string) error {
	vendorID = strings.TrimSpace(vendorID)
	if vendorID == "" {
		return veterr.Wrap(veterr.ErrMissingParameter, "vendor_id")
	}
	a, err := address.Validate(addr)
	if err != nil {
		return err
	}
	if err := s.store.RemoveVendorAddress(ctx, vendorID, a.String()); err != nil {
		return err
	}
	s.logger.Debug("compliance: removed vendor %s for %s", vendorID, a)
	return nil
}

// History returns the audit records of address in append order.
func (s *Service) History(ctx context.Context, addr string) ([]model.CheckRecord, error) {
	a, err := address.Validate(addr)
	if err != nil {
		return nil, err
	}
	return s.store.CheckRecords(ctx, a.String())
}
