// Package verify runs a single wallet compliance check: validate, fetch the
// ledger snapshot, cross-reference the registries and append the audit
// record.
package verify

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/walletvet/walletvet/internal/address"
	"github.com/walletvet/walletvet/internal/ledger"
	"github.com/walletvet/walletvet/internal/metrics"
	"github.com/walletvet/walletvet/internal/model"
	"github.com/walletvet/walletvet/internal/xref"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

// Config holds the dependencies of the verification service.
type Config struct {
	Ledger   ledger.Fetcher
	Registry Registry
	Logger   Logger

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
	// NewID overrides record id generation. Defaults to random UUIDs.
	NewID func() string
}

// Service runs checks. It is safe for concurrent use.
type Service struct {
	ledger   ledger.Fetcher
	registry Registry
	logger   Logger
	now      func() time.Time
	newID    func() string
}

// NewService creates a new verification service.
func NewService(cfg *Config) *Service {
	s := &Service{
		ledger:   cfg.Ledger,
		registry: cfg.Registry,
		logger:   cfg.Logger,
		now:      cfg.Now,
		newID:    cfg.NewID,
	}
	if s.logger == nil {
		s.logger = ledger.NopLogger{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// run tracks the visited states of one check.
type run struct {
	result *Result
}

func (r *run) enter(s State) {
	r.result.States = append(r.result.States, s)
}

func (r *run) fail(err error) (*Result, error) {
	r.result.States = append(r.result.States, StateFailed)
	r.result.FailReason = veterr.Code(err)
	return r.result, err
}

// Check verifies one (vendor, address) pair.
//
// Validation failures perform no I/O and write no record. Once fetching has
// started the check always reaches the audit log: an upstream failure is
// recorded without a snapshot and its outcome is the error code, but with the
// blacklist match filled in. Canceling ctx during the fetch fails the fetch
// with CANCELED, which is audited like any upstream failure. Registry reads
// and writes after the fetch ignore cancellation of ctx.
//
// The returned Result is never nil; on failure it carries the visited states
// and, when one was written, the audit record.
func (s *Service) Check(ctx context.Context, req *Request) (*Result, error) {
	r := &run{result: &Result{}}
	itemDetails := map[string]string{"vendor_id": req.VendorID, "address": req.Address}

	// Validating
	r.enter(StateValidating)
	vendorID := strings.TrimSpace(req.VendorID)
	if vendorID == "" {
		return r.fail(veterr.WithDetails(veterr.Wrap(veterr.ErrMissingParameter, "vendor_id"), itemDetails))
	}
	addr, err := address.Validate(req.Address)
	if err != nil {
		return r.fail(veterr.WithDetails(err, map[string]string{"vendor_id": vendorID}))
	}
	itemDetails = map[string]string{"vendor_id": vendorID, "address": addr.String()}

	if ctx.Err() != nil {
		return r.fail(veterr.WithDetails(veterr.WithCause(veterr.ErrCanceled, context.Cause(ctx)), itemDetails))
	}

	// Fetching
	r.enter(StateFetching)
	snapshot, fetchErr := s.ledger.Fetch(ctx, addr)

	// Work past this point is recorded even if the caller gives up.
	durable := context.WithoutCancel(ctx)

	if fetchErr != nil {
		code := veterr.Code(fetchErr)
		record := s.newRecord(req.JobID, vendorID, addr.String())
		record.Outcome = model.Outcome(code)
		record.ErrorCode = code
		record.ErrorMessage = fetchErr.Error()

		// The blacklist is local, so it is still matched without a snapshot.
		if entry, err := s.registry.IsBlacklisted(durable, addr.String()); err != nil {
			s.logger.Error("verify: %s/%s blacklist lookup failed: %v", vendorID, addr, err)
		} else if entry != nil {
			record.BlacklistMatch = true
			record.BlacklistTag = entry.Tag
		}

		s.logger.Error("verify: %s/%s fetch failed: %v", vendorID, addr, fetchErr)
		metrics.Checks.WithLabelValues(code).Inc()

		r.enter(StateAuditing)
		if err := s.registry.AppendCheckRecord(durable, record); err != nil {
			s.logger.Error("verify: %s/%s audit append failed: %v", vendorID, addr, err)
			return r.fail(veterr.WithDetails(asPersistence(err), map[string]string{
				"vendor_id":      vendorID,
				"address":        addr.String(),
				"upstream_error": code,
			}))
		}
		r.result.Record = &record
		return r.fail(veterr.WithDetails(fetchErr, itemDetails))
	}

	// CrossReferencing
	r.enter(StateCrossReferencing)
	entry, err := s.registry.IsBlacklisted(durable, addr.String())
	if err != nil {
		return r.fail(veterr.WithDetails(asPersistence(err), itemDetails))
	}
	others, err := s.registry.FindOtherVendors(durable, addr.String(), vendorID)
	if err != nil {
		return r.fail(veterr.WithDetails(asPersistence(err), itemDetails))
	}
	verdict := xref.Evaluate(vendorID, addr.String(), snapshot, entry, others)
	r.result.Verdict = &verdict

	record := s.newRecord(req.JobID, vendorID, addr.String())
	record.BlacklistMatch = verdict.BlacklistMatch
	record.BlacklistTag = verdict.BlacklistTag
	record.OtherVendorMatches = verdict.CrossVendorMatches
	record.RedFlag = verdict.RedFlag
	record.Snapshot = snapshot
	record.Outcome = verdict.Outcome

	// Auditing
	r.enter(StateAuditing)
	if err := s.registry.AppendCheckRecord(durable, record); err != nil {
		s.logger.Error("verify: %s/%s audit append failed: %v", vendorID, addr, err)
		return r.fail(veterr.WithDetails(asPersistence(err), itemDetails))
	}
	r.result.Record = &record

	if _, err := s.registry.UpsertVendorAddress(durable, vendorID, addr.String(), record.Timestamp); err != nil {
		s.logger.Error("verify: %s/%s vendor upsert failed: %v", vendorID, addr, err)
		return r.fail(veterr.WithDetails(asPersistence(err), itemDetails))
	}

	r.enter(StateDone)
	metrics.Checks.WithLabelValues(string(verdict.Outcome)).Inc()
	s.logger.Debug("verify: %s/%s -> %s", vendorID, addr, verdict.Outcome)
	return r.result, nil
}

func (s *Service) newRecord(jobID, vendorID, addr string) model.CheckRecord {
	return model.CheckRecord{
		ID:                 s.newID(),
		Timestamp:          s.now().UTC(),
		JobID:              jobID,
		VendorID:           vendorID,
		Address:            addr,
		OtherVendorMatches: []string{},
	}
}

// asPersistence maps registry failures onto ErrPersistence. Errors already
// carrying ErrPersistence keep their details.
func asPersistence(err error) error {
	if veterr.Is(err, veterr.ErrPersistence) {
		return err
	}
	return veterr.WithCause(veterr.ErrPersistence, err)
}
