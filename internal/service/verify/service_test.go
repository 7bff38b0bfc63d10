package verify_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletvet/walletvet/internal/address"
	"github.com/walletvet/walletvet/internal/model"
	"github.com/walletvet/walletvet/internal/registry"
	"github.com/walletvet/walletvet/internal/service/verify"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

const (
	addrX = "TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7"
	addrY = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

var (
	fixedNow  = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	errDiskIO = errors.New("disk i/o")
)

type fakeLedger struct {
	calls atomic.Int32
	snap  func(addr string) *model.LedgerSnapshot
	err   error
}

func (f *fakeLedger) Fetch(_ context.Context, addr address.Address) (*model.LedgerSnapshot, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.snap != nil {
		return f.snap(addr.String()), nil
	}
	return &model.LedgerSnapshot{Address: addr.String(), Balance: "10.000000", TxTotal: 5, FetchedAt: fixedNow}, nil
}

// failingRegistry wraps a Memory store and fails selected operations.
type failingRegistry struct {
	*registry.Memory
	failAppend bool
	failUpsert bool
	failLookup bool
}

func (f *failingRegistry) AppendCheckRecord(ctx context.Context, r model.CheckRecord) error {
	if f.failAppend {
		return veterr.WithCause(veterr.ErrPersistence, errDiskIO)
	}
	return f.Memory.AppendCheckRecord(ctx, r)
}

func (f *failingRegistry) UpsertVendorAddress(ctx context.Context, v, a string, at time.Time) (model.VendorAddressEntry, error) {
	if f.failUpsert {
		return model.VendorAddressEntry{}, errDiskIO
	}
	return f.Memory.UpsertVendorAddress(ctx, v, a, at)
}

func (f *failingRegistry) IsBlacklisted(ctx context.Context, a string) (*model.BlacklistEntry, error) {
	if f.failLookup {
		return nil, errDiskIO
	}
	return f.Memory.IsBlacklisted(ctx, a)
}

func newService(led *fakeLedger, reg verify.Registry) *verify.Service {
	n := 0
	return verify.NewService(&verify.Config{
		Ledger:   led,
		Registry: reg,
		Now:      func() time.Time { return fixedNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("rec-%d", n)
		},
	})
}

func TestCheck_PhishingScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := registry.NewMemory()
	require.NoError(t, store.AddBlacklist(ctx, model.BlacklistEntry{Address: addrX, Tag: "Phishing", AddedAt: fixedNow}))

	svc := newService(&fakeLedger{}, store)
	res, err := svc.Check(ctx, &verify.Request{VendorID: "acme", Address: addrX})
	require.NoError(t, err)

	assert.Equal(t, []verify.State{
		verify.StateValidating, verify.StateFetching, verify.StateCrossReferencing, verify.StateAuditing, verify.StateDone,
	}, res.States)
	require.NotNil(t, res.Verdict)
	assert.True(t, res.Verdict.BlacklistMatch)
	assert.Equal(t, "Phishing", res.Verdict.BlacklistTag)
	assert.Equal(t, model.OutcomeBlacklisted, res.Verdict.Outcome)

	history, err := store.CheckRecords(ctx, addrX)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.OutcomeBlacklisted, history[0].Outcome)
	assert.True(t, history[0].BlacklistMatch)
	assert.Equal(t, "Phishing", history[0].BlacklistTag)
	assert.Equal(t, "rec-1", history[0].ID)
	assert.NotNil(t, history[0].Snapshot)
}

func TestCheck_ClearCreatesVendorEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := registry.NewMemory()
	svc := newService(&fakeLedger{}, store)

	res, err := svc.Check(ctx, &verify.Request{VendorID: " acme ", Address: "  " + addrY, JobID: "job-1"})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeClear, res.Record.Outcome)
	assert.Equal(t, "acme", res.Record.VendorID)
	assert.Equal(t, addrY, res.Record.Address)
	assert.Equal(t, "job-1", res.Record.JobID)
	assert.Equal(t, fixedNow, res.Record.Timestamp)

	vendors, err := store.ListVendors(ctx, addrY)
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	assert.Equal(t, "acme", vendors[0].VendorID)
}

func TestCheck_RedFlagIsReview(t *testing.T) {
	t.Parallel()
	led := &fakeLedger{snap: func(a string) *model.LedgerSnapshot {
		return &model.LedgerSnapshot{Address: a, RedFlag: true, RiskReasons: []string{"has_fraud_transaction"}}
	}}
	res, err := newService(led, registry.NewMemory()).Check(context.Background(), &verify.Request{VendorID: "acme", Address: addrY})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeReview, res.Record.Outcome)
	assert.True(t, res.Record.RedFlag)
}

func TestCheck_CrossVendorOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := registry.NewMemory()
	svc := newService(&fakeLedger{}, store)

	for _, vendor := range []string{"A", "B"} {
		_, err := svc.Check(ctx, &verify.Request{VendorID: vendor, Address: addrX})
		require.NoError(t, err)
	}

	res, err := svc.Check(ctx, &verify.Request{VendorID: "C", Address: addrX})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, res.Record.OtherVendorMatches)
	assert.Equal(t, model.OutcomeReview, res.Record.Outcome)

	// Re-checking A updates rather than duplicates
	res, err = svc.Check(ctx, &verify.Request{VendorID: "A", Address: addrX})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, res.Record.OtherVendorMatches)

	vendors, err := store.ListVendors(ctx, addrX)
	require.NoError(t, err)
	assert.Len(t, vendors, 3)
}

func TestCheck_ValidationFailureNoIO(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		req     verify.Request
		wantErr error
	}{
		{"bad address", verify.Request{VendorID: "acme", Address: "not-an-address"}, veterr.ErrInvalidFormat},
		{"empty address", verify.Request{VendorID: "acme", Address: " "}, veterr.ErrMissingParameter},
		{"empty vendor", verify.Request{VendorID: "", Address: addrX}, veterr.ErrMissingParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			led := &fakeLedger{}
			store := registry.NewMemory()
			res, err := newService(led, store).Check(context.Background(), &tt.req)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, []verify.State{verify.StateValidating, verify.StateFailed}, res.States)
			assert.Nil(t, res.Record)
			assert.Equal(t, int32(0), led.calls.Load())
			assert.Equal(t, 0, store.AuditLen())
		})
	}
}

func TestCheck_UpstreamFailureIsAudited(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := registry.NewMemory()
	led := &fakeLedger{err: veterr.WithCause(veterr.ErrUpstreamUnavailable, errors.New("503"))}

	res, err := newService(led, store).Check(ctx, &verify.Request{VendorID: "acme", Address: addrX})
	require.ErrorIs(t, err, veterr.ErrUpstreamUnavailable)
	assert.Equal(t, verify.StateFailed, res.Final())
	assert.Equal(t, veterr.CodeUpstreamUnavailable, res.FailReason)

	require.NotNil(t, res.Record)
	assert.Nil(t, res.Record.Snapshot)
	assert.Equal(t, model.Outcome(veterr.CodeUpstreamUnavailable), res.Record.Outcome)

	history, err := store.CheckRecords(ctx, addrX)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, veterr.CodeUpstreamUnavailable, history[0].ErrorCode)

	vendors, err := store.ListVendors(ctx, addrX)
	require.NoError(t, err)
	assert.Empty(t, vendors, "failed checks do not whitelist the vendor")
}

func TestCheck_PersistenceFailures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		reg   *failingRegistry
		final []verify.State
	}{
		{
			"append fails",
			&failingRegistry{Memory: registry.NewMemory(), failAppend: true},
			[]verify.State{verify.StateValidating, verify.StateFetching, verify.StateCrossReferencing, verify.StateAuditing, verify.StateFailed},
		},
		{
			"upsert fails",
			&failingRegistry{Memory: registry.NewMemory(), failUpsert: true},
			[]verify.State{verify.StateValidating, verify.StateFetching, verify.StateCrossReferencing, verify.StateAuditing, verify.StateFailed},
		},
		{
			"lookup fails",
			&failingRegistry{Memory: registry.NewMemory(), failLookup: true},
			[]verify.State{verify.StateValidating, verify.StateFetching, verify.StateCrossReferencing, verify.StateFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := newService(&fakeLedger{}, tt.reg).Check(context.Background(), &verify.Request{VendorID: "acme", Address: addrX})
			require.ErrorIs(t, err, veterr.ErrPersistence)
			assert.Equal(t, veterr.CodePersistence, veterr.Code(err))
			assert.Equal(t, tt.final, res.States)
		})
	}
}

func TestCheck_UpstreamFailureWithBrokenAudit(t *testing.T) {
	t.Parallel()
	reg := &failingRegistry{Memory: registry.NewMemory(), failAppend: true}
	led := &fakeLedger{err: veterr.ErrUpstreamUnavailable}

	res, err := newService(led, reg).Check(context.Background(), &verify.Request{VendorID: "acme", Address: addrX})
	require.ErrorIs(t, err, veterr.ErrPersistence)
	assert.Nil(t, res.Record)

	var ve *veterr.VetError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, veterr.CodeUpstreamUnavailable, ve.Details["upstream_error"])
}

func TestCheck_CanceledBeforeFetch(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	led := &fakeLedger{}
	store := registry.NewMemory()
	res, err := newService(led, store).Check(ctx, &verify.Request{VendorID: "acme", Address: addrX})
	require.ErrorIs(t, err, veterr.ErrCanceled)
	assert.Equal(t, int32(0), led.calls.Load())
	assert.Equal(t, 0, store.AuditLen())
	assert.Equal(t, verify.StateFailed, res.Final())
}

func TestCheck_CancelDuringFetchStillAudited(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	led := &fakeLedger{snap: func(a string) *model.LedgerSnapshot {
		cancel()
		return &model.LedgerSnapshot{Address: a}
	}}
	store := registry.NewMemory()

	res, err := newService(led, store).Check(ctx, &verify.Request{VendorID: "acme", Address: addrX})
	require.NoError(t, err)
	assert.Equal(t, verify.StateDone, res.Final())
	assert.Equal(t, 1, store.AuditLen())
}

func TestCheck_UpstreamFailureKeepsBlacklistMatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := registry.NewMemory()
	require.NoError(t, store.AddBlacklist(ctx, model.BlacklistEntry{Address: addrX, Tag: "Phishing", AddedAt: fixedNow}))
	led := &fakeLedger{err: veterr.ErrUpstreamUnavailable}

	res, err := newService(led, store).Check(ctx, &verify.Request{VendorID: "acme", Address: addrX})
	require.ErrorIs(t, err, veterr.ErrUpstreamUnavailable)
	require.NotNil(t, res.Record)
	assert.Equal(t, model.Outcome(veterr.CodeUpstreamUnavailable), res.Record.Outcome)

	history, err := store.CheckRecords(ctx, addrX)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].BlacklistMatch)
	assert.Equal(t, "Phishing", history[0].BlacklistTag)
}

func TestCheck_UpstreamFailureWithBrokenLookupStillAudited(t *testing.T) {
	t.Parallel()
	reg := &failingRegistry{Memory: registry.NewMemory(), failLookup: true}
	led := &fakeLedger{err: veterr.ErrUpstreamUnavailable}

	res, err := newService(led, reg).Check(context.Background(), &verify.Request{VendorID: "acme", Address: addrX})
	require.ErrorIs(t, err, veterr.ErrUpstreamUnavailable)
	require.NotNil(t, res.Record)
	assert.False(t, res.Record.BlacklistMatch)
	assert.Equal(t, 1, reg.AuditLen())
}

// blockingLedger waits for ctx to end and fails the way the ledger client
// does when its caller gives up.
type blockingLedger struct {
	started chan struct{}
}

func (b *blockingLedger) Fetch(ctx context.Context, _ address.Address) (*model.LedgerSnapshot, error) {
	close(b.started)
	<-ctx.Done()
	return nil, veterr.WithCause(veterr.ErrCanceled, ctx.Err())
}

func TestCheck_CancelInterruptsFetchAndIsAudited(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	led := &blockingLedger{started: make(chan struct{})}
	store := registry.NewMemory()

	go func() {
		<-led.started
		cancel()
	}()

	svc := verify.NewService(&verify.Config{Ledger: led, Registry: store, Now: func() time.Time { return fixedNow }})
	res, err := svc.Check(ctx, &verify.Request{VendorID: "acme", Address: addrX})
	require.ErrorIs(t, err, veterr.ErrCanceled)
	assert.Equal(t, verify.StateFailed, res.Final())
	require.NotNil(t, res.Record)
	assert.Equal(t, model.Outcome(veterr.CodeCanceled), res.Record.Outcome)

	history, err := store.CheckRecords(context.Background(), addrX)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, veterr.CodeCanceled, history[0].ErrorCode)
}
