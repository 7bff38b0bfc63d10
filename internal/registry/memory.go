package registry

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/walletvet/walletvet/internal/model"
)

// Compile-time interface check
var _ Store = (*Memory)(nil)

// Memory is an in-process Store used by tests and ephemeral runs.
type Memory struct {
	mu        sync.RWMutex
	blacklist map[string]model.BlacklistEntry
	vendors   map[string]map[string]model.VendorAddressEntry // address -> vendor -> entry
	audit     []model.CheckRecord
	seq       uint64

	keys *KeyedMutex
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		blacklist: make(map[string]model.BlacklistEntry),
		vendors:   make(map[string]map[string]model.VendorAddressEntry),
		keys:      NewKeyedMutex(),
	}
}

// IsBlacklisted returns the entry for address, or nil when absent.
func (m *Memory) IsBlacklisted(ctx context.Context, address string) (*model.BlacklistEntry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.blacklist[address]
	if !ok {
		return nil, nil //nolint:nilnil // absent is not an error
	}
	return &entry, nil
}

// AddBlacklist adds an entry; the first of concurrent adds wins.
func (m *Memory) AddBlacklist(ctx context.Context, entry model.BlacklistEntry) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	unlock := m.keys.Lock(blacklistLockKey(entry.Address))
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.blacklist[entry.Address]; ok {
		return alreadyBlacklisted(existing)
	}
	m.blacklist[entry.Address] = entry
	return nil
}

// RemoveBlacklist deletes the entry for address.
func (m *Memory) RemoveBlacklist(ctx context.Context, address string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	unlock := m.keys.Lock(blacklistLockKey(address))
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blacklist[address]; !ok {
		known := make([]string, 0, len(m.blacklist))
		for a := range m.blacklist {
			known = append(known, a)
		}
		slices.Sort(known)
		return blacklistNotFound(address, known)
	}
	delete(m.blacklist, address)
	return nil
}

// ListBlacklist returns every entry ordered by AddedAt.
func (m *Memory) ListBlacklist(ctx context.Context) ([]model.BlacklistEntry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	entries := make([]model.BlacklistEntry, 0, len(m.blacklist))
	for _, e := range m.blacklist {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	sortBlacklist(entries)
	return entries, nil
}

// FindOtherVendors returns the vendors known for address other than
// excludingVendor, ordered by first sighting.
func (m *Memory) FindOtherVendors(ctx context.Context, address, excludingVendor string) ([]string, error) {
	entries, err := m.ListVendors(ctx, address)
	if err != nil {
		return nil, err
	}
	return otherVendors(entries, excludingVendor), nil
}

// ListVendors returns every vendor entry for address ordered by first sighting.
func (m *Memory) ListVendors(ctx context.Context, address string) ([]model.VendorAddressEntry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	byVendor := m.vendors[address]
	entries := make([]model.VendorAddressEntry, 0, len(byVendor))
	for _, e := range byVendor {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	sortVendors(entries)
	return entries, nil
}

// UpsertVendorAddress creates or refreshes the (vendorID, address) entry.
func (m *Memory) UpsertVendorAddress(ctx context.Context, vendorID, address string, at time.Time) (model.VendorAddressEntry, error) {
	if err := checkContext(ctx); err != nil {
		return model.VendorAddressEntry{}, err
	}
	if err := validateVendorKey(vendorID, address); err != nil {
		return model.VendorAddressEntry{}, err
	}
	unlock := m.keys.Lock(vendorLockKey(vendorID, address))
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	byVendor, ok := m.vendors[address]
	if !ok {
		byVendor = make(map[string]model.VendorAddressEntry)
		m.vendors[address] = byVendor
	}

	entry, exists := byVendor[vendorID]
	if exists {
		if at.After(entry.LastChecked) {
			entry.LastChecked = at
		}
	} else {
		m.seq++
		entry = model.VendorAddressEntry{
			VendorID:    vendorID,
			Address:     address,
			FirstSeen:   at,
			LastChecked: at,
			Seq:         m.seq,
		}
	}
	byVendor[vendorID] = entry
	return entry, nil
}

// RemoveVendorAddress deletes the (vendorID, address) entry.
func (m *Memory) RemoveVendorAddress(ctx context.Context, vendorID, address string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	unlock := m.keys.Lock(vendorLockKey(vendorID, address))
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	byVendor := m.vendors[address]
	if _, ok := byVendor[vendorID]; !ok {
		known := make([]model.VendorAddressEntry, 0, len(byVendor))
		for _, e := range byVendor {
			known = append(known, e)
		}
		sortVendors(known)
		return vendorNotFound(vendorID, address, known)
	}

	delete(byVendor, vendorID)
	if len(byVendor) == 0 {
		delete(m.vendors, address)
	}
	return nil
}

// AppendCheckRecord appends a copy of record to the audit log.
func (m *Memory) AppendCheckRecord(ctx context.Context, record model.CheckRecord) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.audit = append(m.audit, cloneRecord(record))
	return nil
}

// CheckRecords returns the audit history of address in append order.
func (m *Memory) CheckRecords(ctx context.Context, address string) ([]model.CheckRecord, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.CheckRecord
	for _, r := range m.audit {
		if r.Address == address {
			out = append(out, cloneRecord(r))
		}
	}
	return out, nil
}

// AuditLen returns the number of records in the audit log.
func (m *Memory) AuditLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.audit)
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

func cloneRecord(r model.CheckRecord) model.CheckRecord {
	r.OtherVendorMatches = slices.Clone(r.OtherVendorMatches)
	if r.Snapshot != nil {
		snap := *r.Snapshot
		snap.RiskReasons = slices.Clone(snap.RiskReasons)
		r.Snapshot = &snap
	}
	return r
}

func blacklistLockKey(address string) string {
	return "blacklist/" + address
}

func vendorLockKey(vendorID, address string) string {
	return "vendor/" + address + string(keySep) + vendorID
}
