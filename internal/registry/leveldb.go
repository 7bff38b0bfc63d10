package registry

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/walletvet/walletvet/internal/model"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

// Key layout:
//
//	bl/<address>                   -> BlacklistEntry
//	va/<address>\x00<vendor>       -> VendorAddressEntry
//	audit/<seq>                    -> CheckRecord
//	ai/<address>\x00<seq>          -> empty (per-address audit index)
//	meta/seq                       -> last assigned sequence number
const (
	prefixBlacklist  = "bl/"
	prefixVendor     = "va/"
	prefixAudit      = "audit/"
	prefixAuditIndex = "ai/"
	keySeq           = "meta/seq"
)

// Compile-time interface check
var _ Store = (*LevelDB)(nil)

// LevelDB is the durable Store backed by goleveldb.
type LevelDB struct {
	db    *leveldb.DB
	keys  *KeyedMutex
	wopts *opt.WriteOptions

	seqMu sync.Mutex
	seq   uint64
}

// OpenLevelDB opens (or creates) the store in dir.
func OpenLevelDB(dir string) (*LevelDB, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, persistenceError("open", err)
	}
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, persistenceError("open", fmt.Errorf("opening %s: %w", dir, err))
	}
	return newLevelDB(db)
}

// OpenMemLevelDB opens a LevelDB store on in-memory storage.
func OpenMemLevelDB() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, persistenceError("open", err)
	}
	return newLevelDB(db)
}

func newLevelDB(db *leveldb.DB) (*LevelDB, error) {
	s := &LevelDB{
		db:    db,
		keys:  NewKeyedMutex(),
		wopts: &opt.WriteOptions{Sync: true},
	}

	raw, err := db.Get([]byte(keySeq), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
	case err != nil:
		_ = db.Close()
		return nil, persistenceError("open", err)
	case len(raw) != 8:
		_ = db.Close()
		return nil, persistenceError("open", fmt.Errorf("corrupt sequence counter (%d bytes)", len(raw)))
	default:
		s.seq = binary.BigEndian.Uint64(raw)
	}

	return s, nil
}

// nextSeq reserves a sequence number and stages the new counter in batch.
// The caller must hold seqMu until the batch is written.
func (s *LevelDB) nextSeq(batch *leveldb.Batch) uint64 {
	s.seq++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], s.seq)
	batch.Put([]byte(keySeq), buf[:])
	return s.seq
}

// IsBlacklisted returns the entry for address, or nil when absent.
func (s *LevelDB) IsBlacklisted(ctx context.Context, address string) (*model.BlacklistEntry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	var entry model.BlacklistEntry
	found, err := s.getJSON(blacklistKey(address), &entry)
	if err != nil {
		return nil, persistenceError("is_blacklisted", err)
	}
	if !found {
		return nil, nil //nolint:nilnil // absent is not an error
	}
	return &entry, nil
}

// AddBlacklist adds an entry; the first of concurrent adds wins.
func (s *LevelDB) AddBlacklist(ctx context.Context, entry model.BlacklistEntry) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	unlock := s.keys.Lock(blacklistLockKey(entry.Address))
	defer unlock()

	var existing model.BlacklistEntry
	found, err := s.getJSON(blacklistKey(entry.Address), &existing)
	if err != nil {
		return persistenceError("add_blacklist", err)
	}
	if found {
		return alreadyBlacklisted(existing)
	}

	if err := s.putJSON(blacklistKey(entry.Address), entry); err != nil {
		return persistenceError("add_blacklist", err)
	}
	return nil
}

// RemoveBlacklist deletes the entry for address.
func (s *LevelDB) RemoveBlacklist(ctx context.Context, address string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	unlock := s.keys.Lock(blacklistLockKey(address))
	defer unlock()

	ok, err := s.db.Has(blacklistKey(address), nil)
	if err != nil {
		return persistenceError("remove_blacklist", err)
	}
	if !ok {
		entries, err := s.ListBlacklist(ctx)
		if err != nil {
			return err
		}
		known := make([]string, 0, len(entries))
		for _, e := range entries {
			known = append(known, e.Address)
		}
		return blacklistNotFound(address, known)
	}

	if err := s.db.Delete(blacklistKey(address), s.wopts); err != nil {
		return persistenceError("remove_blacklist", err)
	}
	return nil
}

// ListBlacklist returns every entry ordered by AddedAt.
func (s *LevelDB) ListBlacklist(ctx context.Context) ([]model.BlacklistEntry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	var entries []model.BlacklistEntry
	err := s.scan([]byte(prefixBlacklist), func(_, value []byte) error {
		var e model.BlacklistEntry
		if err := json.Unmarshal(value, &e); err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, persistenceError("list_blacklist", err)
	}
	sortBlacklist(entries)
	return entries, nil
}

// FindOtherVendors returns the vendors known for address other than
// excludingVendor, ordered by first sighting.
func (s *LevelDB) FindOtherVendors(ctx context.Context, address, excludingVendor string) ([]string, error) {
	entries, err := s.ListVendors(ctx, address)
	if err != nil {
		return nil, err
	}
	return otherVendors(entries, excludingVendor), nil
}

// ListVendors returns every vendor entry for address ordered by first sighting.
func (s *LevelDB) ListVendors(ctx context.Context, address string) ([]model.VendorAddressEntry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	var entries []model.VendorAddressEntry
	err := s.scan(vendorPrefix(address), func(_, value []byte) error {
		var e model.VendorAddressEntry
		if err := json.Unmarshal(value, &e); err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, persistenceError("list_vendors", err)
	}
	sortVendors(entries)
	return entries, nil
}

// UpsertVendorAddress creates or refreshes the (vendorID, address) entry.
func (s *LevelDB) UpsertVendorAddress(ctx context.Context, vendorID, address string, at time.Time) (model.VendorAddressEntry, error) {
	if err := checkContext(ctx); err != nil {
		return model.VendorAddressEntry{}, err
	}
	if err := validateVendorKey(vendorID, address); err != nil {
		return model.VendorAddressEntry{}, err
	}
	unlock := s.keys.Lock(vendorLockKey(vendorID, address))
	defer unlock()

	key := vendorKey(vendorID, address)
	var entry model.VendorAddressEntry
	found, err := s.getJSON(key, &entry)
	if err != nil {
		return model.VendorAddressEntry{}, persistenceError("upsert_vendor", err)
	}

	if found {
		if at.After(entry.LastChecked) {
			entry.LastChecked = at
		}
		if err := s.putJSON(key, entry); err != nil {
			return model.VendorAddressEntry{}, persistenceError("upsert_vendor", err)
		}
		return entry, nil
	}

	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	batch := new(leveldb.Batch)
	entry = model.VendorAddressEntry{
		VendorID:    vendorID,
		Address:     address,
		FirstSeen:   at,
		LastChecked: at,
		Seq:         s.nextSeq(batch),
	}
	value, err := json.Marshal(entry)
	if err != nil {
		return model.VendorAddressEntry{}, persistenceError("upsert_vendor", err)
	}
	batch.Put(key, value)
	if err := s.db.Write(batch, s.wopts); err != nil {
		s.seq--
		return model.VendorAddressEntry{}, persistenceError("upsert_vendor", err)
	}
	return entry, nil
}

// RemoveVendorAddress deletes the (vendorID, address) entry.
func (s *LevelDB) RemoveVendorAddress(ctx context.Context, vendorID, address string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	unlock := s.keys.Lock(vendorLockKey(vendorID, address))
	defer unlock()

	key := vendorKey(vendorID, address)
	ok, err := s.db.Has(key, nil)
	if err != nil {
		return persistenceError("remove_vendor", err)
	}
	if !ok {
		known, err := s.ListVendors(ctx, address)
		if err != nil {
			return err
		}
		return vendorNotFound(vendorID, address, known)
	}

	if err := s.db.Delete(key, s.wopts); err != nil {
		return persistenceError("remove_vendor", err)
	}
	return nil
}

// AppendCheckRecord appends record to the audit log and the per-address
// index in one atomic batch.
func (s *LevelDB) AppendCheckRecord(ctx context.Context, record model.CheckRecord) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	value, err := json.Marshal(record)
	if err != nil {
		return persistenceError("append_record", err)
	}

	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	batch := new(leveldb.Batch)
	seq := s.nextSeq(batch)
	batch.Put(auditKey(seq), value)
	batch.Put(auditIndexKey(record.Address, seq), nil)
	if err := s.db.Write(batch, s.wopts); err != nil {
		s.seq--
		return persistenceError("append_record", err)
	}
	return nil
}

// CheckRecords returns the audit history of address in append order.
func (s *LevelDB) CheckRecords(ctx context.Context, address string) ([]model.CheckRecord, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	var seqs []uint64
	prefix := auditIndexPrefix(address)
	err := s.scan(prefix, func(key, _ []byte) error {
		rest := key[len(prefix):]
		if len(rest) != 8 {
			return fmt.Errorf("corrupt audit index key %q", key)
		}
		seqs = append(seqs, binary.BigEndian.Uint64(rest))
		return nil
	})
	if err != nil {
		return nil, persistenceError("check_records", err)
	}

	records := make([]model.CheckRecord, 0, len(seqs))
	for _, seq := range seqs {
		var r model.CheckRecord
		found, err := s.getJSON(auditKey(seq), &r)
		if err != nil {
			return nil, persistenceError("check_records", err)
		}
		if !found {
			return nil, persistenceError("check_records", fmt.Errorf("audit record %d missing", seq))
		}
		records = append(records, r)
	}
	return records, nil
}

// Close closes the database.
func (s *LevelDB) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, leveldb.ErrClosed) {
		return veterr.WithCause(veterr.ErrPersistence, err)
	}
	return nil
}

func (s *LevelDB) getJSON(key []byte, out any) (bool, error) {
	raw, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decoding %q: %w", key, err)
	}
	return true, nil
}

func (s *LevelDB) putJSON(key []byte, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Put(key, value, s.wopts)
}

func (s *LevelDB) scan(prefix []byte, fn func(key, value []byte) error) error {
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	for iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func blacklistKey(address string) []byte {
	return []byte(prefixBlacklist + address)
}

func vendorPrefix(address string) []byte {
	return []byte(prefixVendor + address + string(keySep))
}

func vendorKey(vendorID, address string) []byte {
	return append(vendorPrefix(address), vendorID...)
}

func auditKey(seq uint64) []byte {
	key := make([]byte, len(prefixAudit)+8)
	copy(key, prefixAudit)
	binary.BigEndian.PutUint64(key[len(prefixAudit):], seq)
	return key
}

func auditIndexPrefix(address string) []byte {
	return []byte(prefixAuditIndex + address + string(keySep))
}

func auditIndexKey(address string, seq uint64) []byte {
	key := auditIndexPrefix(address)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return append(key, buf[:]...)
}
