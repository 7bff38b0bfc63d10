// Package model defines the domain records shared by the registry, the
// verification orchestrator and the batch pipeline.
package model

import (
	"time"
)

// Outcome is the verdict stored on a CheckRecord. Failed attempts store the
// error code instead of one of the constants below.
type Outcome string

// Verdict outcomes, in ascending severity.
const (
	OutcomeClear       Outcome = "CLEAR"
	OutcomeReview      Outcome = "REVIEW"
	OutcomeBlacklisted Outcome = "BLACKLISTED"
)

// LedgerSnapshot is the point-in-time view of a wallet returned by the
// ledger client. It is logged on audit records and never treated as
// authoritative state.
type LedgerSnapshot struct {
	Address      string    `json:"address"`
	CreationDate time.Time `json:"creation_date,omitzero"`
	Balance      string    `json:"balance"`
	TRXBalance   string    `json:"trx_balance"`
	TxTotal      int64     `json:"tx_total"`
	TxIn         int64     `json:"tx_in"`
	TxOut        int64     `json:"tx_out"`
	RedFlag      bool      `json:"red_flag"`
	RiskReasons  []string  `json:"risk_reasons,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// HasHistory reports whether the wallet has ever transacted.
func (s *LedgerSnapshot) HasHistory() bool {
	return s != nil && s.TxTotal > 0
}

// BlacklistEntry is a known-bad address. The address is the key.
type BlacklistEntry struct {
	Address string    `json:"address"`
	Tag     string    `json:"tag"`
	AddedAt time.Time `json:"added_at"`
	AddedBy string    `json:"added_by"`
}

// VendorAddressEntry records that a vendor has used an address. The pair
// (VendorID, Address) is the key; Seq orders vendors by first sighting.
type VendorAddressEntry struct {
	VendorID    string    `json:"vendor_id"`
	Address     string    `json:"address"`
	FirstSeen   time.Time `json:"first_seen"`
	LastChecked time.Time `json:"last_checked"`
	Seq         uint64    `json:"seq"`
}

// CheckRecord is an immutable audit row written once per completed or
// upstream-failed verification attempt.
type CheckRecord struct {
	ID                 string          `json:"id"`
	Timestamp          time.Time       `json:"timestamp"`
	JobID              string          `json:"job_id,omitempty"`
	VendorID           string          `json:"vendor_id"`
	Address            string          `json:"address"`
	BlacklistMatch     bool            `json:"blacklist_match"`
	BlacklistTag       string          `json:"blacklist_tag,omitempty"`
	OtherVendorMatches []string        `json:"other_vendor_matches"`
	RedFlag            bool            `json:"red_flag"`
	Snapshot           *LedgerSnapshot `json:"ledger_snapshot,omitempty"`
	Outcome            Outcome         `json:"outcome"`
	ErrorCode          string          `json:"error_code,omitempty"`
	ErrorMessage       string          `json:"error_message,omitempty"`
}

// Failed reports whether the record documents a failed attempt.
func (r *CheckRecord) Failed() bool {
	return r.ErrorCode != ""
}
