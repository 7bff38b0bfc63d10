package verify

import (
	"github.com/walletvet/walletvet/internal/model"
	"github.com/walletvet/walletvet/internal/xref"
)

// State is a stage of a single check.
type State string

// Check states in visiting order. Failed is terminal and may follow any
// other state.
const (
	StateValidating       State = "validating"
	StateFetching         State = "fetching"
	StateCrossReferencing State = "cross_referencing"
	StateAuditing         State = "auditing"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Request is one (vendor, address) pair to verify.
type Request struct {
	VendorID string
	Address  string

	// JobID links the resulting record to a batch job.
	JobID string
}

// Result is the outcome of one check.
type Result struct {
	// Record is the audit record that was appended. Nil when the check
	// failed before any I/O or before the record was written.
	Record *model.CheckRecord

	// Verdict is set once cross-referencing completed.
	Verdict *xref.Verdict

	// States lists the visited states in order.
	States []State

	// FailReason is the error code when the check ended in StateFailed.
	FailReason string
}

// Final returns the last visited state.
func (r *Result) Final() State {
	if len(r.States) == 0 {
		return ""
	}
	return r.States[len(r.States)-1]
}
