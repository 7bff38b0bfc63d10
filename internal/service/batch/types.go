package batch

import (
	"time"

	"github.com/walletvet/walletvet/internal/model"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

// Pair is one (vendor, address) input row.
type Pair struct {
	VendorID string
	Address  string
}

// Item is the result slot for the pair at the same index.
type Item struct {
	Index int
	Pair  Pair

	// Record is the audit record of the check. It is also set for upstream
	// failures, which are audited without a snapshot.
	Record *model.CheckRecord

	// Err is set when the check failed or was never dispatched.
	Err error
}

// Failed reports whether the item carries an error.
func (i *Item) Failed() bool {
	return i.Err != nil
}

// Outcome returns the verdict, or the error code for failed items.
func (i *Item) Outcome() string {
	if i.Err != nil {
		return veterr.Code(i.Err)
	}
	if i.Record != nil {
		return string(i.Record.Outcome)
	}
	return ""
}

// Status is the lifecycle state of a job.
type Status string

// Job statuses.
const (
	StatusRunning             Status = "running"
	StatusCompleted           Status = "completed"
	StatusCompletedWithErrors Status = "completed_with_errors"
)

// Summary counts items by result.
type Summary struct {
	Total       int `json:"total"`
	Clear       int `json:"clear"`
	Review      int `json:"review"`
	Blacklisted int `json:"blacklisted"`
	Failed      int `json:"failed"`
	Canceled    int `json:"canceled"`
}

// Job is one batch run. Items has the same length and order as Pairs.
type Job struct {
	ID         string
	Pairs      []Pair
	Items      []Item
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time

	// Canceled is set when the caller canceled the run before it finished.
	Canceled bool

	Summary Summary
}

// Duration returns how long the job ran.
func (j *Job) Duration() time.Duration {
	if j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

// ProgressUpdate reports batch progress after each finished item.
type ProgressUpdate struct {
	JobID     string
	Total     int
	Completed int
	Failed    int

	// Last is the item that just finished.
	Last Item
}

// ProgressCallback is called after each item. Calls are serialized.
type ProgressCallback func(ProgressUpdate)
