// Package report converts batch results into tabular rows and reads batch
// input files.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/walletvet/walletvet/internal/model"
	"github.com/walletvet/walletvet/internal/output"
	"github.com/walletvet/walletvet/internal/service/batch"
)

// DefaultDisplayOffsetHours is the UTC offset used for dates in reports.
const DefaultDisplayOffsetHours = 7

// Red flag column values.
const (
	RedFlagClean   = "CLEAN"
	RedFlagFlagged = "FLAGGED"
)

const dateLayout = "2006-01-02"

// Columns is the report header in column order.
//
//nolint:gochecknoglobals // fixed report layout
var Columns = []string{
	"vendor_id",
	"address",
	"blacklist_match",
	"blacklist_tag",
	"other_vendor_matches",
	"wallet_creation_date",
	"wallet_balance",
	"red_flag_status",
	"tx_total",
	"tx_in",
	"tx_out",
	"outcome",
}

// Row is one report line. Failed rows carry only the pair and the error code
// in Outcome.
type Row struct {
	VendorID           string `json:"vendor_id"`
	Address            string `json:"address"`
	BlacklistMatch     string `json:"blacklist_match"`
	BlacklistTag       string `json:"blacklist_tag"`
	OtherVendorMatches string `json:"other_vendor_matches"`
	WalletCreationDate string `json:"wallet_creation_date"`
	WalletBalance      string `json:"wallet_balance"`
	RedFlagStatus      string `json:"red_flag_status"`
	TxTotal            string `json:"tx_total"`
	TxIn               string `json:"tx_in"`
	TxOut              string `json:"tx_out"`
	Outcome            string `json:"outcome"`

	// Error is the human readable failure, not exported to CSV.
	Error string `json:"error,omitempty"`
}

// Values returns the row cells in Columns order.
func (r *Row) Values() []string {
	return []string{
		r.VendorID,
		r.Address,
		r.BlacklistMatch,
		r.BlacklistTag,
		r.OtherVendorMatches,
		r.WalletCreationDate,
		r.WalletBalance,
		r.RedFlagStatus,
		r.TxTotal,
		r.TxIn,
		r.TxOut,
		r.Outcome,
	}
}

// Zone returns the fixed display zone for an hour offset from UTC.
func Zone(offsetHours int) *time.Location {
	name := "GMT"
	if offsetHours != 0 {
		name = fmt.Sprintf("GMT%+d", offsetHours)
	}
	return time.FixedZone(name, offsetHours*int(time.Hour/time.Second))
}

// RecordRow renders a successful check record. Dates use loc.
func RecordRow(rec *model.CheckRecord, loc *time.Location) Row {
	row := Row{
		VendorID:           rec.VendorID,
		Address:            rec.Address,
		BlacklistMatch:     strconv.FormatBool(rec.BlacklistMatch),
		BlacklistTag:       rec.BlacklistTag,
		OtherVendorMatches: strings.Join(rec.OtherVendorMatches, ";"),
		RedFlagStatus:      RedFlagClean,
		Outcome:            string(rec.Outcome),
	}
	if rec.RedFlag {
		row.RedFlagStatus = RedFlagFlagged
	}
	if snap := rec.Snapshot; snap != nil {
		if !snap.CreationDate.IsZero() {
			row.WalletCreationDate = snap.CreationDate.In(loc).Format(dateLayout)
		}
		row.WalletBalance = snap.Balance
		row.TxTotal = strconv.FormatInt(snap.TxTotal, 10)
		row.TxIn = strconv.FormatInt(snap.TxIn, 10)
		row.TxOut = strconv.FormatInt(snap.TxOut, 10)
	}
	return row
}

// ItemRow renders one batch item. Failed items keep their data columns blank.
func ItemRow(item *batch.Item, loc *time.Location) Row {
	if item.Err == nil && item.Record != nil {
		return RecordRow(item.Record, loc)
	}
	row := Row{
		VendorID: item.Pair.VendorID,
		Address:  item.Pair.Address,
		Outcome:  item.Outcome(),
	}
	if item.Err != nil {
		row.Error = item.Err.Error()
	}
	return row
}

// Rows renders every item of job in input order.
func Rows(job *batch.Job, loc *time.Location) []Row {
	rows := make([]Row, len(job.Items))
	for i := range job.Items {
		rows[i] = ItemRow(&job.Items[i], loc)
	}
	return rows
}

// Report is a rendered batch job.
type Report struct {
	JobID      string        `json:"job_id"`
	Status     batch.Status  `json:"status"`
	Canceled   bool          `json:"canceled"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Summary    batch.Summary `json:"summary"`
	Rows       []Row         `json:"rows"`
}

// New builds the report of job.
func New(job *batch.Job, loc *time.Location) *Report {
	return &Report{
		JobID:      job.ID,
		Status:     job.Status,
		Canceled:   job.Canceled,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
		Summary:    job.Summary,
		Rows:       Rows(job, loc),
	}
}

// RenderText writes the rows as a table followed by the summary.
func (r *Report) RenderText(w io.Writer) error {
	if err := RenderTable(w, r.Rows); err != nil {
		return err
	}
	s := r.Summary
	_, err := fmt.Fprintf(w, "\njob %s %s: %d total, %d clear, %d review, %d blacklisted, %d failed (%d canceled)\n",
		r.JobID, r.Status, s.Total, s.Clear, s.Review, s.Blacklisted, s.Failed, s.Canceled)
	return err
}

// RenderTable writes rows as an aligned text table.
func RenderTable(w io.Writer, rows []Row) error {
	tbl := output.NewTable(Columns...)
	for i := range rows {
		tbl.AddRow(rows[i].Values()...)
	}
	return tbl.Render(w)
}
