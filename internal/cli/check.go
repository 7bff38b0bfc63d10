package cli

import (
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/walletvet/walletvet/internal/model"
	"github.com/walletvet/walletvet/internal/output"
	"github.com/walletvet/walletvet/internal/report"
	"github.com/walletvet/walletvet/internal/service/verify"
)

// checkCmd verifies one vendor wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var checkCmd = &cobra.Command{
	Use:   "check <vendor_id> <address>",
	Short: "Check one vendor wallet",
	Long: `Validate the address, fetch its ledger facts and cross-reference the
blacklist and the vendor whitelist. Every check that reaches the ledger is
recorded in the audit log, including upstream failures.

Example:
  walletvet check vendor123 TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7
  walletvet check vendor123 TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7 -o json`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cc, err := newCommandContext()
	if err != nil {
		return err
	}

	res, err := cc.Service.CheckSingle(commandContext(cmd), args[0], args[1])
	if err != nil {
		return err
	}
	return cc.Formatter.Print(&checkView{
		CheckRecord: res.Record,
		States:      res.States,
		zone:        displayZone(),
	})
}

// checkView renders a single check result.
type checkView struct {
	*model.CheckRecord

	States []verify.State `json:"states"`
	zone   *time.Location
}

// RenderText writes the verdict as aligned key/value lines.
func (v *checkView) RenderText(w io.Writer) error {
	row := report.RecordRow(v.CheckRecord, v.zone)

	tbl := output.NewTable()
	tbl.SetNoHeader(true)
	tbl.AddRow("Outcome:", output.Outcome(row.Outcome))
	tbl.AddRow("Vendor:", row.VendorID)
	tbl.AddRow("Address:", row.Address)
	tbl.AddRow("Blacklisted:", yesNo(v.BlacklistMatch, row.BlacklistTag))
	tbl.AddRow("Other vendors:", dash(strings.ReplaceAll(row.OtherVendorMatches, ";", ", ")))
	tbl.AddRow("Red flag:", redFlag(v.CheckRecord))
	tbl.AddRow("Created:", dash(row.WalletCreationDate))
	tbl.AddRow("USDT balance:", dash(row.WalletBalance))
	if v.Snapshot != nil {
		tbl.AddRow("TRX balance:", dash(v.Snapshot.TRXBalance))
	}
	tbl.AddRow("Transactions:", dash(row.TxTotal)+" (in "+dash(row.TxIn)+", out "+dash(row.TxOut)+")")
	tbl.AddRow("Record:", v.ID)
	if err := tbl.Render(w); err != nil {
		return err
	}

	switch v.Outcome {
	case model.OutcomeBlacklisted:
		output.Failure(w, "do not pay %s: address is blacklisted", v.VendorID)
	case model.OutcomeReview:
		output.Warn(w, "hold payment to %s for manual review", v.VendorID)
	}
	return nil
}

func yesNo(b bool, detail string) string {
	if !b {
		return "no"
	}
	if detail == "" {
		return "yes"
	}
	return "yes (" + detail + ")"
}

func redFlag(rec *model.CheckRecord) string {
	if !rec.RedFlag {
		return "no"
	}
	if rec.Snapshot != nil && len(rec.Snapshot.RiskReasons) > 0 {
		return "yes (" + strings.Join(rec.Snapshot.RiskReasons, ", ") + ")"
	}
	return "yes"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
