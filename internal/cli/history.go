package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/walletvet/walletvet/internal/output"
)

// historyCmd prints the audit log of one address.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var historyCmd = &cobra.Command{
	Use:   "history <address>",
	Short: "Show the audit history of an address",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cc, err := newCommandContext()
	if err != nil {
		return err
	}
	records, err := cc.Service.History(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(records)
	}
	if len(records) == 0 {
		output.Info(cmd.OutOrStdout(), "no checks recorded for %s", args[0])
		return nil
	}

	zone := displayZone()
	tbl := output.NewTable("TIME", "VENDOR", "OUTCOME", "BLACKLIST", "OTHER VENDORS", "JOB")
	for _, r := range records {
		tbl.AddRow(
			r.Timestamp.In(zone).Format(time.DateTime),
			r.VendorID,
			output.Outcome(string(r.Outcome)),
			r.BlacklistTag,
			strings.Join(r.OtherVendorMatches, ", "),
			r.JobID,
		)
	}
	return cc.Formatter.Print(tbl)
}
