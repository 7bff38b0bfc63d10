package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/walletvet/walletvet/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var (
	vendorCmd = &cobra.Command{
		Use:   "vendor",
		Short: "Inspect the vendor whitelist",
		Long: `Vendors are recorded against an address the first time a check for that
pair succeeds. An address shared by several vendors is flagged for review.`,
	}

	vendorListCmd = &cobra.Command{
		Use:     "list <address>",
		Aliases: []string{"ls"},
		Short:   "List vendors seen with an address",
		Args:    cobra.ExactArgs(1),
		RunE:    runVendorList,
	}

	vendorRemoveCmd = &cobra.Command{
		Use:     "remove <vendor_id> <address>",
		Aliases: []string{"rm"},
		Short:   "Forget a vendor-address pair",
		Args:    cobra.ExactArgs(2),
		RunE:    runVendorRemove,
	}
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(vendorCmd)
	vendorCmd.AddCommand(vendorListCmd, vendorRemoveCmd)
}

func runVendorList(cmd *cobra.Command, args []string) error {
	cc, err := newCommandContext()
	if err != nil {
		return err
	}
	entries, err := cc.Service.VendorsFor(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(entries)
	}
	if len(entries) == 0 {
		output.Info(cmd.OutOrStdout(), "no vendors recorded for %s", args[0])
		return nil
	}

	zone := displayZone()
	tbl := output.NewTable("#", "VENDOR", "FIRST SEEN", "LAST CHECKED")
	for i, e := range entries {
		tbl.AddRow(strconv.Itoa(i+1), e.VendorID, e.FirstSeen.In(zone).Format(time.DateTime), e.LastChecked.In(zone).Format(time.DateTime))
	}
	return cc.Formatter.Print(tbl)
}

func runVendorRemove(cmd *cobra.Command, args []string) error {
	cc, err := newCommandContext()
	if err != nil {
		return err
	}
	if err := cc.Service.RemoveVendorAddress(commandContext(cmd), args[0], args[1]); err != nil {
		return err
	}
	return output.FormatSuccess(cmd.OutOrStdout(), "removed vendor "+args[0]+" for "+args[1], cc.Formatter.Format())
}
