package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/walletvet/walletvet/internal/model"
	"github.com/walletvet/walletvet/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var (
	blacklistCmd = &cobra.Command{
		Use:   "blacklist",
		Short: "Manage the address blacklist",
	}

	blacklistAddCmd = &cobra.Command{
		Use:   "add <address>",
		Short: "Blacklist an address",
		Long: `Add an address to the blacklist under a tag. An address that is already
blacklisted is rejected; remove it first to change its tag.

Example:
  walletvet blacklist add TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7 --tag Phishing`,
		Args: cobra.ExactArgs(1),
		RunE: runBlacklistAdd,
	}

	blacklistRemoveCmd = &cobra.Command{
		Use:     "remove <address>",
		Aliases: []string{"rm"},
		Short:   "Remove an address from the blacklist",
		Args:    cobra.ExactArgs(1),
		RunE:    runBlacklistRemove,
	}

	blacklistShowCmd = &cobra.Command{
		Use:   "show <address>",
		Short: "Show the blacklist entry of an address",
		Args:  cobra.ExactArgs(1),
		RunE:  runBlacklistShow,
	}

	blacklistListCmd = &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List blacklisted addresses",
		Args:    cobra.NoArgs,
		RunE:    runBlacklistList,
	}

	blacklistTag     string
	blacklistAddedBy string
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(blacklistCmd)
	blacklistCmd.AddCommand(blacklistAddCmd, blacklistRemoveCmd, blacklistShowCmd, blacklistListCmd)

	blacklistAddCmd.Flags().StringVarP(&blacklistTag, "tag", "t", "", "reason for blacklisting (e.g. Phishing)")
	blacklistAddCmd.Flags().StringVar(&blacklistAddedBy, "by", "", "operator name (default: operator.name from config)")
	_ = blacklistAddCmd.MarkFlagRequired("tag")
}

func runBlacklistAdd(cmd *cobra.Command, args []string) error {
	cc, err := newCommandContext()
	if err != nil {
		return err
	}
	entry, err := cc.Service.AddBlacklist(commandContext(cmd), args[0], blacklistTag, blacklistAddedBy)
	if err != nil {
		return err
	}
	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(entry)
	}
	output.Success(cmd.OutOrStdout(), "%s blacklisted as %q", entry.Address, entry.Tag)
	return nil
}

func runBlacklistRemove(cmd *cobra.Command, args []string) error {
	cc, err := newCommandContext()
	if err != nil {
		return err
	}
	if err := cc.Service.RemoveBlacklist(commandContext(cmd), args[0]); err != nil {
		return err
	}
	return output.FormatSuccess(cmd.OutOrStdout(), "removed "+args[0]+" from the blacklist", cc.Formatter.Format())
}

func runBlacklistShow(cmd *cobra.Command, args []string) error {
	cc, err := newCommandContext()
	if err != nil {
		return err
	}
	entry, err := cc.Service.ShowBlacklist(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(entry)
	}
	return cc.Formatter.Print(blacklistTable([]model.BlacklistEntry{*entry}))
}

func runBlacklistList(cmd *cobra.Command, _ []string) error {
	cc, err := newCommandContext()
	if err != nil {
		return err
	}
	entries, err := cc.Service.ListBlacklist(commandContext(cmd))
	if err != nil {
		return err
	}
	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(entries)
	}
	if len(entries) == 0 {
		output.Info(cmd.OutOrStdout(), "blacklist is empty")
		return nil
	}
	return cc.Formatter.Print(blacklistTable(entries))
}

func blacklistTable(entries []model.BlacklistEntry) *output.Table {
	zone := displayZone()
	tbl := output.NewTable("ADDRESS", "TAG", "ADDED", "BY")
	for _, e := range entries {
		tbl.AddRow(e.Address, e.Tag, e.AddedAt.In(zone).Format(time.DateTime), e.AddedBy)
	}
	return tbl
}
