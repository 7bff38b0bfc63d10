package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/walletvet/walletvet/internal/config"
	"github.com/walletvet/walletvet/internal/output"
	"github.com/walletvet/walletvet/internal/report"
	"github.com/walletvet/walletvet/internal/service/batch"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

// batchCmd runs a batch of checks.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Check many vendor wallets at once",
	Long: `Run checks for a list of (vendor_id, address) pairs with bounded
concurrency. Pairs come from a CSV file with vendor_id and address columns,
from --pair flags, or both. Rows keep the input order regardless of which
check finishes first, and one failing row never aborts the others.

Press Ctrl-C to stop dispatching; finished rows are still reported and
the remaining rows are marked CANCELED.

Example:
  walletvet batch --file payouts.csv --out report.csv
  walletvet batch --pair vendor1:TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7 --pair vendor2:TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	batchFile        string
	batchPairs       []string
	batchOut         string
	batchConcurrency int
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "CSV file with vendor_id,address columns")
	batchCmd.Flags().StringArrayVarP(&batchPairs, "pair", "p", nil, "vendor_id:address pair (repeatable)")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "write the report as CSV to this file")
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 0, "concurrent checks (default: batch.concurrency from config)")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	pairs, err := collectPairs(batchFile, batchPairs)
	if err != nil {
		return err
	}

	if batchConcurrency > config.MaxConcurrency {
		return veterr.WithDetails(veterr.ErrConfigInvalid, map[string]string{
			"concurrency": fmt.Sprintf("%d exceeds %d", batchConcurrency, config.MaxConcurrency),
		})
	}
	if batchConcurrency > 0 {
		cfg.Batch.Concurrency = batchConcurrency
	}
	cc, err := newCommandContext()
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, cfg.Batch.Timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress, done := batchProgress(cmd.ErrOrStderr(), cc.Formatter.IsJSON())
	job := cc.Service.RunBatch(ctx, pairs, progress)
	done()

	cc.Logger.Info("batch %s finished: %s in %s", job.ID, job.Status, job.Duration().Round(time.Millisecond))

	rep := report.New(job, displayZone())
	if batchOut != "" {
		if err := report.ExportCSV(batchOut, rep.Rows); err != nil {
			return err
		}
	}
	if err := cc.Formatter.Print(rep); err != nil {
		return err
	}
	if batchOut != "" {
		_ = cc.Formatter.Printf("report written to %s\n", batchOut)
	}
	if failed := job.Summary.Failed; failed > 0 && !cc.Formatter.IsJSON() {
		output.Warn(cmd.ErrOrStderr(), "%d of %d rows failed; see the outcome column", failed, job.Summary.Total)
	}

	if job.Canceled {
		return veterr.WithDetails(veterr.ErrCanceled, map[string]string{
			"job_id":    job.ID,
			"completed": fmt.Sprintf("%d/%d", job.Summary.Total-job.Summary.Canceled, job.Summary.Total),
		})
	}
	return nil
}

// collectPairs merges the CSV file rows with the --pair flags, file first.
func collectPairs(file string, flags []string) ([]batch.Pair, error) {
	var pairs []batch.Pair
	if file != "" {
		fromFile, err := report.LoadPairs(file)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, fromFile...)
	}
	for _, p := range flags {
		pair, err := parsePair(p)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	if len(pairs) == 0 {
		return nil, veterr.WithSuggestion(veterr.ErrMissingParameter, "provide --file or at least one --pair vendor_id:address")
	}
	return pairs, nil
}

// parsePair splits "vendor_id:address". The address never contains a colon,
// so the last one separates the two.
func parsePair(s string) (batch.Pair, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return batch.Pair{}, veterr.WithDetails(
			veterr.WithSuggestion(veterr.ErrMissingParameter, "use --pair vendor_id:address"),
			map[string]string{"pair": s},
		)
	}
	return batch.Pair{VendorID: s[:i], Address: s[i+1:]}, nil
}

// batchProgress returns a progress callback and a stop function. A spinner
// is shown only for text output on a terminal.
func batchProgress(w io.Writer, jsonOut bool) (batch.ProgressCallback, func()) {
	if jsonOut || !output.IsTerminal(w) {
		return func(u batch.ProgressUpdate) {
			logger.Debug("batch %s: %d/%d done, %d failed", u.JobID, u.Completed, u.Total, u.Failed)
		}, func() {}
	}

	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " starting checks"
	s.Start()

	progress := func(u batch.ProgressUpdate) {
		s.Lock()
		s.Suffix = fmt.Sprintf(" %d/%d checked, %d failed", u.Completed, u.Total, u.Failed)
		s.Unlock()
	}
	return progress, func() {
		s.Stop()
		// spinner clears the line without a newline
		_, _ = fmt.Fprintln(w)
	}
}
