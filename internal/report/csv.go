package report

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/walletvet/walletvet/internal/fileutil"
	"github.com/walletvet/walletvet/internal/service/batch"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

const (
	colVendorID = "vendor_id"
	colAddress  = "address"
	bom         = "\ufeff"
)

// ReadPairs parses a batch input file. The header row must name the
// vendor_id and address columns (any order, any case); other columns are
// ignored. Blank lines are skipped. Rows missing a field are kept with the
// field empty so they surface as failed report rows.
func ReadPairs(r io.Reader) ([]batch.Pair, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, veterr.WithDetails(veterr.Wrap(veterr.ErrMissingParameter, "input file is empty"),
			map[string]string{"expected_header": colVendorID + "," + colAddress})
	}
	if err != nil {
		return nil, csvError(err)
	}

	vendorIdx, addrIdx := -1, -1
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, bom)))
		switch name {
		case colVendorID:
			vendorIdx = i
		case colAddress:
			addrIdx = i
		}
	}
	if vendorIdx < 0 || addrIdx < 0 {
		return nil, &veterr.VetError{
			Code:       veterr.CodeInvalidFormat,
			Message:    "input file has no vendor_id,address header",
			Details:    map[string]string{"header": strings.Join(header, ",")},
			Suggestion: "the first row must be: vendor_id,address",
			ExitCode:   veterr.ExitInput,
		}
	}

	var pairs []batch.Pair
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		pairs = append(pairs, batch.Pair{
			VendorID: field(rec, vendorIdx),
			Address:  field(rec, addrIdx),
		})
	}
	return pairs, nil
}

// LoadPairs reads pairs from the file at path.
func LoadPairs(path string) ([]batch.Pair, error) {
	f, err := os.Open(path) //nolint:gosec // G304: operator supplied input file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, veterr.WithDetails(veterr.ErrNotFound, map[string]string{"file": path})
		}
		return nil, veterr.Wrap(err, "opening %s", path)
	}
	defer func() { _ = f.Close() }()
	return ReadPairs(f)
}

// WriteCSV writes the header and rows. Free-text cells that a spreadsheet
// would evaluate as a formula are prefixed with a single quote.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for i := range rows {
		values := rows[i].Values()
		for _, col := range textColumns {
			values[col] = escapeFormula(values[col])
		}
		if err := cw.Write(values); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes rows to path atomically.
func ExportCSV(path string, rows []Row) error {
	err := fileutil.WriteAtomicFunc(path, 0o600, func(w io.Writer) error {
		return WriteCSV(w, rows)
	})
	if err != nil {
		return veterr.Wrap(err, "exporting report to %s", path)
	}
	return nil
}

// textColumns are the Values indexes holding operator-supplied text:
// vendor_id, address, blacklist_tag and other_vendor_matches.
var textColumns = []int{0, 1, 3, 4} //nolint:gochecknoglobals // fixed column set

func escapeFormula(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

func field(rec []string, idx int) string {
	if idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &veterr.VetError{
			Code:     veterr.CodeInvalidFormat,
			Message:  "input file is not valid CSV",
			Details:  map[string]string{"line": strconv.Itoa(pe.Line)},
			Cause:    err,
			ExitCode: veterr.ExitInput,
		}
	}
	return veterr.Wrap(err, "reading input")
}
