package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	veterr "github.com/walletvet/walletvet/pkg/errors"
)

// ErrorOutput represents a structured error for JSON output.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// NewErrorDetail flattens err into its reportable fields.
func NewErrorDetail(err error) ErrorDetail {
	var ve *veterr.VetError
	if veterr.As(err, &ve) {
		d := ErrorDetail{
			Code:       ve.Code,
			Message:    ve.Message,
			Details:    ve.Details,
			Suggestion: ve.Suggestion,
			ExitCode:   ve.ExitCode,
		}
		if ve.Cause != nil {
			d.Cause = ve.Cause.Error()
		}
		return d
	}
	return ErrorDetail{
		Code:     veterr.CodeGeneral,
		Message:  err.Error(),
		ExitCode: veterr.ExitGeneral,
	}
}

// FormatError writes err for display.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}

	detail := NewErrorDetail(err)
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ErrorOutput{Error: detail})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error [%s]: %s\n", detail.Code, detail.Message)

	if len(detail.Details) > 0 {
		sb.WriteString("\nDetails:\n")
		keys := make([]string, 0, len(detail.Details))
		for k := range detail.Details {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %s\n", k, detail.Details[k])
		}
	}
	if detail.Cause != "" {
		fmt.Fprintf(&sb, "\nCause: %s\n", detail.Cause)
	}
	if detail.Suggestion != "" {
		fmt.Fprintf(&sb, "\nSuggestion: %s\n", detail.Suggestion)
	}

	_, writeErr := io.WriteString(w, sb.String())
	return writeErr
}

// FormatSuccess writes a one-line success message.
func FormatSuccess(w io.Writer, message string, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{"status": "success", "message": message})
	}
	_, err := fmt.Fprintln(w, message)
	return err
}
