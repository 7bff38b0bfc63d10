package cli

import (
	"github.com/walletvet/walletvet/internal/config"
	"github.com/walletvet/walletvet/internal/service/verify"
)

// Compile-time interface checks.
var (
	_ LogWriter     = (*config.Logger)(nil)
	_ verify.Logger = (LogWriter)(nil)
)

// LogWriter provides logging capabilities.
type LogWriter interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
	Close() error
}
