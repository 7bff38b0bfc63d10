package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// commandContext returns the command context or Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// contextWithTimeout returns a context rooted in the command context that
// expires after d. A zero d means no deadline.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(commandContext(cmd))
	}
	return context.WithTimeout(commandContext(cmd), d)
}
