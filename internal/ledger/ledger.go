// Package ledger fetches wallet facts and risk flags from the public ledger
// service and merges them into snapshots. Calls are rate limited per
// upstream and retried with exponential backoff.
package ledger

import (
	"context"
	"time"

	"github.com/walletvet/walletvet/internal/address"
	"github.com/walletvet/walletvet/internal/model"
)

// WalletFacts is the on-chain activity summary of a wallet.
type WalletFacts struct {
	CreationDate time.Time // zero when the wallet has no history
	Balance      string    // USDT-TRC20 balance, decimal string
	TRXBalance   string    // native balance, decimal string
	TxTotal      int64
	TxIn         int64
	TxOut        int64
}

// RiskFlag is the ledger service's risk assessment of a wallet.
type RiskFlag struct {
	RedFlag bool
	Reasons []string
}

// FactsSource returns the activity summary of a wallet.
type FactsSource interface {
	GetWalletFacts(ctx context.Context, addr string) (*WalletFacts, error)
}

// RiskSource returns the risk assessment of a wallet.
type RiskSource interface {
	GetRiskFlag(ctx context.Context, addr string) (*RiskFlag, error)
}

// FirstActivitySource resolves the creation date of a wallet whose facts
// report history but no creation date. Facts sources that need a separate
// lookup for it implement this so the lookup is limited and retried as its
// own upstream call.
type FirstActivitySource interface {
	GetFirstActivity(ctx context.Context, addr string) (time.Time, error)
}

// Fetcher produces ledger snapshots. The Client is the production
// implementation; the orchestrator depends on this interface only.
type Fetcher interface {
	Fetch(ctx context.Context, addr address.Address) (*model.LedgerSnapshot, error)
}

// merge builds a snapshot from both upstream results.
func merge(addr string, facts *WalletFacts, risk *RiskFlag, fetchedAt time.Time) *model.LedgerSnapshot {
	snap := &model.LedgerSnapshot{
		Address:    addr,
		Balance:    "0.000000",
		TRXBalance: "0.000000",
		FetchedAt:  fetchedAt,
	}
	if facts != nil {
		snap.CreationDate = facts.CreationDate
		snap.TxTotal = facts.TxTotal
		snap.TxIn = facts.TxIn
		snap.TxOut = facts.TxOut
		if facts.Balance != "" {
			snap.Balance = facts.Balance
		}
		if facts.TRXBalance != "" {
			snap.TRXBalance = facts.TRXBalance
		}
	}
	if risk != nil {
		snap.RedFlag = risk.RedFlag
		if len(risk.Reasons) > 0 {
			snap.RiskReasons = append([]string(nil), risk.Reasons...)
		}
	}
	return snap
}
