package tronscan

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/walletvet/walletvet/internal/ledger"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

// accountResponse is the subset of /account the facts upstream reads.
type accountResponse struct {
	Balance           json.Number    `json:"balance"`
	TotalTransactions json.Number    `json:"totalTransactionCount"`
	TransactionsIn    json.Number    `json:"transactions_in"`
	TransactionsOut   json.Number    `json:"transactions_out"`
	DateCreated       json.Number    `json:"date_created"`
	TRC20Balances     []tokenBalance `json:"trc20token_balances"`
}

type tokenBalance struct {
	TokenID string `json:"tokenId"`
	Balance string `json:"balance"`
}

// transactionsResponse is the subset of /transaction used to find the
// oldest transaction of a wallet.
type transactionsResponse struct {
	Total json.Number `json:"total"`
	Data  []struct {
		Timestamp json.Number `json:"timestamp"`
	} `json:"data"`
}

// GetWalletFacts returns the activity summary of addr from a single /account
// exchange. Wallets that have never transacted yield zero counts and a zero
// creation date.
func (c *Client) GetWalletFacts(ctx context.Context, addr string) (*ledger.WalletFacts, error) {
	var acct accountResponse
	if err := c.doRequest(ctx, "/account", url.Values{"address": {addr}}, &acct); err != nil {
		return nil, err
	}

	facts := &ledger.WalletFacts{}
	var err error

	if facts.TxTotal, err = parseCount("totalTransactionCount", acct.TotalTransactions); err != nil {
		return nil, err
	}
	if facts.TxIn, err = parseCount("transactions_in", acct.TransactionsIn); err != nil {
		return nil, err
	}
	if facts.TxOut, err = parseCount("transactions_out", acct.TransactionsOut); err != nil {
		return nil, err
	}

	sun, ok := ledger.ParseUnits(acct.Balance.String())
	if !ok {
		return nil, malformed("balance", acct.Balance.String())
	}
	facts.TRXBalance = ledger.FormatUnits(sun, ledger.TRXDecimals)

	facts.Balance = ledger.FormatUnits(nil, ledger.USDTDecimals)
	for _, token := range acct.TRC20Balances {
		if !strings.EqualFold(token.TokenID, c.usdtContract) {
			continue
		}
		raw, ok := ledger.ParseUnits(token.Balance)
		if !ok {
			return nil, malformed("trc20token_balances.balance", token.Balance)
		}
		facts.Balance = ledger.FormatUnits(raw, ledger.USDTDecimals)
		break
	}

	created, err := parseCount("date_created", acct.DateCreated)
	if err != nil {
		return nil, err
	}
	if created > 0 {
		facts.CreationDate = time.UnixMilli(created).UTC()
	}

	return facts, nil
}

// GetFirstActivity returns the timestamp of the first transaction of addr,
// or the zero time when the ledger reports none. /account omits
// date_created for some wallets that do have history.
func (c *Client) GetFirstActivity(ctx context.Context, addr string) (time.Time, error) {
	params := url.Values{
		"sort":    {"timestamp"},
		"count":   {"true"},
		"limit":   {"1"},
		"start":   {"0"},
		"address": {addr},
	}

	var txs transactionsResponse
	if err := c.doRequest(ctx, "/transaction", params, &txs); err != nil {
		return time.Time{}, err
	}
	if len(txs.Data) == 0 {
		return time.Time{}, nil
	}

	ms, err := parseCount("data.timestamp", txs.Data[0].Timestamp)
	if err != nil || ms <= 0 {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func parseCount(field string, n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		// Some fields arrive as floats ("12.0")
		f, ferr := n.Float64()
		if ferr != nil {
			return 0, malformed(field, n.String())
		}
		return int64(f), nil
	}
	return v, nil
}

func malformed(field, value string) error {
	return veterr.WithDetails(veterr.ErrUpstreamMalformedResponse, map[string]string{
		"field": field,
		"value": truncateBody(value, 64),
	})
}
