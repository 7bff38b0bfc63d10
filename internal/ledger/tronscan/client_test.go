package tronscan_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletvet/walletvet/internal/address"
	"github.com/walletvet/walletvet/internal/ledger"
	"github.com/walletvet/walletvet/internal/ledger/tronscan"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

const (
	walletAddr = "TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7"
	usdt       = tronscan.DefaultUSDTContract
)

func newServer(t *testing.T, handler http.HandlerFunc) *tronscan.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return tronscan.NewClient(&tronscan.ClientOptions{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})
}

func TestGetWalletFacts(t *testing.T) {
	t.Parallel()
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account", r.URL.Path)
		assert.Equal(t, walletAddr, r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.Header.Get(tronscan.APIKeyHeader))
		_, _ = w.Write([]byte(`{
			"balance": 12500000,
			"totalTransactionCount": 57,
			"transactions_in": 40,
			"transactions_out": 17,
			"date_created": 1620000000000,
			"trc20token_balances": [
				{"tokenId": "TXLAQ63Xg1NAzckPwKHvzw7CSEmLMEqcdj", "balance": "99"},
				{"tokenId": "` + usdt + `", "balance": "1234567890"}
			]
		}`))
	})

	facts, err := c.GetWalletFacts(context.Background(), walletAddr)
	require.NoError(t, err)
	assert.Equal(t, "1234.567890", facts.Balance)
	assert.Equal(t, "12.500000", facts.TRXBalance)
	assert.Equal(t, int64(57), facts.TxTotal)
	assert.Equal(t, int64(40), facts.TxIn)
	assert.Equal(t, int64(17), facts.TxOut)
	assert.Equal(t, time.UnixMilli(1620000000000).UTC(), facts.CreationDate)
}

func TestGetWalletFacts_ZeroHistory(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{}`))
	})

	facts, err := c.GetWalletFacts(context.Background(), walletAddr)
	require.NoError(t, err)
	assert.Equal(t, "0.000000", facts.Balance)
	assert.Equal(t, "0.000000", facts.TRXBalance)
	assert.Equal(t, int64(0), facts.TxTotal)
	assert.True(t, facts.CreationDate.IsZero())
	assert.Equal(t, int32(1), calls.Load(), "no fallback lookup without history")
}

func TestGetWalletFacts_MissingCreationDate(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/account", r.URL.Path)
		_, _ = w.Write([]byte(`{"balance": 0, "totalTransactionCount": 3, "transactions_in": 3, "transactions_out": 0}`))
	})

	facts, err := c.GetWalletFacts(context.Background(), walletAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(3), facts.TxTotal)
	assert.True(t, facts.CreationDate.IsZero())
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetFirstActivity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want time.Time
	}{
		{"oldest", `{"total": 3, "data": [{"timestamp": 1577836800000}]}`, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"none", `{"total": 0, "data": []}`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/transaction", r.URL.Path)
				q := r.URL.Query()
				assert.Equal(t, "timestamp", q.Get("sort"))
				assert.Equal(t, "1", q.Get("limit"))
				assert.Equal(t, "0", q.Get("start"))
				assert.Equal(t, walletAddr, q.Get("address"))
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := c.GetFirstActivity(context.Background(), walletAddr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetWalletFacts_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, veterr.ErrUpstreamRateLimited, true},
		{"server error", http.StatusBadGateway, `bad gateway`, veterr.ErrUpstreamUnavailable, true},
		{"client error", http.StatusForbidden, `forbidden`, veterr.ErrUpstreamUnavailable, false},
		{"malformed json", http.StatusOK, `{"balance":`, veterr.ErrUpstreamMalformedResponse, false},
		{"malformed count", http.StatusOK, `{"totalTransactionCount": "lots"}`, veterr.ErrUpstreamMalformedResponse, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.GetWalletFacts(context.Background(), walletAddr)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.retryable, ledger.IsRetryable(err))
		})
	}
}

func TestGetWalletFacts_RetryAfterDetail(t *testing.T) {
	t.Parallel()
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.GetWalletFacts(context.Background(), walletAddr)
	var ve *veterr.VetError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "1", ve.Details["retry_after"])
}

func TestGetRiskFlag(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		body    string
		red     bool
		reasons []string
	}{
		{"clean", `{"is_black_list": false, "has_fraud_transaction": false}`, false, nil},
		{"empty", `{}`, false, nil},
		{"blacklisted", `{"is_black_list": true}`, true, []string{tronscan.ReasonBlackList}},
		{
			"several flags",
			`{"has_fraud_transaction": true, "fraud_token_creator": true, "send_ad_by_memo": true}`,
			true,
			[]string{tronscan.ReasonFraudTransaction, tronscan.ReasonFraudTokenCreator, tronscan.ReasonAdByMemo},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/security/account/data", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})

			risk, err := c.GetRiskFlag(context.Background(), walletAddr)
			require.NoError(t, err)
			assert.Equal(t, tt.red, risk.RedFlag)
			assert.Equal(t, tt.reasons, risk.Reasons)
		})
	}
}

func TestLedgerClient_OverTronscan(t *testing.T) {
	t.Parallel()
	var accountCalls atomic.Int32
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/account":
			if accountCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"balance": 1000000, "totalTransactionCount": 1, "transactions_in": 1, "date_created": 1700000000000}`))
		case "/security/account/data":
			_, _ = w.Write([]byte(`{"is_black_list": true}`))
		default:
			http.NotFound(w, r)
		}
	})

	retry := ledger.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	lc := ledger.NewClient(c, c, &ledger.ClientOptions{Limiter: ledger.NoLimit{}, Retry: &retry})

	snap, err := lc.Fetch(context.Background(), address.MustParse(walletAddr))
	require.NoError(t, err)
	assert.Equal(t, int32(2), accountCalls.Load())
	assert.True(t, snap.RedFlag)
	assert.Equal(t, "1.000000", snap.TRXBalance)
	assert.Equal(t, []string{tronscan.ReasonBlackList}, snap.RiskReasons)
}

// countingLimiter counts tokens taken per upstream.
type countingLimiter struct {
	mu     sync.Mutex
	tokens map[string]int
}

func (l *countingLimiter) Wait(ctx context.Context, upstream string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tokens == nil {
		l.tokens = make(map[string]int)
	}
	l.tokens[upstream]++
	return ctx.Err()
}

func TestLedgerClient_EveryRequestTakesAToken(t *testing.T) {
	t.Parallel()
	var factsRequests, riskRequests, txAttempts atomic.Int32
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/account":
			factsRequests.Add(1)
			_, _ = w.Write([]byte(`{"balance": 0, "totalTransactionCount": 3, "transactions_in": 3}`))
		case "/transaction":
			factsRequests.Add(1)
			if txAttempts.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte(`{"total": 3, "data": [{"timestamp": 1577836800000}]}`))
		case "/security/account/data":
			riskRequests.Add(1)
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	})

	limiter := &countingLimiter{}
	retry := ledger.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	lc := ledger.NewClient(c, c, &ledger.ClientOptions{Limiter: limiter, Retry: &retry})

	snap, err := lc.Fetch(context.Background(), address.MustParse(walletAddr))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), snap.CreationDate)

	// /account once, /transaction twice (one 429), never re-sending /account
	assert.Equal(t, int32(3), factsRequests.Load())
	assert.Equal(t, int(factsRequests.Load()), limiter.tokens[ledger.UpstreamFacts])
	assert.Equal(t, int(riskRequests.Load()), limiter.tokens[ledger.UpstreamRisk])
}
