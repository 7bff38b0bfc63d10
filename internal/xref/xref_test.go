package xref_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walletvet/walletvet/internal/model"
	"github.com/walletvet/walletvet/internal/xref"
)

const addr = "TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7"

func TestEvaluate(t *testing.T) {
	t.Parallel()

	phishing := &model.BlacklistEntry{Address: addr, Tag: "Phishing"}
	red := &model.LedgerSnapshot{Address: addr, RedFlag: true}
	clean := &model.LedgerSnapshot{Address: addr}

	tests := []struct {
		name        string
		snapshot    *model.LedgerSnapshot
		blacklist   *model.BlacklistEntry
		others      []string
		wantOutcome model.Outcome
		wantTag     string
		wantOthers  []string
		wantRed     bool
	}{
		{name: "clear", snapshot: clean, wantOutcome: model.OutcomeClear, wantOthers: []string{}},
		{name: "nil snapshot is not red", wantOutcome: model.OutcomeClear, wantOthers: []string{}},
		{name: "red flag", snapshot: red, wantOutcome: model.OutcomeReview, wantOthers: []string{}, wantRed: true},
		{name: "cross vendor", snapshot: clean, others: []string{"beta"}, wantOutcome: model.OutcomeReview, wantOthers: []string{"beta"}},
		{
			name: "blacklist beats everything", snapshot: red, blacklist: phishing, others: []string{"beta"},
			wantOutcome: model.OutcomeBlacklisted, wantTag: "Phishing", wantOthers: []string{"beta"}, wantRed: true,
		},
		{name: "blacklist with clean ledger", snapshot: clean, blacklist: phishing, wantOutcome: model.OutcomeBlacklisted, wantTag: "Phishing", wantOthers: []string{}},
		{
			name: "self and duplicates removed", snapshot: clean, others: []string{"acme", "beta", "gamma", "beta", ""},
			wantOutcome: model.OutcomeReview, wantOthers: []string{"beta", "gamma"},
		},
		{name: "only self is clear", snapshot: clean, others: []string{"acme"}, wantOutcome: model.OutcomeClear, wantOthers: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := xref.Evaluate("acme", addr, tt.snapshot, tt.blacklist, tt.others)
			assert.Equal(t, tt.wantOutcome, v.Outcome)
			assert.Equal(t, tt.blacklist != nil, v.BlacklistMatch)
			assert.Equal(t, tt.wantTag, v.BlacklistTag)
			assert.Equal(t, tt.wantOthers, v.CrossVendorMatches)
			assert.Equal(t, tt.wantRed, v.RedFlag)
		})
	}
}

func TestEvaluate_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	others := []string{"beta", "acme", "beta"}
	_ = xref.Evaluate("acme", addr, nil, nil, others)
	assert.Equal(t, []string{"beta", "acme", "beta"}, others)
}
