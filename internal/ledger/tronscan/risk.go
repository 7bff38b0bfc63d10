package tronscan

import (
	"context"
	"net/url"

	"github.com/walletvet/walletvet/internal/ledger"
)

// securityResponse is the subset of /security/account/data used for risk.
type securityResponse struct {
	IsBlackList         bool `json:"is_black_list"`
	HasFraudTransaction bool `json:"has_fraud_transaction"`
	FraudTokenCreator   bool `json:"fraud_token_creator"`
	SendAdByMemo        bool `json:"send_ad_by_memo"`
}

// Risk reasons, named after the ledger's security flags.
const (
	ReasonBlackList         = "is_black_list"
	ReasonFraudTransaction  = "has_fraud_transaction"
	ReasonFraudTokenCreator = "fraud_token_creator"
	ReasonAdByMemo          = "send_ad_by_memo"
)

// GetRiskFlag returns the ledger's risk assessment of addr. Any raised
// security flag marks the wallet red; the raised flags are the reasons.
func (c *Client) GetRiskFlag(ctx context.Context, addr string) (*ledger.RiskFlag, error) {
	var sec securityResponse
	if err := c.doRequest(ctx, "/security/account/data", url.Values{"address": {addr}}, &sec); err != nil {
		return nil, err
	}

	flags := []struct {
		set    bool
		reason string
	}{
		{sec.IsBlackList, ReasonBlackList},
		{sec.HasFraudTransaction, ReasonFraudTransaction},
		{sec.FraudTokenCreator, ReasonFraudTokenCreator},
		{sec.SendAdByMemo, ReasonAdByMemo},
	}

	risk := &ledger.RiskFlag{}
	for _, f := range flags {
		if f.set {
			risk.Reasons = append(risk.Reasons, f.reason)
		}
	}
	risk.RedFlag = len(risk.Reasons) > 0
	return risk, nil
}
