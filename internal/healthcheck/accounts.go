package healthcheck

import (
	"context"
	"sort"
	"strings"

	"github.com/memohai/feishubridge/internal/config"
)

const accountCheckType = "feishu.account"

// AccountChecker reports whether each configured Feishu account can be used.
type AccountChecker struct {
	accounts map[string]config.AccountConfig
}

func NewAccountChecker(accounts map[string]config.AccountConfig) *AccountChecker {
	return &AccountChecker{accounts: accounts}
}

func (c *AccountChecker) ListChecks(_ context.Context) []CheckResult {
	if c == nil || len(c.accounts) == 0 {
		return []CheckResult{{
			ID:      accountCheckType,
			Type:    accountCheckType,
			Status:  StatusWarn,
			Summary: "no accounts configured",
		}}
	}
	ids := make([]string, 0, len(c.accounts))
	for id := range c.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make([]CheckResult, 0, len(ids))
	for _, id := range ids {
		acct := c.accounts[id]
		item := CheckResult{
			ID:       accountCheckType + "." + id,
			Type:     accountCheckType,
			Subtitle: id,
			Metadata: map[string]any{"region": strings.TrimSpace(acct.Region)},
		}
		switch {
		case acct.Configured():
			item.Status = StatusOK
			item.Summary = "ready"
		case !acct.Enabled:
			item.Status = StatusWarn
			item.Summary = "disabled"
		default:
			item.Status = StatusError
			item.Summary = "app_id and app_secret are required"
		}
		results = append(results, item)
	}
	return results
}
