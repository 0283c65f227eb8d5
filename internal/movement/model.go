package movement

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kislikjeka/agrovest/internal/ledger"
	"github.com/kislikjeka/agrovest/internal/platform/offering"
	"github.com/kislikjeka/agrovest/internal/platform/position"
)

// Workflow names used for logging, metrics and events
const (
	WorkflowInitiateFunding   = "fund_initiate"
	WorkflowConfirmFunding    = "fund_confirm"
	WorkflowInvest            = "invest"
	WorkflowRequestWithdrawal = "withdraw_request"
	WorkflowResolveWithdrawal = "withdraw_resolve"
	WorkflowPayYield          = "pay_yield"
	WorkflowReconcile         = "reconcile"
)

// Decision is an admin's verdict on a pending withdrawal
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// IsValid checks if the decision is known
func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// target is the ledger status the withdrawal entry moves to
func (d Decision) target() ledger.Status {
	if d == DecisionApprove {
		return ledger.StatusSuccess
	}
	return ledger.StatusFailed
}

// Metadata keys written on withdrawal entries
const (
	MetaBankCode      = "bank_code"
	MetaBankName      = "bank_name"
	MetaAccountNumber = "account_number"
	MetaAccountName   = "account_name"
	MetaWithdrawalID  = "withdrawal_id"
	MetaOfferingID    = "offering_id"
	MetaPositionID    = "position_id"
	MetaUnits         = "units"
)

// BankDetails is the destination of a withdrawal
type BankDetails struct {
	BankCode      string `json:"bank_code"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// Validate requires code, number and holder name. The bank name is optional.
func (b BankDetails) Validate() error {
	if strings.TrimSpace(b.BankCode) == "" ||
		strings.TrimSpace(b.AccountNumber) == "" ||
		strings.TrimSpace(b.AccountName) == "" {
		return ErrMissingBankDetails
	}
	return nil
}

// Masked returns the account number with all but the last four digits hidden
func (b BankDetails) Masked() string {
	n := strings.TrimSpace(b.AccountNumber)
	if len(n) <= 4 {
		return n
	}
	return strings.Repeat("*", len(n)-4) + n[len(n)-4:]
}

func (b BankDetails) metadata() map[string]string {
	m := map[string]string{
		MetaBankCode:      strings.TrimSpace(b.BankCode),
		MetaAccountNumber: strings.TrimSpace(b.AccountNumber),
		MetaAccountName:   strings.TrimSpace(b.AccountName),
	}
	if name := strings.TrimSpace(b.BankName); name != "" {
		m[MetaBankName] = name
	}
	return m
}

// FundingResult is returned by a confirmed deposit
type FundingResult struct {
	Entry   *ledger.Entry   `json:"entry"`
	Balance decimal.Decimal `json:"balance"`
}

// InvestmentResult is returned by a successful investment
type InvestmentResult struct {
	Position *position.Position `json:"position"`
	Offering *offering.Offering `json:"offering"`
	Entry    *ledger.Entry      `json:"entry"`
	Balance  decimal.Decimal    `json:"balance"`
}

// WithdrawalResult is returned by an accepted withdrawal request
type WithdrawalResult struct {
	Entry   *ledger.Entry   `json:"entry"`
	Balance decimal.Decimal `json:"balance"`
}

// ResolutionResult is returned by an approved or rejected withdrawal.
// Refund is set only on reject.
type ResolutionResult struct {
	Entry   *ledger.Entry   `json:"entry"`
	Refund  *ledger.Entry   `json:"refund,omitempty"`
	Balance decimal.Decimal `json:"balance"`
}

// PayoutResult is returned by a yield payout. Entry is nil when the credit
// had already been recorded by an earlier, interrupted payout.
type PayoutResult struct {
	Position *position.Position `json:"position"`
	Entry    *ledger.Entry      `json:"entry,omitempty"`
	Balance  decimal.Decimal    `json:"balance"`
}
