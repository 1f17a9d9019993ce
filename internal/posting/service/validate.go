package service

import (
	"fmt"

	"github.com/bwmarrin/snowflake"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	"github.com/GymAurCode/rems-ledger/internal/config"
	"github.com/GymAurCode/rems-ledger/internal/posting/domain"
	voucherdomain "github.com/GymAurCode/rems-ledger/internal/voucher/domain"
)

const (
	codeAccountNotFound      = "account_not_found"
	codeAccountNotPostable   = "account_not_postable"
	codeInvalidLine          = "invalid_line"
	codeTooFewLines          = "too_few_lines"
	codeUnbalanced           = "unbalanced_entry"
	codeEscrowCommingling    = "escrow_commingling"
	codeRevenueWithoutDebtor = "revenue_without_receivable"
)

// CheckVoucher runs every posting rule against the voucher and returns all
// findings at once. Pure function over the loaded accounts; callers load the
// account set and decide whether blocking findings abort the post.
func CheckVoucher(policy config.AccountingPolicy, voucher *voucherdomain.Voucher, accounts map[snowflake.ID]accountdomain.Account) domain.Violations {
	var out domain.Violations

	if len(voucher.Lines) < 2 {
		out = append(out, domain.Violation{
			Code:     codeTooFewLines,
			Severity: domain.SeverityError,
			Line:     -1,
			Message:  "a journal entry requires at least two lines",
		})
		return out
	}

	var debits, credits int64
	escrowLines, plainLines := 0, 0
	for i, line := range voucher.Lines {
		account, ok := accounts[line.AccountID]
		if !ok {
			out = append(out, domain.Violation{
				Code:     codeAccountNotFound,
				Severity: domain.SeverityError,
				Line:     i,
				Message:  fmt.Sprintf("line %d references an unknown account", i),
			})
			continue
		}
		if !account.IsPostable || account.Disabled {
			out = append(out, domain.Violation{
				Code:        codeAccountNotPostable,
				Severity:    domain.SeverityError,
				AccountCode: account.Code,
				Line:        i,
				Message:     fmt.Sprintf("account %s does not accept direct postings", account.Code),
			})
		}
		if line.Debit < 0 || line.Credit < 0 || (line.Debit == 0) == (line.Credit == 0) {
			out = append(out, domain.Violation{
				Code:        codeInvalidLine,
				Severity:    domain.SeverityError,
				AccountCode: account.Code,
				Line:        i,
				Message:     fmt.Sprintf("line %d must set exactly one positive side", i),
			})
		}
		debits += line.Debit
		credits += line.Credit
		if account.IsEscrow() {
			escrowLines++
		} else {
			plainLines++
		}
	}

	if debits != credits {
		out = append(out, domain.Violation{
			Code:     codeUnbalanced,
			Severity: domain.SeverityError,
			Line:     -1,
			Message:  fmt.Sprintf("debits %d do not equal credits %d", debits, credits),
		})
	}

	// Escrow funds never mix with operating funds in one entry unless the
	// voucher purpose names an allowed escrow operation.
	if escrowLines > 0 && plainLines > 0 && !purposeAllowed(policy, voucher.Purpose) {
		out = append(out, domain.Violation{
			Code:     codeEscrowCommingling,
			Severity: domain.SeverityError,
			Line:     -1,
			Message:  "entry mixes escrow and non-escrow accounts without an allowed purpose",
		})
	}

	out = append(out, checkRevenueRecognition(voucher, accounts)...)
	return out
}

func purposeAllowed(policy config.AccountingPolicy, purpose string) bool {
	for _, allowed := range policy.EscrowAllowedPurposes {
		if purpose == allowed {
			return true
		}
	}
	return false
}

// checkRevenueRecognition warns when a manual journal credits revenue with no
// matching debit against an asset. Bookkeepers sometimes park revenue against
// liabilities to dress up a period; flag it, but let it post.
func checkRevenueRecognition(voucher *voucherdomain.Voucher, accounts map[snowflake.ID]accountdomain.Account) domain.Violations {
	if voucher.Type != voucherdomain.TypeJournal {
		return nil
	}

	creditsRevenue := false
	debitsAsset := false
	for _, line := range voucher.Lines {
		account, ok := accounts[line.AccountID]
		if !ok {
			continue
		}
		if line.Credit > 0 && account.Type == accountdomain.TypeRevenue {
			creditsRevenue = true
		}
		if line.Debit > 0 && account.Type == accountdomain.TypeAsset {
			debitsAsset = true
		}
	}
	if creditsRevenue && !debitsAsset {
		return domain.Violations{{
			Code:     codeRevenueWithoutDebtor,
			Severity: domain.SeverityWarning,
			Line:     -1,
			Message:  "revenue credited without a debit to cash or receivables",
		}}
	}
	return nil
}
