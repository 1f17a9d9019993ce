package service

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	"github.com/GymAurCode/rems-ledger/internal/config"
	"github.com/GymAurCode/rems-ledger/internal/posting/domain"
	voucherdomain "github.com/GymAurCode/rems-ledger/internal/voucher/domain"
)

type fixtureAccounts struct {
	operating snowflake.ID
	escrow    snowflake.ID
	deposits  snowflake.ID
	rental    snowflake.ID
	summary   snowflake.ID
}

func checkFixture(t *testing.T) (map[snowflake.ID]accountdomain.Account, fixtureAccounts) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	ids := fixtureAccounts{
		operating: node.Generate(),
		escrow:    node.Generate(),
		deposits:  node.Generate(),
		rental:    node.Generate(),
		summary:   node.Generate(),
	}
	accounts := map[snowflake.ID]accountdomain.Account{
		ids.operating: {ID: ids.operating, Code: "1011", Name: "Operating Bank", Type: accountdomain.TypeAsset, IsPostable: true, CashFlow: accountdomain.CashFlowOperating},
		ids.escrow:    {ID: ids.escrow, Code: "1012", Name: "Escrow Bank", Type: accountdomain.TypeAsset, IsPostable: true, CashFlow: accountdomain.CashFlowEscrow},
		ids.deposits:  {ID: ids.deposits, Code: "2201", Name: "Security Deposits Held", Type: accountdomain.TypeLiability, IsPostable: true, CashFlow: accountdomain.CashFlowEscrow},
		ids.rental:    {ID: ids.rental, Code: "4002", Name: "Revenue - Rentals", Type: accountdomain.TypeRevenue, IsPostable: true},
		ids.summary:   {ID: ids.summary, Code: "1000", Name: "Assets", Type: accountdomain.TypeAsset, IsPostable: false},
	}
	return accounts, ids
}

func findCode(findings domain.Violations, code string) *domain.Violation {
	for i := range findings {
		if findings[i].Code == code {
			return &findings[i]
		}
	}
	return nil
}

func TestCheckVoucherCleanReceipt(t *testing.T) {
	accounts, ids := checkFixture(t)
	voucher := &voucherdomain.Voucher{
		Type: voucherdomain.TypeReceipt,
		Lines: []voucherdomain.VoucherLine{
			{AccountID: ids.operating, Debit: 50_000_00},
			{AccountID: ids.rental, Credit: 50_000_00},
		},
	}

	findings := CheckVoucher(config.DefaultAccountingPolicy(), voucher, accounts)
	assert.False(t, findings.HasErrors())
	assert.Empty(t, findings)
}

func TestCheckVoucherReportsAllFindingsAtOnce(t *testing.T) {
	accounts, ids := checkFixture(t)
	voucher := &voucherdomain.Voucher{
		Type: voucherdomain.TypeJournal,
		Lines: []voucherdomain.VoucherLine{
			{AccountID: ids.summary, Debit: 1000_00},
			{AccountID: ids.rental, Credit: 900_00},
		},
	}

	findings := CheckVoucher(config.DefaultAccountingPolicy(), voucher, accounts)
	require.True(t, findings.HasErrors())
	assert.NotNil(t, findCode(findings, "account_not_postable"))
	assert.NotNil(t, findCode(findings, "unbalanced_entry"))
}

func TestCheckVoucherEscrowCommingling(t *testing.T) {
	accounts, ids := checkFixture(t)
	voucher := &voucherdomain.Voucher{
		Type: voucherdomain.TypePayment,
		Lines: []voucherdomain.VoucherLine{
			{AccountID: ids.escrow, Credit: 5_000_00},
			{AccountID: ids.operating, Debit: 5_000_00},
		},
	}

	findings := CheckVoucher(config.DefaultAccountingPolicy(), voucher, accounts)
	require.True(t, findings.HasErrors())
	assert.NotNil(t, findCode(findings, "escrow_commingling"))
}

func TestCheckVoucherEscrowAllowedByPurpose(t *testing.T) {
	accounts, ids := checkFixture(t)
	voucher := &voucherdomain.Voucher{
		Type:    voucherdomain.TypeReceipt,
		Purpose: "security_deposit_receipt",
		Lines: []voucherdomain.VoucherLine{
			{AccountID: ids.escrow, Debit: 5_000_00},
			{AccountID: ids.deposits, Credit: 5_000_00},
		},
	}

	findings := CheckVoucher(config.DefaultAccountingPolicy(), voucher, accounts)
	assert.False(t, findings.HasErrors())
}

func TestCheckVoucherEscrowOnlyEntryAllowed(t *testing.T) {
	accounts, ids := checkFixture(t)
	// Both sides inside the escrow boundary need no special purpose.
	voucher := &voucherdomain.Voucher{
		Type: voucherdomain.TypeJournal,
		Lines: []voucherdomain.VoucherLine{
			{AccountID: ids.escrow, Credit: 2_000_00},
			{AccountID: ids.deposits, Debit: 2_000_00},
		},
	}

	findings := CheckVoucher(config.DefaultAccountingPolicy(), voucher, accounts)
	assert.Nil(t, findCode(findings, "escrow_commingling"))
}

func TestCheckVoucherRevenueWithoutReceivableWarns(t *testing.T) {
	accounts, ids := checkFixture(t)
	voucher := &voucherdomain.Voucher{
		Type: voucherdomain.TypeJournal,
		Lines: []voucherdomain.VoucherLine{
			{AccountID: ids.deposits, Debit: 10_000_00},
			{AccountID: ids.rental, Credit: 10_000_00},
		},
	}

	findings := CheckVoucher(config.DefaultAccountingPolicy(), voucher, accounts)
	assert.False(t, findings.HasErrors(), "warning must not block posting")
	warning := findCode(findings, "revenue_without_receivable")
	require.NotNil(t, warning)
	assert.Equal(t, domain.SeverityWarning, warning.Severity)
}

func TestCheckVoucherUnknownAccount(t *testing.T) {
	accounts, ids := checkFixture(t)
	voucher := &voucherdomain.Voucher{
		Type: voucherdomain.TypeReceipt,
		Lines: []voucherdomain.VoucherLine{
			{AccountID: 999, Debit: 100},
			{AccountID: ids.rental, Credit: 100},
		},
	}

	findings := CheckVoucher(config.DefaultAccountingPolicy(), voucher, accounts)
	require.True(t, findings.HasErrors())
	assert.NotNil(t, findCode(findings, "account_not_found"))
}
