package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	accountrepo "github.com/GymAurCode/rems-ledger/internal/account/repository"
	journaldomain "github.com/GymAurCode/rems-ledger/internal/journal/domain"
	"github.com/GymAurCode/rems-ledger/internal/ledger/domain"
)

type readerFixture struct {
	reader domain.Reader
	db     *gorm.DB
	node   *snowflake.Node
}

func setupReader(t *testing.T) *readerFixture {
	t.Helper()

	dbConn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(
		&accountdomain.Account{},
		&journaldomain.JournalEntry{},
		&journaldomain.JournalLine{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	reader := New(Params{DB: dbConn, Log: zap.NewNop()}, accountrepo.Provide())
	return &readerFixture{reader: reader, db: dbConn, node: node}
}

func (f *readerFixture) account(t *testing.T, code, name string, accType accountdomain.AccountType) accountdomain.Account {
	t.Helper()
	acc := accountdomain.Account{
		ID:         f.node.Generate(),
		Code:       code,
		Name:       name,
		Type:       accType,
		IsPostable: true,
		CashFlow:   accountdomain.CashFlowNone,
	}
	require.NoError(t, f.db.Create(&acc).Error)
	return acc
}

func (f *readerFixture) post(t *testing.T, date time.Time, propertyID *snowflake.ID, lines []journaldomain.JournalLine) journaldomain.JournalEntry {
	t.Helper()

	entry := journaldomain.JournalEntry{
		ID:            f.node.Generate(),
		EntryNumber:   "JE-" + f.node.Generate().String(),
		VoucherID:     f.node.Generate(),
		VoucherNumber: "RV-" + f.node.Generate().String(),
		Date:          date,
		PropertyID:    propertyID,
		CreatedAt:     date,
	}
	require.NoError(t, f.db.Create(&entry).Error)
	for i := range lines {
		lines[i].ID = f.node.Generate()
		lines[i].JournalEntryID = entry.ID
		lines[i].Position = i
		require.NoError(t, f.db.Create(&lines[i]).Error)
	}
	return entry
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestAccountLedgerRunningBalance(t *testing.T) {
	f := setupReader(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue)

	f.post(t, day(1), nil, []journaldomain.JournalLine{
		{AccountID: bank.ID, Debit: 50_000_00},
		{AccountID: rental.ID, Credit: 50_000_00},
	})
	f.post(t, day(5), nil, []journaldomain.JournalLine{
		{AccountID: bank.ID, Debit: 20_000_00},
		{AccountID: rental.ID, Credit: 20_000_00},
	})
	f.post(t, day(9), nil, []journaldomain.JournalLine{
		{AccountID: rental.ID, Debit: 5_000_00},
		{AccountID: bank.ID, Credit: 5_000_00},
	})

	result, err := f.reader.AccountLedger(ctx, domain.AccountLedgerRequest{AccountID: bank.ID})
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, int64(0), result.OpeningBalance)
	assert.Equal(t, int64(50_000_00), result.Rows[0].RunningBalance)
	assert.Equal(t, int64(70_000_00), result.Rows[1].RunningBalance)
	assert.Equal(t, int64(65_000_00), result.Rows[2].RunningBalance)
	assert.Equal(t, int64(65_000_00), result.ClosingBalance)
}

func TestAccountLedgerOpeningBalance(t *testing.T) {
	f := setupReader(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue)

	f.post(t, day(1), nil, []journaldomain.JournalLine{
		{AccountID: bank.ID, Debit: 10_000_00},
		{AccountID: rental.ID, Credit: 10_000_00},
	})
	f.post(t, day(10), nil, []journaldomain.JournalLine{
		{AccountID: bank.ID, Debit: 3_000_00},
		{AccountID: rental.ID, Credit: 3_000_00},
	})

	result, err := f.reader.AccountLedger(ctx, domain.AccountLedgerRequest{
		AccountID: bank.ID,
		From:      day(5),
		To:        day(15),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_00), result.OpeningBalance)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, int64(13_000_00), result.ClosingBalance)
}

func TestCreditNormalBalanceSign(t *testing.T) {
	f := setupReader(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue)

	f.post(t, day(1), nil, []journaldomain.JournalLine{
		{AccountID: bank.ID, Debit: 50_000_00},
		{AccountID: rental.ID, Credit: 50_000_00},
	})

	balance, err := f.reader.AccountBalance(ctx, rental.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(50_000_00), balance.Balance, "credit-normal account reads positive when credited")
}

func TestBalancesAsOfIncludesZeroActivityAccounts(t *testing.T) {
	f := setupReader(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset)
	f.account(t, "5301", "Maintenance Expense", accountdomain.TypeExpense)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue)

	f.post(t, day(1), nil, []journaldomain.JournalLine{
		{AccountID: bank.ID, Debit: 1_000_00},
		{AccountID: rental.ID, Credit: 1_000_00},
	})

	balances, err := f.reader.BalancesAsOf(ctx, day(2), domain.Filter{})
	require.NoError(t, err)
	require.Len(t, balances, 3, "zero-activity account still listed")

	byCode := map[string]domain.AccountBalance{}
	for _, b := range balances {
		byCode[b.Code] = b
	}
	assert.Equal(t, int64(0), byCode["5301"].Balance)
	assert.Equal(t, int64(1_000_00), byCode["1011"].Balance)
}

func TestBalancesAsOfHonorsDateCutoff(t *testing.T) {
	f := setupReader(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue)

	f.post(t, day(1), nil, []journaldomain.JournalLine{
		{AccountID: bank.ID, Debit: 1_000_00},
		{AccountID: rental.ID, Credit: 1_000_00},
	})
	f.post(t, day(20), nil, []journaldomain.JournalLine{
		{AccountID: bank.ID, Debit: 9_000_00},
		{AccountID: rental.ID, Credit: 9_000_00},
	})

	balances, err := f.reader.BalancesAsOf(ctx, day(10), domain.Filter{})
	require.NoError(t, err)
	byCode := map[string]domain.AccountBalance{}
	for _, b := range balances {
		byCode[b.Code] = b
	}
	assert.Equal(t, int64(1_000_00), byCode["1011"].Balance)
}

func TestBalancesBetweenFiltersByProperty(t *testing.T) {
	f := setupReader(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue)

	propertyA := f.node.Generate()
	propertyB := f.node.Generate()
	f.post(t, day(2), &propertyA, []journaldomain.JournalLine{
		{AccountID: bank.ID, Debit: 7_000_00},
		{AccountID: rental.ID, Credit: 7_000_00},
	})
	f.post(t, day(3), &propertyB, []journaldomain.JournalLine{
		{AccountID: bank.ID, Debit: 2_000_00},
		{AccountID: rental.ID, Credit: 2_000_00},
	})

	balances, err := f.reader.BalancesBetween(ctx, day(1), day(28), domain.Filter{PropertyID: &propertyA})
	require.NoError(t, err)
	byCode := map[string]domain.AccountBalance{}
	for _, b := range balances {
		byCode[b.Code] = b
	}
	assert.Equal(t, int64(7_000_00), byCode["4002"].Balance)
}

func TestCompanyLedgerOrdersChronologically(t *testing.T) {
	f := setupReader(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue)

	second := f.post(t, day(8), nil, []journaldomain.JournalLine{
		{AccountID: bank.ID, Debit: 100},
		{AccountID: rental.ID, Credit: 100},
	})
	first := f.post(t, day(2), nil, []journaldomain.JournalLine{
		{AccountID: bank.ID, Debit: 200},
		{AccountID: rental.ID, Credit: 200},
	})

	entries, err := f.reader.CompanyLedger(ctx, domain.CompanyLedgerRequest{From: day(1), To: day(28)})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].Entry.ID)
	assert.Equal(t, second.ID, entries[1].Entry.ID)
	assert.Len(t, entries[0].Lines, 2)
}

func TestInvalidRangeRejected(t *testing.T) {
	f := setupReader(t)
	_, err := f.reader.CompanyLedger(context.Background(), domain.CompanyLedgerRequest{From: day(10), To: day(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}
