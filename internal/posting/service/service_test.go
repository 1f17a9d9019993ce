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
	accountservice "github.com/GymAurCode/rems-ledger/internal/account/service"
	"github.com/GymAurCode/rems-ledger/internal/clock"
	"github.com/GymAurCode/rems-ledger/internal/config"
	journaldomain "github.com/GymAurCode/rems-ledger/internal/journal/domain"
	"github.com/GymAurCode/rems-ledger/internal/posting/domain"
	postingrepo "github.com/GymAurCode/rems-ledger/internal/posting/repository"
	"github.com/GymAurCode/rems-ledger/internal/sequence"
	voucherdomain "github.com/GymAurCode/rems-ledger/internal/voucher/domain"
	voucherrepo "github.com/GymAurCode/rems-ledger/internal/voucher/repository"
	voucherservice "github.com/GymAurCode/rems-ledger/internal/voucher/service"
)

type engineFixture struct {
	engine   domain.Engine
	workflow voucherdomain.Workflow
	registry accountdomain.Registry
	db       *gorm.DB
	clock    *clock.FakeClock
}

func setupEngine(t *testing.T) *engineFixture {
	t.Helper()

	dbConn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(
		&accountdomain.Account{},
		&voucherdomain.Voucher{},
		&voucherdomain.VoucherLine{},
		&journaldomain.JournalEntry{},
		&journaldomain.JournalLine{},
		&sequence.Counter{},
	))
	// Partial unique index backing idempotent posting; AutoMigrate cannot
	// express the WHERE clause.
	require.NoError(t, dbConn.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_journal_entries_voucher
		 ON journal_entries (voucher_id) WHERE reverses_entry_id IS NULL`,
	).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	registry := accountservice.New(
		accountservice.Params{DB: dbConn, Log: zap.NewNop(), GenID: node},
		accountrepo.Provide(),
	)
	workflow := voucherservice.New(
		voucherservice.Params{DB: dbConn, Log: zap.NewNop(), GenID: node},
		voucherrepo.Provide(),
	)
	voucherRepository := voucherrepo.Provide()
	accountRepository := accountrepo.Provide()
	engine := New(Params{
		DB:     dbConn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fakeClock,
		Policy: config.NewStaticPolicyHolder(config.DefaultAccountingPolicy()),
	}, postingrepo.Provide(), voucherRepository, accountRepository)

	return &engineFixture{
		engine:   engine,
		workflow: workflow,
		registry: registry,
		db:       dbConn,
		clock:    fakeClock,
	}
}

func (f *engineFixture) account(t *testing.T, code, name string, accType accountdomain.AccountType, cashFlow accountdomain.CashFlowCategory) accountdomain.Account {
	t.Helper()
	acc, err := f.registry.Create(context.Background(), accountdomain.CreateAccountRequest{
		Code: code, Name: name, Type: accType, CashFlow: cashFlow,
	})
	require.NoError(t, err)
	return acc
}

func (f *engineFixture) approvedVoucher(t *testing.T, vType voucherdomain.VoucherType, purpose string, lines []voucherdomain.LineInput) voucherdomain.Voucher {
	t.Helper()
	ctx := context.Background()

	v, err := f.workflow.Create(ctx, voucherdomain.CreateVoucherRequest{
		Type:    vType,
		Date:    time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Purpose: purpose,
		Lines:   lines,
	})
	require.NoError(t, err)
	_, err = f.workflow.Submit(ctx, v.ID)
	require.NoError(t, err)
	v, err = f.workflow.Approve(ctx, v.ID)
	require.NoError(t, err)
	return v
}

func TestPostApprovedVoucher(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset, accountdomain.CashFlowOperating)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue, accountdomain.CashFlowNone)
	v := f.approvedVoucher(t, voucherdomain.TypeReceipt, "", []voucherdomain.LineInput{
		{AccountID: bank.ID, Debit: 50_000_00},
		{AccountID: rental.ID, Credit: 50_000_00},
	})

	result, err := f.engine.Post(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, result.AlreadyPosted)
	assert.Equal(t, "JE-000001", result.Entry.EntryNumber)
	assert.Equal(t, v.Number, result.Entry.VoucherNumber)
	require.Len(t, result.Lines, 2)

	got, err := f.workflow.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, voucherdomain.StatusPosted, got.Status)
}

func TestPostIsIdempotent(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset, accountdomain.CashFlowOperating)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue, accountdomain.CashFlowNone)
	v := f.approvedVoucher(t, voucherdomain.TypeReceipt, "", []voucherdomain.LineInput{
		{AccountID: bank.ID, Debit: 50_000_00},
		{AccountID: rental.ID, Credit: 50_000_00},
	})

	first, err := f.engine.Post(ctx, v.ID)
	require.NoError(t, err)

	second, err := f.engine.Post(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyPosted)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)

	var count int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(1) FROM journal_entries WHERE voucher_id = ?`, v.ID,
	).Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPostRejectsDraft(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset, accountdomain.CashFlowOperating)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue, accountdomain.CashFlowNone)

	v, err := f.workflow.Create(ctx, voucherdomain.CreateVoucherRequest{
		Type: voucherdomain.TypeReceipt,
		Lines: []voucherdomain.LineInput{
			{AccountID: bank.ID, Debit: 1000},
			{AccountID: rental.ID, Credit: 1000},
		},
	})
	require.NoError(t, err)

	_, err = f.engine.Post(ctx, v.ID)
	assert.ErrorIs(t, err, domain.ErrVoucherNotApproved)
}

func TestPostRejectsUnbalancedWithViolations(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset, accountdomain.CashFlowOperating)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue, accountdomain.CashFlowNone)
	v := f.approvedVoucher(t, voucherdomain.TypeReceipt, "", []voucherdomain.LineInput{
		{AccountID: bank.ID, Debit: 1000_00},
		{AccountID: rental.ID, Credit: 900_00},
	})

	_, err := f.engine.Post(ctx, v.ID)
	var findings domain.Violations
	require.ErrorAs(t, err, &findings)
	assert.True(t, findings.HasErrors())
	assert.NotNil(t, findCode(findings, "unbalanced_entry"))

	// Nothing was written and the voucher stays approved for correction.
	got, err := f.workflow.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, voucherdomain.StatusApproved, got.Status)

	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(1) FROM journal_entries`).Scan(&count).Error)
	assert.Zero(t, count)
}

func TestPostRejectsEscrowCommingling(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	escrow := f.account(t, "1012", "Escrow Bank", accountdomain.TypeAsset, accountdomain.CashFlowEscrow)
	maintenance := f.account(t, "5301", "Maintenance Expense", accountdomain.TypeExpense, accountdomain.CashFlowNone)
	v := f.approvedVoucher(t, voucherdomain.TypePayment, "", []voucherdomain.LineInput{
		{AccountID: maintenance.ID, Debit: 3_000_00},
		{AccountID: escrow.ID, Credit: 3_000_00},
	})

	_, err := f.engine.Post(ctx, v.ID)
	var findings domain.Violations
	require.ErrorAs(t, err, &findings)
	assert.NotNil(t, findCode(findings, "escrow_commingling"))
}

func TestReverseCreatesOffsettingEntry(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset, accountdomain.CashFlowOperating)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue, accountdomain.CashFlowNone)
	v := f.approvedVoucher(t, voucherdomain.TypeReceipt, "", []voucherdomain.LineInput{
		{AccountID: bank.ID, Debit: 50_000_00},
		{AccountID: rental.ID, Credit: 50_000_00},
	})

	posted, err := f.engine.Post(ctx, v.ID)
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	reversed, err := f.engine.Reverse(ctx, v.ID, "posted in error")
	require.NoError(t, err)
	assert.False(t, reversed.AlreadyPosted)
	require.NotNil(t, reversed.Entry.ReversesEntryID)
	assert.Equal(t, posted.Entry.ID, *reversed.Entry.ReversesEntryID)

	require.Len(t, reversed.Lines, 2)
	assert.Equal(t, int64(50_000_00), reversed.Lines[0].Credit, "debit and credit swap")
	assert.Equal(t, int64(50_000_00), reversed.Lines[1].Debit)

	got, err := f.workflow.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, voucherdomain.StatusReversed, got.Status)
}

func TestReverseIsIdempotent(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset, accountdomain.CashFlowOperating)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue, accountdomain.CashFlowNone)
	v := f.approvedVoucher(t, voucherdomain.TypeReceipt, "", []voucherdomain.LineInput{
		{AccountID: bank.ID, Debit: 10_000_00},
		{AccountID: rental.ID, Credit: 10_000_00},
	})

	_, err := f.engine.Post(ctx, v.ID)
	require.NoError(t, err)

	first, err := f.engine.Reverse(ctx, v.ID, "")
	require.NoError(t, err)
	second, err := f.engine.Reverse(ctx, v.ID, "")
	require.NoError(t, err)
	assert.True(t, second.AlreadyPosted)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)

	var count int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(1) FROM journal_entries WHERE voucher_id = ?`, v.ID,
	).Scan(&count).Error)
	assert.Equal(t, int64(2), count, "one posting plus one reversal")
}

func TestReverseRequiresPostedVoucher(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset, accountdomain.CashFlowOperating)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue, accountdomain.CashFlowNone)
	v := f.approvedVoucher(t, voucherdomain.TypeReceipt, "", []voucherdomain.LineInput{
		{AccountID: bank.ID, Debit: 1000},
		{AccountID: rental.ID, Credit: 1000},
	})

	_, err := f.engine.Reverse(ctx, v.ID, "")
	assert.ErrorIs(t, err, domain.ErrVoucherNotPosted)
}

func TestValidateDryRun(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	bank := f.account(t, "1011", "Operating Bank", accountdomain.TypeAsset, accountdomain.CashFlowOperating)
	rental := f.account(t, "4002", "Revenue - Rentals", accountdomain.TypeRevenue, accountdomain.CashFlowNone)
	v, err := f.workflow.Create(ctx, voucherdomain.CreateVoucherRequest{
		Type: voucherdomain.TypeReceipt,
		Lines: []voucherdomain.LineInput{
			{AccountID: bank.ID, Debit: 500},
			{AccountID: rental.ID, Credit: 400},
		},
	})
	require.NoError(t, err)

	findings, err := f.engine.Validate(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, findings.HasErrors())

	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(1) FROM journal_entries`).Scan(&count).Error)
	assert.Zero(t, count)
}
