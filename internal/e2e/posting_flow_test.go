package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	accountrepository "github.com/GymAurCode/rems-ledger/internal/account/repository"
	accountservice "github.com/GymAurCode/rems-ledger/internal/account/service"
	"github.com/GymAurCode/rems-ledger/internal/clock"
	"github.com/GymAurCode/rems-ledger/internal/config"
	fraudservice "github.com/GymAurCode/rems-ledger/internal/fraud/service"
	journaldomain "github.com/GymAurCode/rems-ledger/internal/journal/domain"
	ledgerservice "github.com/GymAurCode/rems-ledger/internal/ledger/service"
	postingrepository "github.com/GymAurCode/rems-ledger/internal/posting/repository"
	postingservice "github.com/GymAurCode/rems-ledger/internal/posting/service"
	reportservice "github.com/GymAurCode/rems-ledger/internal/report/service"
	"github.com/GymAurCode/rems-ledger/internal/seed"
	"github.com/GymAurCode/rems-ledger/internal/sequence"
	"github.com/GymAurCode/rems-ledger/internal/server"
	voucherdomain "github.com/GymAurCode/rems-ledger/internal/voucher/domain"
	voucherrepository "github.com/GymAurCode/rems-ledger/internal/voucher/repository"
	voucherservice "github.com/GymAurCode/rems-ledger/internal/voucher/service"
)

type env struct {
	db  *gorm.DB
	srv *httptest.Server
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbConn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(
		&accountdomain.Account{},
		&sequence.Counter{},
		&voucherdomain.Voucher{},
		&voucherdomain.VoucherLine{},
		&journaldomain.JournalEntry{},
		&journaldomain.JournalLine{},
	))
	require.NoError(t, dbConn.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_journal_entries_voucher
		 ON journal_entries (voucher_id) WHERE reverses_entry_id IS NULL`,
	).Error)
	require.NoError(t, seed.EnsureChartOfAccounts(dbConn))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	policy := config.NewStaticPolicyHolder(config.DefaultAccountingPolicy())
	fixedClock := clock.NewFakeClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))

	accountRepo := accountrepository.Provide()
	voucherRepo := voucherrepository.Provide()
	postingRepo := postingrepository.Provide()

	registry := accountservice.New(accountservice.Params{DB: dbConn, Log: log, GenID: node}, accountRepo)
	workflow := voucherservice.New(voucherservice.Params{DB: dbConn, Log: log, GenID: node}, voucherRepo)
	postingEngine := postingservice.New(postingservice.Params{
		DB: dbConn, Log: log, GenID: node, Clock: fixedClock, Policy: policy,
	}, postingRepo, voucherRepo, accountRepo)
	reader := ledgerservice.New(ledgerservice.Params{DB: dbConn, Log: log}, accountRepo)
	generator := reportservice.New(reportservice.Params{DB: dbConn, Log: log, Policy: policy}, reader)
	scanner := fraudservice.New(fraudservice.Params{DB: dbConn, Log: log, Clock: fixedClock, Policy: policy})

	engine := gin.New()
	engine.Use(server.ErrorHandlingMiddleware())
	svc := server.NewServer(server.ServerParams{
		Gin:      engine,
		Cfg:      config.Config{ReportTimeout: 30 * time.Second},
		DB:       dbConn,
		GenID:    node,
		Accounts: registry,
		Vouchers: workflow,
		Posting:  postingEngine,
		Ledger:   reader,
		Reports:  generator,
		Fraud:    scanner,
	})

	srv := httptest.NewServer(svc.Engine())
	t.Cleanup(srv.Close)
	return &env{db: dbConn, srv: srv}
}

func (e *env) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func (e *env) accountIDByCode(t *testing.T, code string) string {
	t.Helper()
	status, body := e.do(t, http.MethodGet, "/api/v1/accounts?code="+code, nil)
	require.Equal(t, http.StatusOK, status)
	accounts := body["accounts"].([]any)
	require.Len(t, accounts, 1)
	return jsonString(t, accounts[0].(map[string]any), "id")
}

func jsonString(t *testing.T, m map[string]any, key string) string {
	t.Helper()
	value, ok := m[key]
	require.True(t, ok, "missing key %q", key)
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		t.Fatalf("unexpected type for %q: %T", key, value)
		return ""
	}
}

func (e *env) createVoucher(t *testing.T, payload map[string]any) map[string]any {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/api/v1/vouchers", payload)
	require.Equal(t, http.StatusCreated, status, "create voucher: %v", body)
	return body["voucher"].(map[string]any)
}

func (e *env) lifecycle(t *testing.T, voucherID string, steps ...string) {
	t.Helper()
	for _, step := range steps {
		status, body := e.do(t, http.MethodPost, "/api/v1/vouchers/"+voucherID+"/"+step, nil)
		require.Contains(t, []int{http.StatusOK, http.StatusCreated}, status, "%s: %v", step, body)
	}
}

func TestPostingFlowEndToEnd(t *testing.T) {
	e := setupEnv(t)

	bank := e.accountIDByCode(t, "1011")
	rental := e.accountIDByCode(t, "4002")

	voucher := e.createVoucher(t, map[string]any{
		"type":        "receipt",
		"date":        "2026-03-10",
		"description": "march rent, unit 4b",
		"lines": []map[string]any{
			{"account_id": bank, "debit": "50000.00"},
			{"account_id": rental, "credit": "50000.00"},
		},
	})
	voucherID := jsonString(t, voucher, "id")
	assert.Equal(t, "RV-000001", voucher["number"])
	assert.Equal(t, "draft", voucher["status"])

	e.lifecycle(t, voucherID, "submit", "approve")

	status, body := e.do(t, http.MethodPost, "/api/v1/vouchers/"+voucherID+"/post", nil)
	require.Equal(t, http.StatusCreated, status, "%v", body)
	entry := body["entry"].(map[string]any)
	assert.Equal(t, "JE-000001", entry["entry_number"])
	assert.Equal(t, false, body["already_posted"])
	amount := body["amount"].(map[string]any)
	assert.Equal(t, "50000", amount["decimal"])

	// Retrying the post replays the original entry instead of double-posting.
	status, body = e.do(t, http.MethodPost, "/api/v1/vouchers/"+voucherID+"/post", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["already_posted"])

	var entryCount int64
	require.NoError(t, e.db.Model(&journaldomain.JournalEntry{}).Count(&entryCount).Error)
	assert.EqualValues(t, 1, entryCount)

	status, body = e.do(t, http.MethodGet, "/api/v1/reports/trial-balance?as_of=2026-03-31", nil)
	require.Equal(t, http.StatusOK, status)
	integrity := body["integrity"].(map[string]any)
	assert.Equal(t, true, integrity["balanced"])
	assert.EqualValues(t, 50_000_00, body["total_debits"])
	assert.EqualValues(t, 50_000_00, body["total_credits"])
}

func TestPostingRejectsUnbalancedVoucher(t *testing.T) {
	e := setupEnv(t)

	bank := e.accountIDByCode(t, "1011")
	rental := e.accountIDByCode(t, "4002")

	voucher := e.createVoucher(t, map[string]any{
		"type": "receipt",
		"date": "2026-03-10",
		"lines": []map[string]any{
			{"account_id": bank, "debit": "100.00"},
			{"account_id": rental, "credit": "90.00"},
		},
	})
	voucherID := jsonString(t, voucher, "id")
	e.lifecycle(t, voucherID, "submit", "approve")

	status, body := e.do(t, http.MethodPost, "/api/v1/vouchers/"+voucherID+"/post", nil)
	require.Equal(t, http.StatusBadRequest, status)
	payload := body["error"].(map[string]any)
	assert.Equal(t, "posting_rejected", payload["type"])
	violations := payload["violations"].([]any)
	require.NotEmpty(t, violations)

	codes := make([]string, 0, len(violations))
	for _, violation := range violations {
		codes = append(codes, violation.(map[string]any)["code"].(string))
	}
	assert.Contains(t, codes, "unbalanced_entry")

	// The voucher stays approved so it can be fixed and re-posted.
	status, body = e.do(t, http.MethodGet, "/api/v1/vouchers/"+voucherID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "approved", body["voucher"].(map[string]any)["status"])
}

func TestPostingBlocksEscrowCommingling(t *testing.T) {
	e := setupEnv(t)

	escrowBank := e.accountIDByCode(t, "1012")
	rental := e.accountIDByCode(t, "4002")

	voucher := e.createVoucher(t, map[string]any{
		"type": "receipt",
		"date": "2026-03-12",
		"lines": []map[string]any{
			{"account_id": escrowBank, "debit": "2500.00"},
			{"account_id": rental, "credit": "2500.00"},
		},
	})
	voucherID := jsonString(t, voucher, "id")
	e.lifecycle(t, voucherID, "submit", "approve")

	status, body := e.do(t, http.MethodPost, "/api/v1/vouchers/"+voucherID+"/post", nil)
	require.Equal(t, http.StatusBadRequest, status)
	payload := body["error"].(map[string]any)
	assert.Equal(t, "posting_rejected", payload["type"])

	// The same movement with a deposit purpose is legitimate trust activity.
	deposits := e.accountIDByCode(t, "2201")
	allowed := e.createVoucher(t, map[string]any{
		"type":    "receipt",
		"date":    "2026-03-12",
		"purpose": "security_deposit_receipt",
		"lines": []map[string]any{
			{"account_id": escrowBank, "debit": "2500.00"},
			{"account_id": deposits, "credit": "2500.00"},
		},
	})
	allowedID := jsonString(t, allowed, "id")
	e.lifecycle(t, allowedID, "submit", "approve", "post")
}

func TestReversalFlowEndToEnd(t *testing.T) {
	e := setupEnv(t)

	bank := e.accountIDByCode(t, "1011")
	rental := e.accountIDByCode(t, "4002")

	voucher := e.createVoucher(t, map[string]any{
		"type": "receipt",
		"date": "2026-03-10",
		"lines": []map[string]any{
			{"account_id": bank, "debit": "1200.00"},
			{"account_id": rental, "credit": "1200.00"},
		},
	})
	voucherID := jsonString(t, voucher, "id")
	e.lifecycle(t, voucherID, "submit", "approve", "post")

	status, body := e.do(t, http.MethodPost, "/api/v1/vouchers/"+voucherID+"/reverse",
		map[string]any{"description": "tenant refund"})
	require.Equal(t, http.StatusCreated, status, "%v", body)
	entry := body["entry"].(map[string]any)
	assert.NotEmpty(t, entry["reverses_entry_id"])

	// Reversal is idempotent too.
	status, _ = e.do(t, http.MethodPost, "/api/v1/vouchers/"+voucherID+"/reverse", nil)
	require.Equal(t, http.StatusOK, status)

	var entryCount int64
	require.NoError(t, e.db.Model(&journaldomain.JournalEntry{}).Count(&entryCount).Error)
	assert.EqualValues(t, 2, entryCount)

	// Net effect on the bank account is zero.
	status, body = e.do(t, http.MethodGet, "/api/v1/ledger/accounts/"+bank+"/balance?as_of=2026-12-31", nil)
	require.Equal(t, http.StatusOK, status)
	amount := body["amount"].(map[string]any)
	assert.Equal(t, "0", amount["decimal"])
}

func TestLifecycleGuardsOverHTTP(t *testing.T) {
	e := setupEnv(t)

	bank := e.accountIDByCode(t, "1011")
	rental := e.accountIDByCode(t, "4002")

	voucher := e.createVoucher(t, map[string]any{
		"type": "receipt",
		"lines": []map[string]any{
			{"account_id": bank, "debit": "10.00"},
			{"account_id": rental, "credit": "10.00"},
		},
	})
	voucherID := jsonString(t, voucher, "id")

	// Draft vouchers cannot be approved or posted.
	status, body := e.do(t, http.MethodPost, "/api/v1/vouchers/"+voucherID+"/approve", nil)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", body["error"].(map[string]any)["type"])

	status, _ = e.do(t, http.MethodPost, "/api/v1/vouchers/"+voucherID+"/post", nil)
	require.Equal(t, http.StatusConflict, status)

	status, _ = e.do(t, http.MethodGet, "/api/v1/vouchers/"+snowflake.ID(99).String(), nil)
	require.Equal(t, http.StatusNotFound, status)
}
