package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
)

type seedAccount struct {
	Code       string
	Name       string
	Type       accountdomain.AccountType
	CashFlow   accountdomain.CashFlowCategory
	ParentCode string
	Summary    bool
}

// defaultChart is the starter chart of accounts for a fresh installation.
// Escrow bank and deposit accounts are classified up front so trust
// accounting works before anyone touches the registry.
var defaultChart = []seedAccount{
	{Code: "1000", Name: "Assets", Type: accountdomain.TypeAsset, CashFlow: accountdomain.CashFlowNone, Summary: true},
	{Code: "1011", Name: "Operating Bank", Type: accountdomain.TypeAsset, CashFlow: accountdomain.CashFlowOperating, ParentCode: "1000"},
	{Code: "1012", Name: "Escrow Bank", Type: accountdomain.TypeAsset, CashFlow: accountdomain.CashFlowEscrow, ParentCode: "1000"},
	{Code: "1101", Name: "Cash on Hand", Type: accountdomain.TypeAsset, CashFlow: accountdomain.CashFlowOperating, ParentCode: "1000"},
	{Code: "1201", Name: "Accounts Receivable", Type: accountdomain.TypeAsset, CashFlow: accountdomain.CashFlowOperating, ParentCode: "1000"},
	{Code: "1501", Name: "Property & Equipment", Type: accountdomain.TypeAsset, CashFlow: accountdomain.CashFlowInvesting, ParentCode: "1000"},
	{Code: "2000", Name: "Liabilities", Type: accountdomain.TypeLiability, CashFlow: accountdomain.CashFlowNone, Summary: true},
	{Code: "2101", Name: "Accounts Payable", Type: accountdomain.TypeLiability, CashFlow: accountdomain.CashFlowOperating, ParentCode: "2000"},
	{Code: "2201", Name: "Security Deposits Held", Type: accountdomain.TypeLiability, CashFlow: accountdomain.CashFlowEscrow, ParentCode: "2000"},
	{Code: "3101", Name: "Owner Capital", Type: accountdomain.TypeEquity, CashFlow: accountdomain.CashFlowFinancing},
	{Code: "3201", Name: "Retained Earnings", Type: accountdomain.TypeEquity, CashFlow: accountdomain.CashFlowNone},
	{Code: "4001", Name: "Sales Revenue", Type: accountdomain.TypeRevenue, CashFlow: accountdomain.CashFlowOperating},
	{Code: "4002", Name: "Rental Revenue", Type: accountdomain.TypeRevenue, CashFlow: accountdomain.CashFlowOperating},
	{Code: "5101", Name: "Salaries Expense", Type: accountdomain.TypeExpense, CashFlow: accountdomain.CashFlowOperating},
	{Code: "5301", Name: "Maintenance Expense", Type: accountdomain.TypeExpense, CashFlow: accountdomain.CashFlowOperating},
	{Code: "5401", Name: "Utilities Expense", Type: accountdomain.TypeExpense, CashFlow: accountdomain.CashFlowOperating},
}

// EnsureChartOfAccounts seeds the default chart on an empty registry. A
// populated registry is left untouched, so installations that customized
// their chart never get surprise accounts back.
func EnsureChartOfAccounts(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&accountdomain.Account{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		byCode := make(map[string]snowflake.ID, len(defaultChart))
		for _, entry := range defaultChart {
			account := accountdomain.Account{
				ID:         node.Generate(),
				Code:       entry.Code,
				Name:       entry.Name,
				Type:       entry.Type,
				IsPostable: !entry.Summary,
				CashFlow:   entry.CashFlow,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if entry.ParentCode != "" {
				parentID, ok := byCode[entry.ParentCode]
				if !ok {
					return errors.New("seed parent account missing: " + entry.ParentCode)
				}
				account.ParentID = &parentID
			}
			if err := tx.Create(&account).Error; err != nil {
				return err
			}
			byCode[entry.Code] = account.ID
		}
		return nil
	})
}
