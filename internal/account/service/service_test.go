package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/GymAurCode/rems-ledger/internal/account/domain"
	"github.com/GymAurCode/rems-ledger/internal/account/repository"
	journaldomain "github.com/GymAurCode/rems-ledger/internal/journal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupRegistry(t *testing.T) (domain.Registry, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dbConn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(
		&domain.Account{},
		&journaldomain.JournalEntry{},
		&journaldomain.JournalLine{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{DB: dbConn, Log: zap.NewNop(), GenID: node}, repository.Provide())
	return svc, dbConn, node
}

func TestCreateLeafIsPostable(t *testing.T) {
	svc, _, _ := setupRegistry(t)
	ctx := context.Background()

	acc, err := svc.Create(ctx, domain.CreateAccountRequest{
		Code: "1011", Name: "Operating Bank", Type: domain.TypeAsset, CashFlow: domain.CashFlowOperating,
	})
	require.NoError(t, err)
	assert.True(t, acc.IsPostable)

	postable, err := svc.IsPostable(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, postable)
}

func TestCreateChildFlipsParentNonPostable(t *testing.T) {
	svc, _, _ := setupRegistry(t)
	ctx := context.Background()

	parent, err := svc.Create(ctx, domain.CreateAccountRequest{
		Code: "1000", Name: "Assets", Type: domain.TypeAsset,
	})
	require.NoError(t, err)
	assert.True(t, parent.IsPostable)

	_, err = svc.Create(ctx, domain.CreateAccountRequest{
		Code: "1011", Name: "Operating Bank", Type: domain.TypeAsset, ParentID: &parent.ID,
	})
	require.NoError(t, err)

	postable, err := svc.IsPostable(ctx, parent.ID)
	require.NoError(t, err)
	assert.False(t, postable, "parent with children must not be postable")
}

func TestCreateRejectsCrossTypeParent(t *testing.T) {
	svc, _, _ := setupRegistry(t)
	ctx := context.Background()

	parent, err := svc.Create(ctx, domain.CreateAccountRequest{
		Code: "1000", Name: "Assets", Type: domain.TypeAsset,
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateAccountRequest{
		Code: "4001", Name: "Revenue - Sales", Type: domain.TypeRevenue, ParentID: &parent.ID,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidHierarchy)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc, _, _ := setupRegistry(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateAccountRequest{
		Code: "1011", Name: "Operating Bank", Type: domain.TypeAsset,
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateAccountRequest{
		Code: "1011", Name: "Duplicate", Type: domain.TypeAsset,
	})
	assert.ErrorIs(t, err, domain.ErrCodeExists)
}

func TestReclassifyRejectsCycle(t *testing.T) {
	svc, _, _ := setupRegistry(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, domain.CreateAccountRequest{Code: "1000", Name: "Assets", Type: domain.TypeAsset})
	require.NoError(t, err)
	b, err := svc.Create(ctx, domain.CreateAccountRequest{Code: "1100", Name: "Banks", Type: domain.TypeAsset, ParentID: &a.ID, Postable: boolPtr(false)})
	require.NoError(t, err)
	c, err := svc.Create(ctx, domain.CreateAccountRequest{Code: "1110", Name: "Local Banks", Type: domain.TypeAsset, ParentID: &b.ID, Postable: boolPtr(false)})
	require.NoError(t, err)

	// Moving the root under its grandchild closes a cycle.
	_, err = svc.Reclassify(ctx, domain.ReclassifyRequest{ID: a.ID, ParentID: &c.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidHierarchy)
}

func TestReclassifyRejectsMovingSummaryWithPostableChildren(t *testing.T) {
	svc, _, _ := setupRegistry(t)
	ctx := context.Background()

	summary, err := svc.Create(ctx, domain.CreateAccountRequest{Code: "1000", Name: "Assets", Type: domain.TypeAsset})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateAccountRequest{Code: "1011", Name: "Operating Bank", Type: domain.TypeAsset, ParentID: &summary.ID})
	require.NoError(t, err)
	other, err := svc.Create(ctx, domain.CreateAccountRequest{Code: "1900", Name: "Other Assets", Type: domain.TypeAsset})
	require.NoError(t, err)

	_, err = svc.Reclassify(ctx, domain.ReclassifyRequest{ID: summary.ID, ParentID: &other.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidHierarchy)
}

func TestResolvePathReturnsAncestorsRootFirst(t *testing.T) {
	svc, _, _ := setupRegistry(t)
	ctx := context.Background()

	root, err := svc.Create(ctx, domain.CreateAccountRequest{Code: "1000", Name: "Assets", Type: domain.TypeAsset})
	require.NoError(t, err)
	mid, err := svc.Create(ctx, domain.CreateAccountRequest{Code: "1100", Name: "Banks", Type: domain.TypeAsset, ParentID: &root.ID, Postable: boolPtr(false)})
	require.NoError(t, err)
	leaf, err := svc.Create(ctx, domain.CreateAccountRequest{Code: "1110", Name: "Operating Bank", Type: domain.TypeAsset, ParentID: &mid.ID})
	require.NoError(t, err)

	path, err := svc.ResolvePath(ctx, leaf.ID)
	require.NoError(t, err)
	require.Len(t, path, 2)
	assert.Equal(t, root.ID, path[0].ID)
	assert.Equal(t, mid.ID, path[1].ID)
}

func TestDeleteRefusedWhenReferencedByJournalLine(t *testing.T) {
	svc, dbConn, node := setupRegistry(t)
	ctx := context.Background()

	acc, err := svc.Create(ctx, domain.CreateAccountRequest{Code: "1011", Name: "Operating Bank", Type: domain.TypeAsset})
	require.NoError(t, err)

	entryID := node.Generate()
	require.NoError(t, dbConn.Create(&journaldomain.JournalLine{
		ID:             node.Generate(),
		JournalEntryID: entryID,
		AccountID:      acc.ID,
		Debit:          5000,
	}).Error)

	err = svc.Delete(ctx, acc.ID)
	assert.ErrorIs(t, err, domain.ErrAccountReferenced)

	// Soft-disable still works for referenced accounts.
	require.NoError(t, svc.Disable(ctx, acc.ID))
	postable, err := svc.IsPostable(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, postable)
}

func boolPtr(v bool) *bool { return &v }
