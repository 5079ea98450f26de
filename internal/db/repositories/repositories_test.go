package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"

	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/db"
	"infinite-experiment/edigate/internal/db/dbtest"
	gormModels "infinite-experiment/edigate/internal/models/gorm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTenant = "11111111-1111-1111-1111-111111111111"

func sftpPartner(name string) *gormModels.TradingPartner {
	return &gormModels.TradingPartner{
		TenantID:            testTenant,
		Name:                name,
		CommunicationMethod: constants.CommunicationSFTP,
		IsActive:            true,
		SFTPHost:            "sftp.example.com",
		SFTPUsername:        "edi",
		SFTPIncomingDir:     "/in",
		PollSchedule:        "*/5 * * * *",
	}
}

func TestPartnerRepo_CreateRejectsMixedConfiguration(t *testing.T) {
	repo := NewPartnerRepo(dbtest.Open(t))

	p := sftpPartner("Mixed")
	p.AS2ID = "MIXED"

	err := repo.Create(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "as2")
}

func TestPartnerRepo_ListActiveSFTPAndFindByAS2ID(t *testing.T) {
	ctx := context.Background()
	repo := NewPartnerRepo(dbtest.Open(t))

	active := sftpPartner("Active")
	require.NoError(t, repo.Create(ctx, active))
	inactive := sftpPartner("Inactive")
	require.NoError(t, repo.Create(ctx, inactive))
	require.NoError(t, repo.SetActive(ctx, testTenant, inactive.ID, false))

	as2 := &gormModels.TradingPartner{
		TenantID:            testTenant,
		Name:                "AS2 Partner",
		CommunicationMethod: constants.CommunicationAS2,
		IsActive:            true,
		AS2ID:               "PARTNER-AS2",
		AS2URL:              "https://partner.example.com/as2",
	}
	require.NoError(t, repo.Create(ctx, as2))

	partners, err := repo.ListActiveSFTP(ctx)
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, active.ID, partners[0].ID)

	found, err := repo.FindByAS2ID(ctx, "PARTNER-AS2")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, as2.ID, found.ID)

	missing, err := repo.FindByAS2ID(ctx, "NOBODY")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = repo.SetActive(ctx, testTenant, "22222222-2222-2222-2222-222222222222", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSettingsRepo_UpsertKeepsID(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepo(dbtest.Open(t))

	first := &gormModels.EdiSettings{TenantID: testTenant, AS2ID: "ME", CompanyName: "Acme"}
	require.NoError(t, repo.Upsert(ctx, first))

	second := &gormModels.EdiSettings{TenantID: testTenant, AS2ID: "ME2", CompanyName: "Acme Corp"}
	require.NoError(t, repo.Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	got, err := repo.FindByAS2ID(ctx, "ME2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme Corp", got.CompanyName)

	old, err := repo.FindByAS2ID(ctx, "ME")
	require.NoError(t, err)
	assert.Nil(t, old)
}

func TestTransactionRepo_NumbersIncreasePerTenant(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	repo := NewTransactionRepo(gdb, db.NewCounterSequencer(gdb))

	var numbers []string
	for i := 0; i < 3; i++ {
		tx := &gormModels.EdiTransaction{
			TenantID:     testTenant,
			Direction:    constants.DirectionInbound,
			DocumentType: constants.DocumentType850,
			Format:       constants.FormatX12,
		}
		require.NoError(t, repo.Create(ctx, tx))
		assert.Equal(t, constants.StatusPending, tx.Status)
		assert.NotEmpty(t, tx.ID)
		numbers = append(numbers, tx.TransactionNumber)
	}
	assert.Equal(t, []string{"EDI-00000001", "EDI-00000002", "EDI-00000003"}, numbers)

	other := &gormModels.EdiTransaction{
		TenantID:     "33333333-3333-3333-3333-333333333333",
		Direction:    constants.DirectionInbound,
		DocumentType: constants.DocumentType850,
		Format:       constants.FormatCSV,
	}
	require.NoError(t, repo.Create(ctx, other))
	assert.Equal(t, "EDI-00000001", other.TransactionNumber)
}

func TestTransactionRepo_ConcurrentCreatesStayUnique(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	repo := NewTransactionRepo(gdb, db.NewCounterSequencer(gdb))

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Create(ctx, &gormModels.EdiTransaction{
				TenantID:     testTenant,
				Direction:    constants.DirectionInbound,
				DocumentType: constants.DocumentType850,
				Format:       constants.FormatX12,
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var distinct int64
	require.NoError(t, gdb.Model(&gormModels.EdiTransaction{}).Distinct("transaction_number").Count(&distinct).Error)
	assert.Equal(t, int64(10), distinct)
}

func TestTransactionRepo_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	repo := NewTransactionRepo(gdb, db.NewCounterSequencer(gdb))

	tx := &gormModels.EdiTransaction{
		TenantID:     testTenant,
		Direction:    constants.DirectionOutbound,
		DocumentType: constants.DocumentType810,
		Format:       constants.FormatX12,
	}
	require.NoError(t, repo.Create(ctx, tx))

	require.NoError(t, repo.UpdateStatus(ctx, tx.ID, constants.StatusCompleted, ""))
	require.NoError(t, repo.UpdateStatus(ctx, tx.ID, constants.StatusFailed, "rejected by partner"))

	err := repo.UpdateStatus(ctx, tx.ID, constants.StatusCompleted, "")
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	err = repo.UpdateStatus(ctx, tx.ID, constants.StatusPending, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	err = repo.UpdateStatus(ctx, "44444444-4444-4444-4444-444444444444", constants.StatusFailed, "")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := repo.Get(ctx, testTenant, tx.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, constants.StatusFailed, got.Status)
	assert.Equal(t, "rejected by partner", got.ErrorMessage)
	assert.NotNil(t, got.ProcessedAt)
}

func TestTransactionRepo_Lookups(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	repo := NewTransactionRepo(gdb, db.NewCounterSequencer(gdb))
	partnerID := "55555555-5555-5555-5555-555555555555"

	out := &gormModels.EdiTransaction{
		TenantID:      testTenant,
		PartnerID:     partnerID,
		Direction:     constants.DirectionOutbound,
		DocumentType:  constants.DocumentType850,
		Format:        constants.FormatX12,
		MessageID:     "<abc@me>",
		ControlNumber: "42",
		Status:        constants.StatusCompleted,
	}
	require.NoError(t, repo.Create(ctx, out))
	in := &gormModels.EdiTransaction{
		TenantID:     testTenant,
		PartnerID:    partnerID,
		Direction:    constants.DirectionInbound,
		DocumentType: constants.DocumentType850,
		Format:       constants.FormatCSV,
	}
	require.NoError(t, repo.Create(ctx, in))

	byMsg, err := repo.FindByMessageID(ctx, constants.DirectionOutbound, "<abc@me>")
	require.NoError(t, err)
	require.NotNil(t, byMsg)
	assert.Equal(t, out.ID, byMsg.ID)

	byCtrl, err := repo.FindOutboundByControlNumber(ctx, testTenant, partnerID, "42")
	require.NoError(t, err)
	require.NotNil(t, byCtrl)
	assert.Equal(t, out.ID, byCtrl.ID)

	pending, err := repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, in.ID, pending[0].ID)

	listed, err := repo.List(ctx, TransactionFilter{TenantID: testTenant, Direction: constants.DirectionOutbound})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, repo.SetParsed(ctx, in.ID, constants.DocumentType810, `[{"a":"b"}]`, "7"))
	got, err := repo.Get(ctx, testTenant, in.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentType810, got.DocumentType)
	assert.Equal(t, "7", got.ControlNumber)
}

func TestFieldMappingRepo_ReplaceRulesOrdersByPosition(t *testing.T) {
	ctx := context.Background()
	repo := NewFieldMappingRepo(dbtest.Open(t))
	partnerID := "66666666-6666-6666-6666-666666666666"

	require.NoError(t, repo.ReplaceRules(ctx, testTenant, partnerID, constants.DocumentType850, []gormModels.EdiFieldMapping{
		{SourceField: "PO", TargetField: "poNumber"},
		{SourceField: "Qty", TargetField: "quantityOrdered", Transform: "number"},
	}))
	require.NoError(t, repo.ReplaceRules(ctx, testTenant, partnerID, constants.DocumentType850, []gormModels.EdiFieldMapping{
		{SourceField: "Order", TargetField: "poNumber"},
		{SourceField: "Item", TargetField: "itemNumber", Transform: "upper"},
	}))

	rules, err := repo.ListRules(ctx, partnerID, constants.DocumentType850)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "Order", rules[0].SourceField)
	assert.Equal(t, "Item", rules[1].SourceField)
	assert.Equal(t, 1, rules[1].Position)

	none, err := repo.ListRules(ctx, partnerID, constants.DocumentType810)
	require.NoError(t, err)
	assert.Empty(t, none)
}
