package batches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mason-hale/giftledger-backend/internal/instruments"
	"github.com/mason-hale/giftledger-backend/pkg/db"
	dbtypes "github.com/mason-hale/giftledger-backend/pkg/db/types"
	"github.com/mason-hale/giftledger-backend/pkg/db/models"
	"github.com/mason-hale/giftledger-backend/pkg/enums"
	apperrors "github.com/mason-hale/giftledger-backend/pkg/errors"
	"github.com/mason-hale/giftledger-backend/pkg/logger"
	"github.com/mason-hale/giftledger-backend/pkg/pagination"
	"github.com/mason-hale/giftledger-backend/pkg/security"
)

const batchInsertAttempts = 3

// Service mints instruments in bulk. Every run produces a batch row that
// tracks how the issuance went, so a failed run is visible instead of a
// silent partial insert.
type Service interface {
	IssueGiftCards(ctx context.Context, input IssueGiftCardsInput) (*models.Batch, error)
	IssueDiscountCodes(ctx context.Context, input IssueDiscountCodesInput) (*models.Batch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	ListBatches(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]*models.Batch, error)
}

type service struct {
	client        *db.Client
	batches       Repository
	giftCards     instruments.GiftCardRepository
	discountCodes instruments.DiscountCodeRepository
	maxCount      int
	serialLength  int
	logg          *logger.Logger
}

// ServiceParams configure the batch issuance service.
type ServiceParams struct {
	Client        *db.Client
	Batches       Repository
	GiftCards     instruments.GiftCardRepository
	DiscountCodes instruments.DiscountCodeRepository
	MaxCount      int
	SerialLength  int
	Logger        *logger.Logger
}

// NewService wires a batch issuance service.
func NewService(params ServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Batches == nil {
		return nil, fmt.Errorf("batch repository required")
	}
	if params.GiftCards == nil {
		return nil, fmt.Errorf("gift card repository required")
	}
	if params.DiscountCodes == nil {
		return nil, fmt.Errorf("discount code repository required")
	}
	if params.MaxCount <= 0 {
		return nil, fmt.Errorf("max count must be positive")
	}
	if params.SerialLength <= 0 {
		return nil, fmt.Errorf("serial length must be positive")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		client:        params.Client,
		batches:       params.Batches,
		giftCards:     params.GiftCards,
		discountCodes: params.DiscountCodes,
		maxCount:      params.MaxCount,
		serialLength:  params.SerialLength,
		logg:          params.Logger,
	}, nil
}

// IssueGiftCardsInput is the template applied to every card in the batch.
type IssueGiftCardsInput struct {
	CompanyID     uuid.UUID
	Count         int
	InitialAmount decimal.Decimal
	UsageLimit    int
	ExpiryDate    *time.Time

	StoreLimited           bool
	AllowedStoreIDs        []uuid.UUID
	ItemCategoryLimited    bool
	AllowedItemCategoryIDs []uuid.UUID
}

// IssueDiscountCodesInput is the template applied to every code in the batch.
type IssueDiscountCodesInput struct {
	CompanyID uuid.UUID
	Count     int

	DiscountType           enums.DiscountType
	Percentage             decimal.Decimal
	ConstantDiscountAmount decimal.Decimal
	MaxDiscountAmount      decimal.Decimal
	MinimumBillAmount      decimal.Decimal

	UsageLimit int
	ExpiryDate *time.Time

	StoreLimited           bool
	AllowedStoreIDs        []uuid.UUID
	ItemCategoryLimited    bool
	AllowedItemCategoryIDs []uuid.UUID
}

func (s *service) IssueGiftCards(ctx context.Context, input IssueGiftCardsInput) (*models.Batch, error) {
	if input.CompanyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}
	if err := s.validateCount(input.Count); err != nil {
		return nil, err
	}
	if !input.InitialAmount.IsPositive() {
		return nil, apperrors.New(apperrors.CodeValidation, "initial amount must be positive")
	}
	if input.UsageLimit < 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "usage limit cannot be negative")
	}
	if input.StoreLimited && len(input.AllowedStoreIDs) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "store limited batch requires allowed store ids")
	}

	batch, err := s.openBatch(ctx, input.CompanyID, enums.InstrumentKindGiftCard, input.Count)
	if err != nil {
		return nil, err
	}

	issue := func(tx *gorm.DB) error {
		now := time.Now().UTC()
		cards := make([]*models.GiftCard, 0, input.Count)
		for i := 0; i < input.Count; i++ {
			serial, err := security.GenerateSerial(s.serialLength)
			if err != nil {
				return err
			}
			cards = append(cards, &models.GiftCard{
				ID:                     uuid.New(),
				SerialNumber:           serial,
				CompanyID:              input.CompanyID,
				BatchID:                &batch.ID,
				InitialAmount:          input.InitialAmount,
				Balance:                input.InitialAmount,
				UsageLimit:             input.UsageLimit,
				IsActive:               true,
				IssueDate:              now,
				ExpiryDate:             input.ExpiryDate,
				StoreLimited:           input.StoreLimited,
				AllowedStoreIDs:        dbtypes.UUIDArray(input.AllowedStoreIDs),
				ItemCategoryLimited:    input.ItemCategoryLimited,
				AllowedItemCategoryIDs: dbtypes.UUIDArray(input.AllowedItemCategoryIDs),
			})
		}
		if err := s.giftCards.WithTx(tx).CreateBatch(ctx, cards); err != nil {
			return err
		}
		return s.batches.WithTx(tx).Finish(ctx, batch.ID, input.Count, 0, enums.BatchStatusCompleted, now)
	}
	return s.runBatch(ctx, batch, "serial_number", issue)
}

func (s *service) IssueDiscountCodes(ctx context.Context, input IssueDiscountCodesInput) (*models.Batch, error) {
	if input.CompanyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}
	if err := s.validateCount(input.Count); err != nil {
		return nil, err
	}
	if !input.DiscountType.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid discount type %q", input.DiscountType))
	}
	switch input.DiscountType {
	case enums.DiscountTypePercentage:
		if !input.Percentage.IsPositive() || input.Percentage.GreaterThan(decimal.NewFromInt(100)) {
			return nil, apperrors.New(apperrors.CodeValidation, "percentage must be in (0, 100]")
		}
	case enums.DiscountTypeFixed:
		if !input.ConstantDiscountAmount.IsPositive() {
			return nil, apperrors.New(apperrors.CodeValidation, "constant discount amount must be positive")
		}
	}
	if input.UsageLimit < 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "usage limit cannot be negative")
	}
	if input.StoreLimited && len(input.AllowedStoreIDs) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "store limited batch requires allowed store ids")
	}

	batch, err := s.openBatch(ctx, input.CompanyID, enums.InstrumentKindDiscountCode, input.Count)
	if err != nil {
		return nil, err
	}

	issue := func(tx *gorm.DB) error {
		now := time.Now().UTC()
		codes := make([]*models.DiscountCode, 0, input.Count)
		for i := 0; i < input.Count; i++ {
			value, err := security.GenerateSerial(s.serialLength)
			if err != nil {
				return err
			}
			codes = append(codes, &models.DiscountCode{
				ID:                     uuid.New(),
				Code:                   value,
				CompanyID:              input.CompanyID,
				BatchID:                &batch.ID,
				DiscountType:           input.DiscountType,
				Percentage:             input.Percentage,
				ConstantDiscountAmount: input.ConstantDiscountAmount,
				MaxDiscountAmount:      input.MaxDiscountAmount,
				MinimumBillAmount:      input.MinimumBillAmount,
				UsageLimit:             input.UsageLimit,
				IsActive:               true,
				IssueDate:              now,
				ExpiryDate:             input.ExpiryDate,
				StoreLimited:           input.StoreLimited,
				AllowedStoreIDs:        dbtypes.UUIDArray(input.AllowedStoreIDs),
				ItemCategoryLimited:    input.ItemCategoryLimited,
				AllowedItemCategoryIDs: dbtypes.UUIDArray(input.AllowedItemCategoryIDs),
			})
		}
		if err := s.discountCodes.WithTx(tx).CreateBatch(ctx, codes); err != nil {
			return err
		}
		return s.batches.WithTx(tx).Finish(ctx, batch.ID, input.Count, 0, enums.BatchStatusCompleted, now)
	}
	return s.runBatch(ctx, batch, "code", issue)
}

func (s *service) GetBatch(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "batch not found")
		}
		return nil, err
	}
	return batch, nil
}

func (s *service) ListBatches(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]*models.Batch, error) {
	if companyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}
	return s.batches.ListByCompany(ctx, companyID, params)
}

func (s *service) validateCount(count int) error {
	if count <= 0 {
		return apperrors.New(apperrors.CodeValidation, "count must be positive")
	}
	if count > s.maxCount {
		return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("count exceeds maximum of %d", s.maxCount))
	}
	return nil
}

func (s *service) openBatch(ctx context.Context, companyID uuid.UUID, kind enums.InstrumentKind, count int) (*models.Batch, error) {
	batch := &models.Batch{
		ID:         uuid.New(),
		CompanyID:  companyID,
		Kind:       kind,
		TotalCount: count,
		Status:     enums.BatchStatusPending,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, err
	}
	if _, err := s.batches.MarkStatus(ctx, batch.ID, enums.BatchStatusPending, enums.BatchStatusProcessing, time.Now().UTC()); err != nil {
		return nil, err
	}
	batch.Status = enums.BatchStatusProcessing
	return batch, nil
}

// runBatch inserts the instruments and the terminal batch state in one
// transaction, retrying on generated-identifier collisions. The batch row
// itself is committed up front so a failed run stays visible as failed.
func (s *service) runBatch(ctx context.Context, batch *models.Batch, uniqueColumn string, issue func(tx *gorm.DB) error) (*models.Batch, error) {
	var lastErr error
	for attempt := 0; attempt < batchInsertAttempts; attempt++ {
		err := s.client.WithTx(ctx, issue)
		if err == nil {
			return s.batches.FindByID(ctx, batch.ID)
		}
		if db.IsUniqueViolation(err, uniqueColumn) {
			lastErr = err
			continue
		}
		s.failBatch(ctx, batch.ID, err)
		return nil, err
	}
	s.failBatch(ctx, batch.ID, lastErr)
	return nil, fmt.Errorf("generating unique identifiers for batch: %w", lastErr)
}

func (s *service) failBatch(ctx context.Context, id uuid.UUID, cause error) {
	now := time.Now().UTC()
	if err := s.batches.Finish(ctx, id, 0, 0, enums.BatchStatusFailed, now); err != nil {
		s.logg.Error(ctx, "failed to mark batch as failed", err)
		return
	}
	logCtx := s.logg.WithField(ctx, "batch_id", id.String())
	s.logg.Error(logCtx, "batch issuance failed", cause)
}
