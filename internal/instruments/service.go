package instruments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mason-hale/giftledger-backend/pkg/db"
	dbtypes "github.com/mason-hale/giftledger-backend/pkg/db/types"
	"github.com/mason-hale/giftledger-backend/pkg/db/models"
	"github.com/mason-hale/giftledger-backend/pkg/enums"
	apperrors "github.com/mason-hale/giftledger-backend/pkg/errors"
	"github.com/mason-hale/giftledger-backend/pkg/security"
)

const serialIssueAttempts = 5

// Service exposes instrument lifecycle operations: issuance, lookup and
// administrative blocking. Balance movements live in the settlement service.
type Service interface {
	IssueGiftCard(ctx context.Context, input IssueGiftCardInput) (*models.GiftCard, error)
	IssueDiscountCode(ctx context.Context, input IssueDiscountCodeInput) (*models.DiscountCode, error)
	GetGiftCardBySerial(ctx context.Context, serial string) (*models.GiftCard, error)
	GetDiscountCodeByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	BlockGiftCard(ctx context.Context, serial string, by *uuid.UUID) (*models.GiftCard, error)
	UnblockGiftCard(ctx context.Context, serial string) (*models.GiftCard, error)
	BlockDiscountCode(ctx context.Context, code string, by *uuid.UUID) (*models.DiscountCode, error)
	UnblockDiscountCode(ctx context.Context, code string) (*models.DiscountCode, error)
}

type service struct {
	giftCards     GiftCardRepository
	discountCodes DiscountCodeRepository
	serialLength  int
}

// NewService wires an instruments service with the provided repositories.
func NewService(giftCards GiftCardRepository, discountCodes DiscountCodeRepository, serialLength int) (Service, error) {
	if giftCards == nil {
		return nil, fmt.Errorf("gift card repository required")
	}
	if discountCodes == nil {
		return nil, fmt.Errorf("discount code repository required")
	}
	if serialLength <= 0 {
		return nil, fmt.Errorf("serial length must be positive")
	}
	return &service{
		giftCards:     giftCards,
		discountCodes: discountCodes,
		serialLength:  serialLength,
	}, nil
}

// IssueGiftCardInput captures everything needed to mint one card.
type IssueGiftCardInput struct {
	CompanyID     uuid.UUID
	CustomerID    *uuid.UUID
	BatchID       *uuid.UUID
	SerialNumber  string
	InitialAmount decimal.Decimal
	UsageLimit    int
	ExpiryDate    *time.Time

	StoreLimited           bool
	AllowedStoreIDs        []uuid.UUID
	ItemCategoryLimited    bool
	AllowedItemCategoryIDs []uuid.UUID
}

// IssueDiscountCodeInput captures everything needed to mint one code.
type IssueDiscountCodeInput struct {
	CompanyID  uuid.UUID
	CustomerID *uuid.UUID
	BatchID    *uuid.UUID
	Code       string

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

// NormalizeSerial canonicalizes serial numbers before lookup or storage.
func NormalizeSerial(serial string) string {
	return strings.ToUpper(strings.TrimSpace(serial))
}

// NormalizeCode canonicalizes discount codes before lookup or storage.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) IssueGiftCard(ctx context.Context, input IssueGiftCardInput) (*models.GiftCard, error) {
	if input.CompanyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}
	if !input.InitialAmount.IsPositive() {
		return nil, apperrors.New(apperrors.CodeValidation, "initial amount must be positive")
	}
	if input.UsageLimit < 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "usage limit cannot be negative")
	}
	if input.StoreLimited && len(input.AllowedStoreIDs) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "store limited card requires allowed store ids")
	}
	if input.ItemCategoryLimited && len(input.AllowedItemCategoryIDs) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "category limited card requires allowed category ids")
	}

	now := time.Now().UTC()
	card := &models.GiftCard{
		ID:                     uuid.New(),
		CompanyID:              input.CompanyID,
		CustomerID:             input.CustomerID,
		BatchID:                input.BatchID,
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
	}

	if serial := NormalizeSerial(input.SerialNumber); serial != "" {
		card.SerialNumber = serial
		if err := s.giftCards.Create(ctx, card); err != nil {
			if db.IsUniqueViolation(err, "serial_number") {
				return nil, apperrors.New(apperrors.CodeConflict, "serial number already issued")
			}
			return nil, err
		}
		return card, nil
	}

	// Generated serials can collide; retry a few times before giving up.
	var lastErr error
	for attempt := 0; attempt < serialIssueAttempts; attempt++ {
		serial, err := security.GenerateSerial(s.serialLength)
		if err != nil {
			return nil, err
		}
		card.SerialNumber = serial
		if err := s.giftCards.Create(ctx, card); err != nil {
			if db.IsUniqueViolation(err, "serial_number") {
				lastErr = err
				continue
			}
			return nil, err
		}
		return card, nil
	}
	return nil, fmt.Errorf("generating unique serial: %w", lastErr)
}

func (s *service) IssueDiscountCode(ctx context.Context, input IssueDiscountCodeInput) (*models.DiscountCode, error) {
	if input.CompanyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
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
		return nil, apperrors.New(apperrors.CodeValidation, "store limited code requires allowed store ids")
	}
	if input.ItemCategoryLimited && len(input.AllowedItemCategoryIDs) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "category limited code requires allowed category ids")
	}

	now := time.Now().UTC()
	code := &models.DiscountCode{
		ID:                     uuid.New(),
		CompanyID:              input.CompanyID,
		CustomerID:             input.CustomerID,
		BatchID:                input.BatchID,
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
	}

	if value := NormalizeCode(input.Code); value != "" {
		code.Code = value
		if err := s.discountCodes.Create(ctx, code); err != nil {
			if db.IsUniqueViolation(err, "code") {
				return nil, apperrors.New(apperrors.CodeConflict, "discount code already issued")
			}
			return nil, err
		}
		return code, nil
	}

	var lastErr error
	for attempt := 0; attempt < serialIssueAttempts; attempt++ {
		value, err := security.GenerateSerial(s.serialLength)
		if err != nil {
			return nil, err
		}
		code.Code = value
		if err := s.discountCodes.Create(ctx, code); err != nil {
			if db.IsUniqueViolation(err, "code") {
				lastErr = err
				continue
			}
			return nil, err
		}
		return code, nil
	}
	return nil, fmt.Errorf("generating unique code: %w", lastErr)
}

func (s *service) GetGiftCardBySerial(ctx context.Context, serial string) (*models.GiftCard, error) {
	normalized := NormalizeSerial(serial)
	if normalized == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "serial number is required")
	}
	card, err := s.giftCards.FindBySerial(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Domain(apperrors.CodeNotFound, enums.ErrorCodeGiftCardNotFound, "gift card not found")
		}
		return nil, err
	}
	return card, nil
}

func (s *service) GetDiscountCodeByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "discount code is required")
	}
	found, err := s.discountCodes.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Domain(apperrors.CodeNotFound, enums.ErrorCodeDiscountCodeNotFound, "discount code not found")
		}
		return nil, err
	}
	return found, nil
}

func (s *service) BlockGiftCard(ctx context.Context, serial string, by *uuid.UUID) (*models.GiftCard, error) {
	return s.setGiftCardBlocked(ctx, serial, true, by)
}

func (s *service) UnblockGiftCard(ctx context.Context, serial string) (*models.GiftCard, error) {
	return s.setGiftCardBlocked(ctx, serial, false, nil)
}

func (s *service) setGiftCardBlocked(ctx context.Context, serial string, blocked bool, by *uuid.UUID) (*models.GiftCard, error) {
	card, err := s.GetGiftCardBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	updated, err := s.giftCards.SetBlocked(ctx, card.ID, blocked, by, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !updated {
		state := "unblocked"
		if blocked {
			state = "blocked"
		}
		return nil, apperrors.New(apperrors.CodeStateConflict, fmt.Sprintf("gift card already %s", state))
	}
	return s.giftCards.FindByID(ctx, card.ID)
}

func (s *service) BlockDiscountCode(ctx context.Context, code string, by *uuid.UUID) (*models.DiscountCode, error) {
	return s.setDiscountCodeBlocked(ctx, code, true, by)
}

func (s *service) UnblockDiscountCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	return s.setDiscountCodeBlocked(ctx, code, false, nil)
}

func (s *service) setDiscountCodeBlocked(ctx context.Context, code string, blocked bool, by *uuid.UUID) (*models.DiscountCode, error) {
	found, err := s.GetDiscountCodeByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	updated, err := s.discountCodes.SetBlocked(ctx, found.ID, blocked, by, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !updated {
		state := "unblocked"
		if blocked {
			state = "blocked"
		}
		return nil, apperrors.New(apperrors.CodeStateConflict, fmt.Sprintf("discount code already %s", state))
	}
	return s.discountCodes.FindByID(ctx, found.ID)
}
