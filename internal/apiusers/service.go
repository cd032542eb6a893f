package apiusers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mason-hale/giftledger-backend/pkg/config"
	"github.com/mason-hale/giftledger-backend/pkg/db/models"
	apperrors "github.com/mason-hale/giftledger-backend/pkg/errors"
	"github.com/mason-hale/giftledger-backend/pkg/security"
)

// Credentials carries a freshly minted API key. The secret is only
// available here; the store keeps just the Argon2id hash.
type Credentials struct {
	User   *models.APIUser
	APIKey string
}

// Service provisions and verifies merchant API identities.
type Service interface {
	Provision(ctx context.Context, companyID uuid.UUID, name string) (*Credentials, error)
	Verify(ctx context.Context, id uuid.UUID, secret string) (*models.APIUser, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	cfg  config.APIKeyConfig
}

func NewService(repo Repository, cfg config.APIKeyConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("api user repository required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) Provision(ctx context.Context, companyID uuid.UUID, name string) (*Credentials, error) {
	if companyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "name is required")
	}

	secret, err := security.GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	hash, err := security.HashAPIKey(secret, s.cfg)
	if err != nil {
		return nil, err
	}

	user := &models.APIUser{
		ID:        uuid.New(),
		CompanyID: companyID,
		Name:      name,
		KeyHash:   hash,
		IsActive:  true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return &Credentials{User: user, APIKey: secret}, nil
}

// Verify checks the presented secret against the stored hash. Inactive
// identities fail verification regardless of the secret.
func (s *service) Verify(ctx context.Context, id uuid.UUID, secret string) (*models.APIUser, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
	}
	ok, err := security.VerifyAPIKey(secret, user.KeyHash)
	if err != nil || !ok {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
	}
	return user, nil
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	updated, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return err
	}
	if !updated {
		return apperrors.New(apperrors.CodeStateConflict, "api user already inactive")
	}
	return nil
}
