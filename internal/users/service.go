package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/apperrors"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/identifiers"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/profiles"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minPasswordLength = 6

	opServiceNew = "users.service.new"
	opSignUp     = "users.sign_up"
	opSignIn     = "users.sign_in"
	opLookup     = "users.lookup"

	codeInvalidEmail       = "invalid_email"
	codeInvalidPassword    = "invalid_password"
	codeEmailTaken         = "email_taken"
	codeInvalidCredentials = "invalid_credentials"
	codeAccountNotFound    = "account_not_found"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingHasher     = errors.New("password hasher is required")
	noOpLogger           = zap.NewNop()
)

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// ServiceConfig describes the dependencies required for account management.
type ServiceConfig struct {
	Database   *gorm.DB
	Hasher     PasswordHasher
	IDProvider identifiers.Provider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service manages accounts and the profile created alongside each one.
type Service struct {
	db         *gorm.DB
	hasher     PasswordHasher
	idProvider identifiers.Provider
	now        func() time.Time
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperrors.Remote(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Hasher == nil {
		return nil, apperrors.Remote(opServiceNew, "missing_hasher", errMissingHasher)
	}
	if cfg.IDProvider == nil {
		return nil, apperrors.Remote(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		hasher:     cfg.Hasher,
		idProvider: cfg.IDProvider,
		now:        clock,
		logger:     logger,
	}, nil
}

// SignUp creates an account and its profile in one transaction.
func (s *Service) SignUp(ctx context.Context, email, password, username string) (Account, error) {
	normalizedEmail := normalizeEmail(email)
	if normalizedEmail == "" || !strings.Contains(normalizedEmail, "@") {
		return Account{}, apperrors.Validation(codeInvalidEmail, "please enter a valid email address")
	}
	if len(password) < minPasswordLength {
		return Account{}, apperrors.Validation(codeInvalidPassword, "password must be at least 6 characters")
	}
	normalizedUsername, err := profiles.ValidateUsername(username)
	if err != nil {
		return Account{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logError(opSignUp, "hash_failed", err)
		return Account{}, apperrors.Remote(opSignUp, "hash_failed", err)
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		return Account{}, apperrors.Remote(opSignUp, "id_generation_failed", err)
	}

	now := s.now().UTC()
	account := Account{
		ID:           id,
		Email:        normalizedEmail,
		PasswordHash: hash,
		LastSeenAt:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&Account{}).Where("email = ?", normalizedEmail).Count(&existing).Error; err != nil {
			return apperrors.Remote(opSignUp, "email_check_failed", err)
		}
		if existing > 0 {
			return apperrors.Conflict(codeEmailTaken, "an account with this email already exists")
		}
		if err := tx.Create(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict(codeEmailTaken, "an account with this email already exists")
			}
			return apperrors.Remote(opSignUp, "insert_failed", err)
		}
		profile := profiles.Profile{
			ID:        id,
			Username:  normalizedUsername,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return profiles.Insert(tx, &profile)
	})
	if txErr != nil {
		if apperrors.Is(txErr, apperrors.KindRemote) {
			s.logError(opSignUp, "transaction_failed", txErr, zap.String("email", normalizedEmail))
		}
		return Account{}, txErr
	}
	return account, nil
}

// SignIn verifies the credentials and stamps the account as seen.
func (s *Service) SignIn(ctx context.Context, email, password string) (Account, error) {
	normalizedEmail := normalizeEmail(email)
	if normalizedEmail == "" || password == "" {
		return Account{}, apperrors.Unauthorized(codeInvalidCredentials)
	}

	var account Account
	err := s.db.WithContext(ctx).Where("email = ?", normalizedEmail).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, apperrors.Unauthorized(codeInvalidCredentials)
	}
	if err != nil {
		s.logError(opSignIn, "query_failed", err)
		return Account{}, apperrors.Remote(opSignIn, "query_failed", err)
	}
	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		return Account{}, apperrors.Unauthorized(codeInvalidCredentials)
	}

	seenAt := s.now().UTC()
	err = s.db.WithContext(ctx).Model(&Account{}).
		Where("id = ?", account.ID).
		Update("last_seen_at", seenAt).
		Error
	if err != nil {
		s.logger.Warn("last seen update failed", zap.String("account_id", account.ID), zap.Error(err))
	} else {
		account.LastSeenAt = seenAt
	}
	return account, nil
}

// Lookup returns the account for a validated session subject.
func (s *Service) Lookup(ctx context.Context, accountID string) (Account, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return Account{}, apperrors.NotFound(codeAccountNotFound)
	}
	var account Account
	err := s.db.WithContext(ctx).Where("id = ?", accountID).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, apperrors.NotFound(codeAccountNotFound)
	}
	if err != nil {
		s.logError(opLookup, "query_failed", err, zap.String("account_id", accountID))
		return Account{}, apperrors.Remote(opLookup, "query_failed", err)
	}
	return account, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("users service error", attrs...)
}
