package profiles

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/apperrors"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew      = "profiles.service.new"
	opGet             = "profiles.get"
	opGetByUsername   = "profiles.get_by_username"
	opUpdate          = "profiles.update"
	opInsert          = "profiles.insert"
	opUploadAvatar    = "profiles.upload_avatar"
	opDeleteAvatar    = "profiles.delete_avatar"
	codeNotFound      = "profile_not_found"
	codeUsernameTaken = "username_taken"
)

type ServiceConfig struct {
	Database *gorm.DB
	Store    storage.ObjectStore
	Clock    func() time.Time
	Logger   *zap.Logger
}

type Service struct {
	db     *gorm.DB
	store  storage.ObjectStore
	clock  func() time.Time
	logger *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperrors.Remote(opServiceNew, "missing_database", errMissingDatabase)
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
		db:     cfg.Database,
		store:  cfg.Store,
		clock:  clock,
		logger: logger,
	}, nil
}

// Get loads the profile owned by the given account.
func (s *Service) Get(ctx context.Context, profileID string) (Profile, error) {
	if s.db == nil {
		return Profile{}, apperrors.Remote(opGet, "missing_database", errMissingDatabase)
	}
	return s.take(s.db.WithContext(ctx), opGet, "id = ?", profileID)
}

// GetByUsername resolves a public page path segment by lowercased exact match.
func (s *Service) GetByUsername(ctx context.Context, username string) (Profile, error) {
	if s.db == nil {
		return Profile{}, apperrors.Remote(opGetByUsername, "missing_database", errMissingDatabase)
	}
	normalized := strings.ToLower(strings.TrimSpace(username))
	if normalized == "" {
		return Profile{}, apperrors.NotFound(codeNotFound)
	}
	return s.take(s.db.WithContext(ctx), opGetByUsername, "username = ?", normalized)
}

func (s *Service) take(query *gorm.DB, operation, condition string, value string) (Profile, error) {
	var profile Profile
	err := query.Where(condition, value).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, apperrors.NotFound(codeNotFound)
	}
	if err != nil {
		s.logError(operation, "query_failed", err)
		return Profile{}, apperrors.Remote(operation, "query_failed", err)
	}
	return profile, nil
}

// Insert creates a profile inside the caller's transaction. Used at sign-up.
func Insert(tx *gorm.DB, profile *Profile) error {
	taken, err := usernameTaken(tx, profile.Username, profile.ID)
	if err != nil {
		return apperrors.Remote(opInsert, "username_check_failed", err)
	}
	if taken {
		return apperrors.Conflict(codeUsernameTaken, "username is already taken")
	}
	if err := tx.Create(profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict(codeUsernameTaken, "username is already taken")
		}
		return apperrors.Remote(opInsert, "insert_failed", err)
	}
	return nil
}

// Update validates and stores the owner's username, display name and bio.
func (s *Service) Update(ctx context.Context, profileID string, update Update) (Profile, error) {
	if s.db == nil {
		return Profile{}, apperrors.Remote(opUpdate, "missing_database", errMissingDatabase)
	}
	username, err := ValidateUsername(update.Username)
	if err != nil {
		return Profile{}, err
	}

	var updated Profile
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.take(tx, opUpdate, "id = ?", profileID)
		if err != nil {
			return err
		}
		if username != current.Username {
			taken, err := usernameTaken(tx, username, profileID)
			if err != nil {
				s.logError(opUpdate, "username_check_failed", err, zap.String("profile_id", profileID))
				return apperrors.Remote(opUpdate, "username_check_failed", err)
			}
			if taken {
				return apperrors.Conflict(codeUsernameTaken, "username is already taken")
			}
		}
		err = tx.Model(&Profile{}).Where("id = ?", profileID).Updates(map[string]interface{}{
			"username":     username,
			"display_name": strings.TrimSpace(update.DisplayName),
			"bio":          strings.TrimSpace(update.Bio),
			"updated_at":   s.clock().UTC(),
		}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict(codeUsernameTaken, "username is already taken")
		}
		if err != nil {
			s.logError(opUpdate, "update_failed", err, zap.String("profile_id", profileID))
			return apperrors.Remote(opUpdate, "update_failed", err)
		}
		updated, err = s.take(tx, opUpdate, "id = ?", profileID)
		return err
	})
	if txErr != nil {
		return Profile{}, txErr
	}
	return updated, nil
}

func (s *Service) setAvatarURL(ctx context.Context, operation, profileID, avatarURL string) (Profile, error) {
	err := s.db.WithContext(ctx).Model(&Profile{}).Where("id = ?", profileID).Updates(map[string]interface{}{
		"avatar_url": avatarURL,
		"updated_at": s.clock().UTC(),
	}).Error
	if err != nil {
		s.logError(operation, "update_failed", err, zap.String("profile_id", profileID))
		return Profile{}, apperrors.Remote(operation, "update_failed", err)
	}
	return s.take(s.db.WithContext(ctx), operation, "id = ?", profileID)
}

func usernameTaken(tx *gorm.DB, username, excludeID string) (bool, error) {
	var count int64
	err := tx.Model(&Profile{}).
		Where("username = ? AND id <> ?", username, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	logger := s.logger
	if logger == nil {
		logger = noOpLogger
	}
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	logger.Error("profiles service error", attrs...)
}
