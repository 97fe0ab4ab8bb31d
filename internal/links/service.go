package links

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/apperrors"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/identifiers"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew   = "links.service.new"
	opLoadOrdered  = "links.load_ordered"
	opLoadActive   = "links.load_active"
	opFindActive   = "links.find_active"
	opAppend       = "links.append"
	opUpdate       = "links.update"
	opRemove       = "links.remove"
	opMove         = "links.move"
	codeNotFound   = "link_not_found"
	codeOwnerEmpty = "invalid_owner"
)

type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider identifiers.Provider
	Logger     *zap.Logger
}

// Service owns a user's ordered link list. Append and Move are serialised per
// owner so position arithmetic never interleaves inside one process.
// Owners share a fixed set of lock stripes, so memory stays bounded no matter
// how many owners write.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider identifiers.Provider
	logger     *zap.Logger
	ownerLocks [ownerLockStripes]sync.Mutex
}

const ownerLockStripes = 64

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperrors.Remote(opServiceNew, "missing_database", errMissingDatabase)
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
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// LoadOrdered returns every link of the owner, active or not, by ascending position.
func (s *Service) LoadOrdered(ctx context.Context, ownerID string) ([]Link, error) {
	return s.load(ctx, opLoadOrdered, ownerID, false)
}

// LoadActive returns only the links visible on the public page.
func (s *Service) LoadActive(ctx context.Context, ownerID string) ([]Link, error) {
	return s.load(ctx, opLoadActive, ownerID, true)
}

func (s *Service) load(ctx context.Context, operation, ownerID string, activeOnly bool) ([]Link, error) {
	if s.db == nil {
		return nil, apperrors.Remote(operation, "missing_database", errMissingDatabase)
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.Validation(codeOwnerEmpty, "owner id is required")
	}
	query := s.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var ordered []Link
	if err := query.Order("position ASC").Order("created_at ASC").Find(&ordered).Error; err != nil {
		s.logError(operation, "query_failed", err, zap.String("user_id", ownerID))
		return nil, apperrors.Remote(operation, "query_failed", err)
	}
	return ordered, nil
}

// FindActive returns one active link by id regardless of owner, for click tracking.
func (s *Service) FindActive(ctx context.Context, linkID string) (Link, error) {
	if s.db == nil {
		return Link{}, apperrors.Remote(opFindActive, "missing_database", errMissingDatabase)
	}
	var link Link
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", strings.TrimSpace(linkID), true).
		Take(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Link{}, apperrors.NotFound(codeNotFound)
	}
	if err != nil {
		s.logError(opFindActive, "query_failed", err, zap.String("link_id", linkID))
		return Link{}, apperrors.Remote(opFindActive, "query_failed", err)
	}
	return link, nil
}

// Append adds a link at the end of the owner's list.
func (s *Service) Append(ctx context.Context, ownerID, title, rawURL, platform string) (Link, error) {
	if s.db == nil {
		return Link{}, apperrors.Remote(opAppend, "missing_database", errMissingDatabase)
	}
	if strings.TrimSpace(ownerID) == "" {
		return Link{}, apperrors.Validation(codeOwnerEmpty, "owner id is required")
	}
	trimmedTitle := strings.TrimSpace(title)
	if trimmedTitle == "" {
		return Link{}, apperrors.Validation("invalid_title", "title is required")
	}
	normalizedURL := NormalizeURL(rawURL)
	if normalizedURL == "" {
		return Link{}, apperrors.Validation("invalid_url", "url is required")
	}

	linkID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opAppend, "id_generation_failed", err, zap.String("user_id", ownerID))
		return Link{}, apperrors.Remote(opAppend, "id_generation_failed", err)
	}

	unlock := s.lockOwner(ownerID)
	defer unlock()

	now := s.clock().UTC()
	link := Link{
		ID:        linkID,
		UserID:    ownerID,
		Title:     trimmedTitle,
		URL:       normalizedURL,
		Platform:  resolvePlatform(platform, normalizedURL),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPosition int
		row := tx.Model(&Link{}).
			Where("user_id = ?", ownerID).
			Select("COALESCE(MAX(position), -1)").
			Row()
		if err := row.Scan(&maxPosition); err != nil {
			s.logError(opAppend, "max_position_failed", err, zap.String("user_id", ownerID))
			return apperrors.Remote(opAppend, "max_position_failed", err)
		}
		link.Position = maxPosition + 1
		if err := tx.Create(&link).Error; err != nil {
			s.logError(opAppend, "insert_failed", err, zap.String("user_id", ownerID))
			return apperrors.Remote(opAppend, "insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Link{}, txErr
	}
	return link, nil
}

// Update applies a partial patch to one of the owner's links.
func (s *Service) Update(ctx context.Context, ownerID, linkID string, patch Patch) (Link, error) {
	if s.db == nil {
		return Link{}, apperrors.Remote(opUpdate, "missing_database", errMissingDatabase)
	}
	updates := map[string]interface{}{}
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if trimmed == "" {
			return Link{}, apperrors.Validation("invalid_title", "title is required")
		}
		updates["title"] = trimmed
	}
	if patch.URL != nil {
		normalized := NormalizeURL(*patch.URL)
		if normalized == "" {
			return Link{}, apperrors.Validation("invalid_url", "url is required")
		}
		updates["url"] = normalized
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}
	if patch.Platform != nil {
		updates["platform"] = string(ParsePlatform(*patch.Platform))
	}

	var updated Link
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND user_id = ?", linkID, ownerID).Take(&updated).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound(codeNotFound)
		}
		if err != nil {
			s.logError(opUpdate, "select_failed", err, zap.String("user_id", ownerID), zap.String("link_id", linkID))
			return apperrors.Remote(opUpdate, "select_failed", err)
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = s.clock().UTC()
		if err := tx.Model(&Link{}).
			Where("id = ? AND user_id = ?", linkID, ownerID).
			Updates(updates).Error; err != nil {
			s.logError(opUpdate, "update_failed", err, zap.String("user_id", ownerID), zap.String("link_id", linkID))
			return apperrors.Remote(opUpdate, "update_failed", err)
		}
		if err := tx.Where("id = ? AND user_id = ?", linkID, ownerID).Take(&updated).Error; err != nil {
			return apperrors.Remote(opUpdate, "reload_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Link{}, txErr
	}
	return updated, nil
}

// Remove deletes one link. Remaining positions keep their gaps until the next move.
func (s *Service) Remove(ctx context.Context, ownerID, linkID string) error {
	if s.db == nil {
		return apperrors.Remote(opRemove, "missing_database", errMissingDatabase)
	}
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", linkID, ownerID).
		Delete(&Link{})
	if result.Error != nil {
		s.logError(opRemove, "delete_failed", result.Error, zap.String("user_id", ownerID), zap.String("link_id", linkID))
		return apperrors.Remote(opRemove, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound(codeNotFound)
	}
	return nil
}

// Move swaps the entry at index with its neighbour in direction and rewrites
// position = index for every entry of currentOrder in one transaction.
// Moving the first entry up or the last entry down is a no-op.
func (s *Service) Move(ctx context.Context, ownerID string, currentOrder []Link, index int, direction Direction) error {
	unlock := s.lockOwner(ownerID)
	defer unlock()
	return s.move(ctx, ownerID, currentOrder, index, direction)
}

// MoveAt loads the owner's current order under the owner lock and then moves.
func (s *Service) MoveAt(ctx context.Context, ownerID string, index int, direction Direction) error {
	unlock := s.lockOwner(ownerID)
	defer unlock()
	currentOrder, err := s.LoadOrdered(ctx, ownerID)
	if err != nil {
		return err
	}
	return s.move(ctx, ownerID, currentOrder, index, direction)
}

func (s *Service) move(ctx context.Context, ownerID string, currentOrder []Link, index int, direction Direction) error {
	if s.db == nil {
		return apperrors.Remote(opMove, "missing_database", errMissingDatabase)
	}
	if direction != DirectionUp && direction != DirectionDown {
		return apperrors.Validation("invalid_direction", "direction must be up or down")
	}
	if index < 0 || index >= len(currentOrder) {
		return apperrors.Validation("invalid_index", "index is outside the link list")
	}
	if (direction == DirectionUp && index == 0) || (direction == DirectionDown && index == len(currentOrder)-1) {
		return nil
	}

	neighbour := index + 1
	if direction == DirectionUp {
		neighbour = index - 1
	}
	reordered := append([]Link(nil), currentOrder...)
	reordered[index], reordered[neighbour] = reordered[neighbour], reordered[index]

	now := s.clock().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for position, link := range reordered {
			result := tx.Model(&Link{}).
				Where("id = ? AND user_id = ?", link.ID, ownerID).
				Updates(map[string]interface{}{"position": position, "updated_at": now})
			if result.Error != nil {
				s.logError(opMove, "update_failed", result.Error,
					zap.String("user_id", ownerID),
					zap.String("link_id", link.ID))
				return apperrors.Remote(opMove, "update_failed", result.Error)
			}
			if result.RowsAffected == 0 {
				return apperrors.NotFound(codeNotFound)
			}
		}
		return nil
	})
}

// lockOwner must not be nested: two owners may share a stripe.
func (s *Service) lockOwner(ownerID string) func() {
	mutex := &s.ownerLocks[ownerLockStripe(ownerID)]
	mutex.Lock()
	return mutex.Unlock
}

func ownerLockStripe(ownerID string) int {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(ownerID))
	return int(hasher.Sum32() % ownerLockStripes)
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
	logger.Error("links service error", attrs...)
}
