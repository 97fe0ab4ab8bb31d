package analytics

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/apperrors"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/identifiers"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/links"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew   = "analytics.service.new"
	opRecordView   = "analytics.record_view"
	opRecordClick  = "analytics.record_click"
	opSummary      = "analytics.summary"
	maxUserAgent   = 512
	codeBadProfile = "invalid_profile"
)

type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider identifiers.Provider
	Logger     *zap.Logger
}

// Service stores and aggregates public page traffic.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider identifiers.Provider
	logger     *zap.Logger
}

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

// RecordView stores a page view unless the owner is looking at their own page
// or the visitor session already has a view on this profile.
func (s *Service) RecordView(ctx context.Context, event ViewEvent) (bool, error) {
	if strings.TrimSpace(event.ProfileID) == "" {
		return false, apperrors.Validation(codeBadProfile, "profile id is required")
	}
	if isOwner(event.ViewerID, event.ProfileID) {
		return false, nil
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		return false, apperrors.Remote(opRecordView, "id_generation_failed", err)
	}

	recorded := false
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if event.VisitorSession != "" {
			var existing int64
			err := tx.Model(&ProfileView{}).
				Where("profile_id = ? AND visitor_session = ?", event.ProfileID, event.VisitorSession).
				Count(&existing).Error
			if err != nil {
				return apperrors.Remote(opRecordView, "dedupe_query_failed", err)
			}
			if existing > 0 {
				return nil
			}
		}
		view := ProfileView{
			ID:             id,
			ProfileID:      event.ProfileID,
			VisitorSession: event.VisitorSession,
			UserAgent:      truncate(event.UserAgent, maxUserAgent),
			CreatedAt:      s.clock().UTC(),
		}
		if err := tx.Create(&view).Error; err != nil {
			return apperrors.Remote(opRecordView, "insert_failed", err)
		}
		recorded = true
		return nil
	})
	if txErr != nil {
		s.logError(opRecordView, "transaction_failed", txErr, zap.String("profile_id", event.ProfileID))
		return false, txErr
	}
	return recorded, nil
}

// RecordClick stores a link follow. The link must belong to the profile.
func (s *Service) RecordClick(ctx context.Context, event ClickEvent) (bool, error) {
	if strings.TrimSpace(event.ProfileID) == "" {
		return false, apperrors.Validation(codeBadProfile, "profile id is required")
	}
	if isOwner(event.ViewerID, event.ProfileID) {
		return false, nil
	}

	var owned int64
	err := s.db.WithContext(ctx).Model(&links.Link{}).
		Where("id = ? AND user_id = ?", event.LinkID, event.ProfileID).
		Count(&owned).Error
	if err != nil {
		s.logError(opRecordClick, "link_query_failed", err, zap.String("link_id", event.LinkID))
		return false, apperrors.Remote(opRecordClick, "link_query_failed", err)
	}
	if owned == 0 {
		return false, apperrors.NotFound("link_not_found")
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return false, apperrors.Remote(opRecordClick, "id_generation_failed", err)
	}
	click := LinkClick{
		ID:             id,
		ProfileID:      event.ProfileID,
		LinkID:         event.LinkID,
		VisitorSession: event.VisitorSession,
		UserAgent:      truncate(event.UserAgent, maxUserAgent),
		CreatedAt:      s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&click).Error; err != nil {
		s.logError(opRecordClick, "insert_failed", err, zap.String("link_id", event.LinkID))
		return false, apperrors.Remote(opRecordClick, "insert_failed", err)
	}
	return true, nil
}

type linkCount struct {
	LinkID string
	Total  int64
}

// Summary counts views and clicks for one profile.
func (s *Service) Summary(ctx context.Context, profileID string) (Summary, error) {
	summary := Summary{ClicksByLink: map[string]int64{}}
	db := s.db.WithContext(ctx)

	if err := db.Model(&ProfileView{}).Where("profile_id = ?", profileID).Count(&summary.TotalViews).Error; err != nil {
		s.logError(opSummary, "view_count_failed", err, zap.String("profile_id", profileID))
		return Summary{}, apperrors.Remote(opSummary, "view_count_failed", err)
	}

	var counts []linkCount
	err := db.Model(&LinkClick{}).
		Select("link_id, COUNT(*) AS total").
		Where("profile_id = ?", profileID).
		Group("link_id").
		Scan(&counts).Error
	if err != nil {
		s.logError(opSummary, "click_count_failed", err, zap.String("profile_id", profileID))
		return Summary{}, apperrors.Remote(opSummary, "click_count_failed", err)
	}
	for _, count := range counts {
		summary.ClicksByLink[count.LinkID] = count.Total
		summary.TotalClicks += count.Total
	}
	return summary, nil
}

func isOwner(viewerID, profileID string) bool {
	return viewerID != "" && viewerID == profileID
}

// truncate caps value at limit bytes without splitting a UTF-8 sequence.
func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
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
	logger.Error("analytics service error", attrs...)
}
