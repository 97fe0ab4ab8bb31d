package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/links"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/profiles"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationLowercaseUsernames   = "2026-10-01_lowercase_usernames"
	migrationCompactLinkPositions = "2026-10-01_compact_link_positions"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationLowercaseUsernames, apply: lowercaseUsernames},
		{name: migrationCompactLinkPositions, apply: compactLinkPositions},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx); err != nil {
				return err
			}
			appliedAt := time.Now().UTC().Unix()
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error
		})
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// lowercaseUsernames brings rows written before usernames were normalised in
// line with the case-insensitive public lookup.
func lowercaseUsernames(db *gorm.DB) error {
	return db.Model(&profiles.Profile{}).
		Where("username <> LOWER(username)").
		Update("username", gorm.Expr("LOWER(username)")).Error
}

// compactLinkPositions rewrites each owner's positions to 0..n-1, keeping order.
func compactLinkPositions(db *gorm.DB) error {
	var rows []links.Link
	if err := db.Order("user_id ASC").Order("position ASC").Order("created_at ASC").Find(&rows).Error; err != nil {
		return err
	}
	owner := ""
	next := 0
	for _, row := range rows {
		if row.UserID != owner {
			owner = row.UserID
			next = 0
		}
		if row.Position != next {
			if err := db.Model(&links.Link{}).Where("id = ?", row.ID).Update("position", next).Error; err != nil {
				return err
			}
		}
		next++
	}
	return nil
}
