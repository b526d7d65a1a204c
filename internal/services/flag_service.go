// flag_service.go
//
// Auto loan origination service: applications, staff console and dealer portal
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of autofin.
// autofin is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// autofin is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with autofin.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/localnerve/autofin/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FlagInput raises a triage flag
type FlagInput struct {
	Severity string `json:"severity" validate:"required,oneof=low medium high critical"`
	Reason   string `json:"reason" validate:"required,max=2000"`
}

// FlagResolution closes a flag
type FlagResolution struct {
	Note string `json:"note" validate:"max=2000"`
}

// FlagFilters select flags across applications
type FlagFilters struct {
	Severity string
	OpenOnly bool
	Page     int
}

// FlagService manages severity-tagged triage flags
type FlagService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewFlagService creates a FlagService
func NewFlagService(db *gorm.DB, logger *zap.Logger) *FlagService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlagService{db: db, logger: logger}
}

// Create flags an application
func (s *FlagService) Create(ctx context.Context, actorID, applicationID string, in FlagInput) (*models.ApplicationFlag, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	flag := models.ApplicationFlag{
		ApplicationID: applicationID,
		Severity:      in.Severity,
		Reason:        in.Reason,
		CreatedBy:     actorID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.Select("id").First(&app, "id = ?", applicationID).Error; err != nil {
			return notFound(err, "application")
		}
		if err := tx.Create(&flag).Error; err != nil {
			return fmt.Errorf("create flag: %w", err)
		}
		details := map[string]interface{}{"flag_id": flag.ID, "severity": flag.Severity}
		return recordActivity(tx, applicationID, actorID, "flag_created", details, true, false)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("application flagged",
		zap.String("applicationID", applicationID),
		zap.String("severity", flag.Severity))
	return &flag, nil
}

// ListForApplication returns every flag on an application, newest first
func (s *FlagService) ListForApplication(ctx context.Context, applicationID string) ([]models.ApplicationFlag, error) {
	var flags []models.ApplicationFlag
	err := s.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		Find(&flags).Error
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}
	return flags, nil
}

// List returns one page of flags across applications
func (s *FlagService) List(ctx context.Context, f FlagFilters) (Page[models.ApplicationFlag], error) {
	page, pageSize := normalizePage(f.Page, DefaultPageSize)
	result := Page[models.ApplicationFlag]{Page: page, PageSize: pageSize}

	q := s.db.WithContext(ctx).Model(&models.ApplicationFlag{})
	switch f.Severity {
	case "":
	case "low", "medium", "high", "critical":
		q = q.Where("severity = ?", f.Severity)
	default:
		return result, invalid("severity", "must be one of: low medium high critical")
	}
	if f.OpenOnly {
		q = q.Where("resolved_at IS NULL")
	}
	q = q.Session(&gorm.Session{})

	if err := q.Count(&result.Total).Error; err != nil {
		return result, fmt.Errorf("count flags: %w", err)
	}
	if err := q.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&result.Items).Error; err != nil {
		return result, fmt.Errorf("list flags: %w", err)
	}
	return result, nil
}

// Resolve closes an open flag. Resolving twice is ErrConflict.
func (s *FlagService) Resolve(ctx context.Context, actorID string, id uint64, in FlagResolution) (*models.ApplicationFlag, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	var flag models.ApplicationFlag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&flag, "id = ?", id).Error; err != nil {
			return notFound(err, "flag")
		}
		if flag.ResolvedAt != nil {
			return fmt.Errorf("flag %d already resolved: %w", id, ErrConflict)
		}

		now := time.Now()
		flag.ResolvedAt = &now
		flag.ResolvedBy = &actorID
		flag.ResolutionNote = in.Note
		res := tx.Model(&flag).Where("resolved_at IS NULL").Updates(map[string]interface{}{
			"resolved_at":     now,
			"resolved_by":     actorID,
			"resolution_note": in.Note,
		})
		if res.Error != nil {
			return fmt.Errorf("resolve flag: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("flag %d already resolved: %w", id, ErrConflict)
		}

		details := map[string]interface{}{"flag_id": flag.ID}
		return recordActivity(tx, flag.ApplicationID, actorID, "flag_resolved", details, true, false)
	})
	if err != nil {
		return nil, err
	}
	return &flag, nil
}
