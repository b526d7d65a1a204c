// settings_service.go
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
	"encoding/json"
	"fmt"
	"time"

	"github.com/localnerve/autofin/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting keys in admin_settings
const (
	SettingNotifications     = "notifications"
	SettingDocumentRetention = "document_retention"
	SettingAutoApproval      = "auto_approval"
)

// NotificationSettings toggles outbound email
type NotificationSettings struct {
	EmailOnStatusChange   bool `json:"email_on_status_change"`
	EmailOnNewApplication bool `json:"email_on_new_application"`
}

// RetentionSettings controls the document purge. Zero keeps documents forever.
type RetentionSettings struct {
	Days int `json:"days" validate:"gte=0,lte=3650"`
}

// AutoApprovalSettings pre-approves strong applications on submit
type AutoApprovalSettings struct {
	Enabled         bool    `json:"enabled"`
	MinCreditScore  int     `json:"min_credit_score" validate:"gte=0,lte=850"`
	MinAnnualIncome float64 `json:"min_annual_income" validate:"gte=0"`
}

// Qualifies reports whether app meets both thresholds
func (a AutoApprovalSettings) Qualifies(app *models.Application) bool {
	if !a.Enabled || app == nil {
		return false
	}
	return app.CreditScore >= a.MinCreditScore && app.AnnualIncome >= a.MinAnnualIncome
}

// Settings is the admin settings panel
type Settings struct {
	Notifications     NotificationSettings `json:"notifications"`
	DocumentRetention RetentionSettings    `json:"document_retention"`
	AutoApproval      AutoApprovalSettings `json:"auto_approval"`
}

// DefaultSettings applies until an admin saves the panel
func DefaultSettings() Settings {
	return Settings{
		Notifications: NotificationSettings{EmailOnStatusChange: true},
		AutoApproval: AutoApprovalSettings{
			MinCreditScore:  720,
			MinAnnualIncome: 50000,
		},
	}
}

// SettingsService persists the admin settings panel
type SettingsService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSettingsService creates a SettingsService
func NewSettingsService(db *gorm.DB, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{db: db, logger: logger}
}

// Load returns the stored settings over the defaults
func (s *SettingsService) Load(ctx context.Context) (Settings, error) {
	settings := DefaultSettings()

	var rows []models.AdminSetting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return settings, fmt.Errorf("load settings: %w", err)
	}

	for _, row := range rows {
		var target interface{}
		switch row.Key {
		case SettingNotifications:
			target = &settings.Notifications
		case SettingDocumentRetention:
			target = &settings.DocumentRetention
		case SettingAutoApproval:
			target = &settings.AutoApproval
		default:
			continue
		}
		if len(row.Value.JSON) == 0 {
			continue
		}
		if err := json.Unmarshal(row.Value.JSON, target); err != nil {
			s.logger.Warn("ignoring malformed setting", zap.String("key", row.Key), zap.Error(err))
		}
	}

	return settings, nil
}

// Save validates and stores every panel in one transaction
func (s *SettingsService) Save(ctx context.Context, actorID string, settings Settings) (Settings, error) {
	if err := Validate(settings); err != nil {
		return settings, err
	}

	now := time.Now()
	rows := []models.AdminSetting{
		{Key: SettingNotifications, Value: models.MustJSON(settings.Notifications), UpdatedBy: actorID, UpdatedAt: now},
		{Key: SettingDocumentRetention, Value: models.MustJSON(settings.DocumentRetention), UpdatedBy: actorID, UpdatedAt: now},
		{Key: SettingAutoApproval, Value: models.MustJSON(settings.AutoApproval), UpdatedBy: actorID, UpdatedAt: now},
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return settings, fmt.Errorf("save settings: %w", err)
	}

	s.logger.Info("settings saved", zap.String("actorID", actorID))
	return settings, nil
}
