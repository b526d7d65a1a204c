// activity_service.go
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

	"github.com/localnerve/autofin/internal/models"
	"gorm.io/gorm"
)

// ActivityService reads the append-only activity log
type ActivityService struct {
	db *gorm.DB
}

// NewActivityService creates an ActivityService
func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{db: db}
}

// List returns an application's activity, newest first. visibleOnly limits
// the result to entries shown to the applicant.
func (s *ActivityService) List(ctx context.Context, applicationID string, visibleOnly bool) ([]models.ActivityLog, error) {
	q := s.db.WithContext(ctx).Where("application_id = ?", applicationID)
	if visibleOnly {
		q = q.Where("is_visible_to_user = ?", true)
	}

	var entries []models.ActivityLog
	if err := q.Order("created_at DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}
