// notification_service.go
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

// NotificationService reads and acknowledges a user's notifications
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService creates a NotificationService
func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// List returns the newest notifications of userID
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where(map[string]interface{}{"read": false})
	}

	var items []models.Notification
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// UnreadCount counts unread notifications of userID
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where(&models.Notification{UserID: userID}).
		Where(map[string]interface{}{"read": false}).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkRead acknowledges one notification owned by userID
func (s *NotificationService) MarkRead(ctx context.Context, userID string, id uint64) (*models.Notification, error) {
	var n models.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(map[string]interface{}{"id": id, "user_id": userID}).First(&n).Error; err != nil {
			return notFound(err, "notification")
		}
		if n.Read {
			return nil
		}
		n.Read = true
		return tx.Model(&n).Update("read", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllRead acknowledges every notification of userID
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where(map[string]interface{}{"user_id": userID, "read": false}).
		Update("read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark all read: %w", res.Error)
	}
	return res.RowsAffected, nil
}
