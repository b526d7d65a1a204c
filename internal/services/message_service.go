// message_service.go
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

	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/models"
	"gorm.io/gorm"
)

// MessageInput is one message body
type MessageInput struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// MessageService is the applicant/staff thread on an application
type MessageService struct {
	db     *gorm.DB
	kicker Kicker
}

// NewMessageService creates a MessageService. kicker may be nil.
func NewMessageService(db *gorm.DB, kicker Kicker) *MessageService {
	return &MessageService{db: db, kicker: kicker}
}

// Send appends a message. Staff messages notify the application's owner.
// Callers check that the sender may access the application.
func (s *MessageService) Send(ctx context.Context, senderID string, role auth.Role, applicationID string, in MessageInput) (*models.Message, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	msg := models.Message{
		ApplicationID: applicationID,
		SenderID:      senderID,
		SenderRole:    role.String(),
		Body:          in.Body,
	}
	notified := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.Select("id", "user_id").First(&app, "id = ?", applicationID).Error; err != nil {
			return notFound(err, "application")
		}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}

		staff := role != auth.RoleCustomer
		details := map[string]interface{}{"message_id": msg.ID, "sender_role": msg.SenderRole}
		if err := recordActivity(tx, applicationID, senderID, "message_sent", details, staff, true); err != nil {
			return err
		}

		if !staff || app.UserID == nil || *app.UserID == senderID {
			return nil
		}
		if _, err := createNotification(tx, *app.UserID, &app.ID, "message",
			"New Message", "You have a new message about your application."); err != nil {
			return err
		}
		notified = true
		return enqueue(tx, models.EventNotificationCreated, app.ID, NotificationsCreatedPayload{UserIDs: []string{*app.UserID}})
	})
	if err != nil {
		return nil, err
	}

	if notified && s.kicker != nil {
		s.kicker.Kick()
	}
	return &msg, nil
}

// Thread returns an application's messages oldest first and marks the
// messages written by the other side as read by reader.
func (s *MessageService) Thread(ctx context.Context, applicationID string, reader auth.Role) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("application_id = ?", applicationID).Order("created_at ASC").Order("id ASC").Find(&msgs).Error; err != nil {
			return fmt.Errorf("list messages: %w", err)
		}

		q := tx.Model(&models.Message{}).Where("application_id = ? AND read_at IS NULL", applicationID)
		if reader == auth.RoleCustomer {
			q = q.Where("sender_role <> ?", auth.RoleCustomer.String())
		} else {
			q = q.Where("sender_role = ?", auth.RoleCustomer.String())
		}
		return q.Update("read_at", time.Now()).Error
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
