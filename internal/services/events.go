// events.go
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
	"fmt"

	"github.com/localnerve/autofin/internal/models"
	"gorm.io/gorm"
)

// StatusChangedPayload is the outbox payload of a status transition
type StatusChangedPayload struct {
	ApplicationID string  `json:"application_id"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	Stage         int     `json:"stage"`
	Mode          string  `json:"mode"`
	UserID        *string `json:"user_id,omitempty"`
	DealerID      *string `json:"dealer_id,omitempty"`
	Email         string  `json:"email"`
	FirstName     string  `json:"first_name"`
}

// ApplicationsChangedPayload reports inserted, updated or deleted applications
type ApplicationsChangedPayload struct {
	Op        string   `json:"op"`
	IDs       []string `json:"ids"`
	UserIDs   []string `json:"user_ids,omitempty"`
	DealerIDs []string `json:"dealer_ids,omitempty"`

	// Email and FirstName are set on insert for the confirmation email
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// NotificationsCreatedPayload reports users with new notifications
type NotificationsCreatedPayload struct {
	UserIDs []string `json:"user_ids"`
}

// enqueue records an outbox event inside tx
func enqueue(tx *gorm.DB, eventType, aggregateID string, payload interface{}) error {
	body, err := models.NewJSON(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	event := models.OutboxEvent{
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     body,
		Status:      models.OutboxStatusPending,
		MaxRetries:  5,
	}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("enqueue %s: %w", eventType, err)
	}
	return nil
}

// recordActivity appends an activity log row inside tx
func recordActivity(tx *gorm.DB, applicationID, actorID, action string, details map[string]interface{}, admin, visible bool) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	body, err := models.NewJSON(details)
	if err != nil {
		return fmt.Errorf("marshal activity details: %w", err)
	}
	entry := models.ActivityLog{
		ApplicationID:   applicationID,
		ActorID:         actorID,
		Action:          action,
		Details:         body,
		IsAdminAction:   admin,
		IsVisibleToUser: visible,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("record activity %s: %w", action, err)
	}
	return nil
}

// createNotification inserts a notification inside tx
func createNotification(tx *gorm.DB, userID string, applicationID *string, kind, title, message string) (*models.Notification, error) {
	n := models.Notification{
		UserID:        userID,
		ApplicationID: applicationID,
		Type:          kind,
		Title:         title,
		Message:       message,
	}
	if err := tx.Create(&n).Error; err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return &n, nil
}

// Kicker wakes the outbox worker after a commit
type Kicker interface {
	Kick()
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func strPtr(s string) *string {
	return &s
}
