// outbox.go
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

package models

import "time"

// OutboxStatus is the delivery state of an OutboxEvent
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// Outbox event types
const (
	EventApplicationStatusChanged = "application.status_changed"
	EventApplicationsChanged      = "applications.changed"
	EventNotificationCreated      = "notification.created"
)

// OutboxEvent is a side effect recorded in the same transaction as the
// mutation that caused it, delivered later by the outbox worker
type OutboxEvent struct {
	ID          uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	EventType   string       `gorm:"size:64;not null;index" json:"event_type"`
	AggregateID string       `gorm:"size:64;index" json:"aggregate_id"`
	Payload     JSON         `json:"payload"`
	Status      OutboxStatus `gorm:"size:16;not null;index;default:'pending'" json:"status"`
	RetryCount  int          `gorm:"not null;default:0" json:"retry_count"`
	MaxRetries  int          `gorm:"not null;default:5" json:"max_retries"`
	NextRetryAt *time.Time   `json:"next_retry_at,omitempty"`
	Error       *string      `gorm:"type:text" json:"error,omitempty"`
	ProcessedAt *time.Time   `json:"processed_at,omitempty"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TableName overrides the table name for OutboxEvent
func (OutboxEvent) TableName() string {
	return "outbox_events"
}
