// notification.go
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

// Notification is a user-facing message
type Notification struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        string    `gorm:"type:char(36);not null;index" json:"user_id"`
	ApplicationID *string   `gorm:"type:char(36);index" json:"application_id,omitempty"`
	Type          string    `gorm:"size:64;not null;default:'info'" json:"type"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Message       string    `gorm:"type:text" json:"message"`
	Read          bool      `gorm:"not null;default:false;index" json:"read"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName overrides the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}
