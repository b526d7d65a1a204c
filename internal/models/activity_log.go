// activity_log.go
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

// ActivityLog is an append-only audit record. Action is an open vocabulary.
type ActivityLog struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ApplicationID   string    `gorm:"type:char(36);not null;index" json:"application_id"`
	ActorID         string    `gorm:"type:char(36);index" json:"actor_id"`
	Action          string    `gorm:"size:64;not null;index" json:"action"`
	Details         JSON      `json:"details"`
	IsAdminAction   bool      `gorm:"not null;default:false" json:"is_admin_action"`
	IsVisibleToUser bool      `gorm:"not null;default:false" json:"is_visible_to_user"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName overrides the table name for ActivityLog
func (ActivityLog) TableName() string {
	return "activity_logs"
}
