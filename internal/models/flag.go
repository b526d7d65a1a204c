// flag.go
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

// ApplicationFlag is a severity-tagged triage annotation
type ApplicationFlag struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ApplicationID  string     `gorm:"type:char(36);not null;index" json:"application_id"`
	Severity       string     `gorm:"size:16;not null" json:"severity"`
	Reason         string     `gorm:"type:text;not null" json:"reason"`
	CreatedBy      string     `gorm:"type:char(36)" json:"created_by"`
	ResolvedAt     *time.Time `gorm:"index" json:"resolved_at,omitempty"`
	ResolvedBy     *string    `gorm:"type:char(36)" json:"resolved_by,omitempty"`
	ResolutionNote string     `gorm:"type:text" json:"resolution_note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName overrides the table name for ApplicationFlag
func (ApplicationFlag) TableName() string {
	return "application_flags"
}
