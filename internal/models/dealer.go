// dealer.go
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

// DealerProfile belongs to one dealer identity. Slug builds the shareable
// intake link.
type DealerProfile struct {
	ID             string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID         string    `gorm:"type:char(36);not null;uniqueIndex" json:"user_id"`
	DealershipName string    `gorm:"size:255;not null" json:"dealership_name"`
	ContactEmail   string    `gorm:"size:320" json:"contact_email"`
	ContactPhone   string    `gorm:"size:32" json:"contact_phone"`
	Slug           string    `gorm:"size:128;not null;uniqueIndex" json:"slug"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName overrides the table name for DealerProfile
func (DealerProfile) TableName() string {
	return "dealer_profiles"
}
