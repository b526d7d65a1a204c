// application.go
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

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Application is a single customer's auto-loan financing request
type Application struct {
	ID string `gorm:"type:char(36);primaryKey" json:"id"`

	// Contact and address
	FirstName string `gorm:"size:100;not null" json:"first_name"`
	LastName  string `gorm:"size:100;not null" json:"last_name"`
	Email     string `gorm:"size:320;not null;index" json:"email"`
	Phone     string `gorm:"size:32" json:"phone"`
	Address   string `gorm:"size:255" json:"address"`
	City      string `gorm:"size:100" json:"city"`
	State     string `gorm:"size:64" json:"state"`
	ZipCode   string `gorm:"size:16" json:"zip_code"`

	// Employment, income and credit
	EmploymentStatus string  `gorm:"size:32;index" json:"employment_status"`
	EmployerName     string  `gorm:"size:255" json:"employer_name"`
	JobTitle         string  `gorm:"size:255" json:"job_title"`
	AnnualIncome     float64 `json:"annual_income"`
	MonthlyIncome    float64 `json:"monthly_income"`
	CreditScore      int     `gorm:"index" json:"credit_score"`

	// Vehicle and payment preferences
	VehicleType           string  `gorm:"size:64" json:"vehicle_type"`
	VehicleMake           string  `gorm:"size:64" json:"vehicle_make"`
	VehicleModel          string  `gorm:"size:64" json:"vehicle_model"`
	VehicleYear           int     `json:"vehicle_year"`
	DownPayment           float64 `json:"down_payment"`
	DesiredMonthlyPayment float64 `json:"desired_monthly_payment"`
	LoanTermMonths        int     `json:"loan_term_months"`

	// Lifecycle
	Status       string `gorm:"size:32;not null;index;default:'submitted'" json:"status"`
	CurrentStage int    `gorm:"not null;default:1" json:"current_stage"`
	Version      uint64 `gorm:"not null;default:0" json:"version"`

	DealerID *string `gorm:"type:char(36);index" json:"dealer_id,omitempty"`
	UserID   *string `gorm:"type:char(36);index" json:"user_id,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID identity when none was provided
func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// TableName overrides the table name for Application
func (Application) TableName() string {
	return "applications"
}
