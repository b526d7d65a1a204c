// application_input.go
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
	"strings"

	"github.com/localnerve/autofin/internal/models"
)

// ApplicationInput is a financing request as submitted by an applicant
type ApplicationInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=320"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Address   string `json:"address" validate:"omitempty,max=255"`
	City      string `json:"city" validate:"omitempty,max=100"`
	State     string `json:"state" validate:"omitempty,max=64"`
	ZipCode   string `json:"zip_code" validate:"omitempty,max=16"`

	EmploymentStatus string  `json:"employment_status" validate:"omitempty,oneof=employed self_employed unemployed retired student"`
	EmployerName     string  `json:"employer_name" validate:"omitempty,max=255"`
	JobTitle         string  `json:"job_title" validate:"omitempty,max=255"`
	AnnualIncome     float64 `json:"annual_income" validate:"gte=0"`
	MonthlyIncome    float64 `json:"monthly_income" validate:"gte=0"`
	CreditScore      int     `json:"credit_score" validate:"omitempty,min=300,max=850"`

	VehicleType           string  `json:"vehicle_type" validate:"omitempty,max=64"`
	VehicleMake           string  `json:"vehicle_make" validate:"omitempty,max=64"`
	VehicleModel          string  `json:"vehicle_model" validate:"omitempty,max=64"`
	VehicleYear           int     `json:"vehicle_year" validate:"omitempty,min=1980,max=2100"`
	DownPayment           float64 `json:"down_payment" validate:"gte=0"`
	DesiredMonthlyPayment float64 `json:"desired_monthly_payment" validate:"gte=0"`
	LoanTermMonths        int     `json:"loan_term_months" validate:"omitempty,oneof=12 24 36 48 60 72 84"`

	// DealerSlug comes from a dealer's intake link
	DealerSlug string `json:"dealer_slug" validate:"omitempty,max=128"`
}

// normalize trims the identity fields so validation sees what is stored
func (in ApplicationInput) normalize() ApplicationInput {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.DealerSlug = strings.TrimSpace(in.DealerSlug)
	return in
}

func (in ApplicationInput) toModel() models.Application {
	return models.Application{
		FirstName:             strings.TrimSpace(in.FirstName),
		LastName:              strings.TrimSpace(in.LastName),
		Email:                 normalizeEmail(in.Email),
		Phone:                 strings.TrimSpace(in.Phone),
		Address:               in.Address,
		City:                  in.City,
		State:                 in.State,
		ZipCode:               in.ZipCode,
		EmploymentStatus:      in.EmploymentStatus,
		EmployerName:          in.EmployerName,
		JobTitle:              in.JobTitle,
		AnnualIncome:          in.AnnualIncome,
		MonthlyIncome:         in.MonthlyIncome,
		CreditScore:           in.CreditScore,
		VehicleType:           in.VehicleType,
		VehicleMake:           in.VehicleMake,
		VehicleModel:          in.VehicleModel,
		VehicleYear:           in.VehicleYear,
		DownPayment:           in.DownPayment,
		DesiredMonthlyPayment: in.DesiredMonthlyPayment,
		LoanTermMonths:        in.LoanTermMonths,
	}
}

// ProfileUpdate is the applicant-editable subset of an application.
// Nil fields are left unchanged.
type ProfileUpdate struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	Address   *string `json:"address" validate:"omitempty,max=255"`
	City      *string `json:"city" validate:"omitempty,max=100"`
	State     *string `json:"state" validate:"omitempty,max=64"`
	ZipCode   *string `json:"zip_code" validate:"omitempty,max=16"`

	EmploymentStatus *string  `json:"employment_status" validate:"omitempty,oneof=employed self_employed unemployed retired student"`
	EmployerName     *string  `json:"employer_name" validate:"omitempty,max=255"`
	JobTitle         *string  `json:"job_title" validate:"omitempty,max=255"`
	AnnualIncome     *float64 `json:"annual_income" validate:"omitempty,gte=0"`
	MonthlyIncome    *float64 `json:"monthly_income" validate:"omitempty,gte=0"`

	VehicleType           *string  `json:"vehicle_type" validate:"omitempty,max=64"`
	VehicleMake           *string  `json:"vehicle_make" validate:"omitempty,max=64"`
	VehicleModel          *string  `json:"vehicle_model" validate:"omitempty,max=64"`
	VehicleYear           *int     `json:"vehicle_year" validate:"omitempty,min=1980,max=2100"`
	DownPayment           *float64 `json:"down_payment" validate:"omitempty,gte=0"`
	DesiredMonthlyPayment *float64 `json:"desired_monthly_payment" validate:"omitempty,gte=0"`
	LoanTermMonths        *int     `json:"loan_term_months" validate:"omitempty,oneof=12 24 36 48 60 72 84"`
}

func (u ProfileUpdate) apply(app *models.Application) {
	setString(&app.FirstName, u.FirstName)
	setString(&app.LastName, u.LastName)
	setString(&app.Phone, u.Phone)
	setString(&app.Address, u.Address)
	setString(&app.City, u.City)
	setString(&app.State, u.State)
	setString(&app.ZipCode, u.ZipCode)
	setString(&app.EmploymentStatus, u.EmploymentStatus)
	setString(&app.EmployerName, u.EmployerName)
	setString(&app.JobTitle, u.JobTitle)
	setFloat(&app.AnnualIncome, u.AnnualIncome)
	setFloat(&app.MonthlyIncome, u.MonthlyIncome)
	setString(&app.VehicleType, u.VehicleType)
	setString(&app.VehicleMake, u.VehicleMake)
	setString(&app.VehicleModel, u.VehicleModel)
	setInt(&app.VehicleYear, u.VehicleYear)
	setFloat(&app.DownPayment, u.DownPayment)
	setFloat(&app.DesiredMonthlyPayment, u.DesiredMonthlyPayment)
	setInt(&app.LoanTermMonths, u.LoanTermMonths)
}

// AdminUpdate is the staff edit of any application field. Status goes
// through the lifecycle transition; DealerID "" unassigns.
type AdminUpdate struct {
	ProfileUpdate

	Email       *string `json:"email" validate:"omitempty,email,max=320"`
	CreditScore *int    `json:"credit_score" validate:"omitempty,min=300,max=850"`
	Status      *string `json:"status"`
	DealerID    *string `json:"dealer_id"`
	Note        string  `json:"note" validate:"omitempty,max=2000"`

	// Version is the caller's last seen version; nil skips the check
	Version *uint64 `json:"-"`
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
