// application_search.go
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
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/autofin/internal/lifecycle"
	"github.com/localnerve/autofin/internal/models"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// SearchFilters are the admin list filters. All set filters are AND-ed.
type SearchFilters struct {
	Query            string
	Status           string
	EmploymentStatus string
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
	MinCreditScore   *int
	MaxCreditScore   *int
	Page             int
}

// isCanonicalUUID accepts only the 36 character hyphenated form
func isCanonicalUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Search returns one page of applications matching f, newest first.
// Free text matches names, email and phone case-insensitively; text that
// is a canonical UUID also matches the application id.
func (s *ApplicationService) Search(ctx context.Context, f SearchFilters) (Page[models.Application], error) {
	page, pageSize := normalizePage(f.Page, s.pageSize)
	result := Page[models.Application]{Page: page, PageSize: pageSize}

	q := s.db.WithContext(ctx).Model(&models.Application{}).
		Clauses(hints.Comment("select", "admin_application_search"))
	if s.db.Dialector.Name() == "mysql" {
		q = q.Clauses(hints.UseIndex("idx_applications_created_at").ForOrderBy())
	}

	if text := strings.TrimSpace(f.Query); text != "" {
		like := "%" + strings.ToLower(text) + "%"
		clause := "LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone) LIKE ?"
		args := []interface{}{like, like, like, like}
		if isCanonicalUUID(text) {
			clause += " OR id = ?"
			args = append(args, strings.ToLower(text))
		}
		q = q.Where("("+clause+")", args...)
	}

	if f.Status != "" {
		st, err := lifecycle.ParseStatus(f.Status)
		if err != nil {
			return result, invalid("status", err.Error())
		}
		q = q.Where("status = ?", string(st))
	}
	if f.EmploymentStatus != "" {
		q = q.Where("employment_status = ?", f.EmploymentStatus)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at <= ?", *f.CreatedTo)
	}
	if f.MinCreditScore != nil {
		q = q.Where("credit_score >= ?", *f.MinCreditScore)
	}
	if f.MaxCreditScore != nil {
		q = q.Where("credit_score <= ?", *f.MaxCreditScore)
	}
	if f.MinCreditScore != nil && f.MaxCreditScore != nil && *f.MinCreditScore > *f.MaxCreditScore {
		return result, invalid("credit_score", "minimum exceeds maximum")
	}

	q = q.Session(&gorm.Session{})

	if err := q.Count(&result.Total).Error; err != nil {
		return result, fmt.Errorf("count applications: %w", err)
	}
	if err := q.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&result.Items).Error; err != nil {
		return result, fmt.Errorf("search applications: %w", err)
	}
	return result, nil
}

// All returns every application, oldest first. Diagnostic listing only.
func (s *ApplicationService) All(ctx context.Context) ([]models.Application, error) {
	var apps []models.Application
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("list all applications: %w", err)
	}
	return apps, nil
}
