// account_service.go
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
	"errors"
	"fmt"
	"time"

	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/metrics"
	"github.com/localnerve/autofin/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountService stores the identity metadata carrying role claims.
// It implements auth.MetadataStore.
type AccountService struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ auth.MetadataStore = (*AccountService)(nil)

// NewAccountService creates an AccountService
func NewAccountService(db *gorm.DB, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{db: db, logger: logger}
}

// GetRole implements auth.MetadataStore
func (s *AccountService) GetRole(ctx context.Context, userID string) (string, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Select("role").First(&account, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get role: %w", err)
	}
	return account.Role, nil
}

// SetRole implements auth.MetadataStore
func (s *AccountService) SetRole(ctx context.Context, userID, email string, role auth.Role) error {
	err := upsertAccount(s.db.WithContext(ctx), userID, email, role)
	metrics.RoleAssignments.WithLabelValues(role.String(), metrics.Result(err)).Inc()
	return err
}

func upsertAccount(tx *gorm.DB, userID, email string, role auth.Role) error {
	account := models.Account{UserID: userID, Email: email, Role: string(role)}
	updates := []string{"role", "updated_at"}
	if email != "" {
		updates = append(updates, "email")
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&account).Error
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

// UpdateRole is the privileged role change. actorID is recorded in logs.
func (s *AccountService) UpdateRole(ctx context.Context, actorID, userID, role string) (*models.Account, error) {
	r, ok := auth.ParseRole(role)
	if !ok {
		return nil, invalid("role", "must be one of: customer dealer super_admin")
	}
	if userID == "" {
		return nil, invalid("user_id", "is required")
	}

	var account models.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&account, "user_id = ?", userID).Error; err != nil {
			return notFound(err, "account")
		}
		if err := upsertAccount(tx, userID, account.Email, r); err != nil {
			return err
		}
		account.Role = string(r)
		account.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("role updated",
		zap.String("actorID", actorID),
		zap.String("userID", userID),
		zap.String("role", role))

	return &account, nil
}

// List returns one page of accounts, newest first, optionally filtered by role
func (s *AccountService) List(ctx context.Context, role string, page, pageSize int) (Page[models.Account], error) {
	page, pageSize = normalizePage(page, pageSize)
	result := Page[models.Account]{Page: page, PageSize: pageSize}

	q := s.db.WithContext(ctx).Model(&models.Account{})
	if role != "" {
		if _, ok := auth.ParseRole(role); !ok {
			return result, invalid("role", "must be one of: customer dealer super_admin")
		}
		q = q.Where("role = ?", role)
	}
	q = q.Session(&gorm.Session{})

	if err := q.Count(&result.Total).Error; err != nil {
		return result, fmt.Errorf("count accounts: %w", err)
	}
	if err := q.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&result.Items).Error; err != nil {
		return result, fmt.Errorf("list accounts: %w", err)
	}
	return result, nil
}
