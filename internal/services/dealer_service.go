// dealer_service.go
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
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DealerInput creates a dealer: the identity is promoted to the dealer role
// and given a profile
type DealerInput struct {
	UserID         string `json:"user_id" validate:"required,max=36"`
	Email          string `json:"email" validate:"omitempty,email,max=320"`
	DealershipName string `json:"dealership_name" validate:"required,max=255"`
	ContactEmail   string `json:"contact_email" validate:"omitempty,email,max=320"`
	ContactPhone   string `json:"contact_phone" validate:"omitempty,max=32"`
	Slug           string `json:"slug" validate:"omitempty,max=128"`
}

// DealerService manages dealer profiles and intake links
type DealerService struct {
	db        *gorm.DB
	publicURL string
	logger    *zap.Logger
}

// NewDealerService creates a DealerService
func NewDealerService(db *gorm.DB, publicURL string, logger *zap.Logger) *DealerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DealerService{db: db, publicURL: strings.TrimSuffix(publicURL, "/"), logger: logger}
}

// Slugify lowercases s and joins its alphanumeric runs with '-'
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Create promotes in.UserID to dealer and creates its profile in one
// transaction. An explicit slug must be free; a derived slug gets a
// numeric suffix until it is.
func (s *DealerService) Create(ctx context.Context, actorID string, in DealerInput) (*models.DealerProfile, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	explicit := in.Slug != ""
	base := Slugify(in.Slug)
	if !explicit {
		base = Slugify(in.DealershipName)
	}
	if base == "" {
		return nil, invalid("slug", "must contain letters or digits")
	}

	profile := models.DealerProfile{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		DealershipName: strings.TrimSpace(in.DealershipName),
		ContactEmail:   normalizeEmail(in.ContactEmail),
		ContactPhone:   strings.TrimSpace(in.ContactPhone),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.DealerProfile{}).Where("user_id = ?", in.UserID).Count(&existing).Error; err != nil {
			return fmt.Errorf("check dealer: %w", err)
		}
		if existing > 0 {
			return fmt.Errorf("user %s already has a dealer profile: %w", in.UserID, ErrConflict)
		}

		slug, err := freeSlug(tx, base, explicit)
		if err != nil {
			return err
		}
		profile.Slug = slug

		if err := upsertAccount(tx, in.UserID, normalizeEmail(in.Email), auth.RoleDealer); err != nil {
			return err
		}
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("create dealer profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("dealer created",
		zap.String("actorID", actorID),
		zap.String("userID", in.UserID),
		zap.String("slug", profile.Slug))
	return &profile, nil
}

func freeSlug(tx *gorm.DB, base string, explicit bool) (string, error) {
	for i := 1; i <= 100; i++ {
		slug := base
		if i > 1 {
			slug = fmt.Sprintf("%s-%d", base, i)
		}

		var n int64
		if err := tx.Model(&models.DealerProfile{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if n == 0 {
			return slug, nil
		}
		if explicit {
			return "", fmt.Errorf("slug %q is taken: %w", slug, ErrConflict)
		}
	}
	return "", fmt.Errorf("no free slug for %q: %w", base, ErrConflict)
}

// GetByUser returns the profile of a dealer identity
func (s *DealerService) GetByUser(ctx context.Context, userID string) (*models.DealerProfile, error) {
	var profile models.DealerProfile
	if err := s.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, "dealer profile")
	}
	return &profile, nil
}

// GetBySlug resolves an intake link slug
func (s *DealerService) GetBySlug(ctx context.Context, slug string) (*models.DealerProfile, error) {
	var profile models.DealerProfile
	err := s.db.WithContext(ctx).First(&profile, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("dealer %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get dealer: %w", err)
	}
	return &profile, nil
}

// IntakeLink is the shareable application link of a dealer
func (s *DealerService) IntakeLink(profile *models.DealerProfile) string {
	return s.publicURL + "/apply?dealer=" + url.QueryEscape(profile.Slug)
}
