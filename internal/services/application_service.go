// application_service.go
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
	"github.com/localnerve/autofin/internal/lifecycle"
	"github.com/localnerve/autofin/internal/metrics"
	"github.com/localnerve/autofin/internal/models"
	"github.com/localnerve/autofin/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StatusNotificationTitle titles the notification sent on every status change
const StatusNotificationTitle = "Application Status Updated"

// Activity actions written by this service
const (
	ActionSubmitted        = "application_submitted"
	ActionClaimed          = "application_claimed"
	ActionProfileUpdated   = "profile_updated"
	ActionAdminUpdated     = "admin_update"
	ActionStatusUpdate     = "status_update"
	ActionBulkStatusUpdate = "bulk_status_update"
	ActionAutoPreApproval  = "auto_pre_approval"
	ActionDealerAssigned   = "dealer_assigned"
	ActionBulkNotify       = "bulk_notify"
)

// Status change modes, used as a metrics label and in outbox payloads
const (
	ModeSingle = "single"
	ModeBulk   = "bulk"
	ModeAuto   = "auto"
)

// ApplicationService owns application records and their lifecycle.
// Every status write goes through lifecycle.Transition and commits its
// activity log, notification and outbox event in the same transaction.
type ApplicationService struct {
	db       *gorm.DB
	logger   *zap.Logger
	settings *SettingsService
	objects  storage.ObjectStore
	kicker   Kicker
	now      func() time.Time
	pageSize int
}

// ApplicationOption configures an ApplicationService
type ApplicationOption func(*ApplicationService)

// WithSettings enables settings-driven behavior such as auto approval
func WithSettings(settings *SettingsService) ApplicationOption {
	return func(s *ApplicationService) { s.settings = settings }
}

// WithObjectStore lets deletes remove stored document objects
func WithObjectStore(objects storage.ObjectStore) ApplicationOption {
	return func(s *ApplicationService) { s.objects = objects }
}

// WithKicker wakes the outbox worker after each commit
func WithKicker(k Kicker) ApplicationOption {
	return func(s *ApplicationService) { s.kicker = k }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) ApplicationOption {
	return func(s *ApplicationService) { s.now = now }
}

// WithPageSize sets the admin search page size
func WithPageSize(n int) ApplicationOption {
	return func(s *ApplicationService) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// NewApplicationService creates an ApplicationService
func NewApplicationService(db *gorm.DB, logger *zap.Logger, opts ...ApplicationOption) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ApplicationService{
		db:       db,
		logger:   logger,
		now:      time.Now,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// statusEffect describes who changed a status and how it is audited
type statusEffect struct {
	ActorID string
	Action  string
	Mode    string
	Note    string
	Details map[string]interface{}
}

// applyStatus transitions app inside tx and writes its side effects
func (s *ApplicationService) applyStatus(tx *gorm.DB, app *models.Application, to lifecycle.Status, eff statusEffect) (lifecycle.Change, error) {
	oldVersion := app.Version

	change, err := lifecycle.Transition(app, to, s.now())
	if err != nil {
		return change, invalid("status", err.Error())
	}

	res := tx.Model(&models.Application{}).
		Where("id = ? AND version = ?", app.ID, oldVersion).
		Updates(map[string]interface{}{
			"status":        app.Status,
			"current_stage": app.CurrentStage,
			"updated_at":    app.UpdatedAt,
			"version":       app.Version,
		})
	if res.Error != nil {
		return change, fmt.Errorf("update status of %s: %w", app.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return change, ErrVersionConflict
	}

	details := map[string]interface{}{
		"from":  change.From,
		"to":    change.To,
		"stage": change.Stage,
	}
	for k, v := range eff.Details {
		details[k] = v
	}
	if eff.Note != "" {
		details["note"] = eff.Note
	}
	if err := recordActivity(tx, app.ID, eff.ActorID, eff.Action, details, eff.Mode != ModeAuto, true); err != nil {
		return change, err
	}

	if app.UserID != nil {
		message := fmt.Sprintf("Your application status has been updated to %s.", to.Label())
		if _, err := createNotification(tx, *app.UserID, &app.ID, "status_update", StatusNotificationTitle, message); err != nil {
			return change, err
		}
	}

	payload := StatusChangedPayload{
		ApplicationID: app.ID,
		From:          string(change.From),
		To:            string(change.To),
		Stage:         change.Stage,
		Mode:          eff.Mode,
		UserID:        app.UserID,
		DealerID:      app.DealerID,
		Email:         app.Email,
		FirstName:     app.FirstName,
	}
	if err := enqueue(tx, models.EventApplicationStatusChanged, app.ID, payload); err != nil {
		return change, err
	}

	return change, nil
}

// committed runs after a successful transaction
func (s *ApplicationService) committed(changes []lifecycle.Change, mode string) {
	for _, c := range changes {
		metrics.StatusTransitions.WithLabelValues(string(c.To), mode).Inc()
	}
	if s.kicker != nil {
		s.kicker.Kick()
	}
}

func (s *ApplicationService) loadSettings(ctx context.Context) Settings {
	if s.settings == nil {
		return DefaultSettings()
	}
	settings, err := s.settings.Load(ctx)
	if err != nil {
		s.logger.Warn("using default settings", zap.Error(err))
	}
	return settings
}

// Submit creates an application. userID is nil for anonymous submissions,
// which are claimed later by email. A dealer slug assigns the dealer.
func (s *ApplicationService) Submit(ctx context.Context, userID *string, in ApplicationInput) (*models.Application, error) {
	in = in.normalize()
	if err := Validate(in); err != nil {
		return nil, err
	}

	app := in.toModel()
	lifecycle.Initialize(&app)
	app.UserID = userID

	settings := s.loadSettings(ctx)
	actorID := ""
	if userID != nil {
		actorID = *userID
	}

	var changes []lifecycle.Change
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.DealerSlug != "" {
			var dealer models.DealerProfile
			err := tx.Select("id").First(&dealer, "slug = ?", in.DealerSlug).Error
			switch {
			case err == nil:
				app.DealerID = &dealer.ID
			case errors.Is(err, gorm.ErrRecordNotFound):
				s.logger.Warn("unknown dealer slug on submit", zap.String("slug", in.DealerSlug))
			default:
				return fmt.Errorf("lookup dealer: %w", err)
			}
		}

		if err := tx.Create(&app).Error; err != nil {
			return fmt.Errorf("create application: %w", err)
		}

		details := map[string]interface{}{"dealer_slug": in.DealerSlug}
		if err := recordActivity(tx, app.ID, actorID, ActionSubmitted, details, false, true); err != nil {
			return err
		}

		if app.UserID != nil {
			if _, err := createNotification(tx, *app.UserID, &app.ID, "application_submitted",
				"Application Received", "We received your financing application and will review it shortly."); err != nil {
				return err
			}
		}

		inserted := changedPayload("insert", app)
		inserted.Email = app.Email
		inserted.FirstName = app.FirstName
		if err := enqueue(tx, models.EventApplicationsChanged, app.ID, inserted); err != nil {
			return err
		}

		if settings.AutoApproval.Qualifies(&app) {
			change, err := s.applyStatus(tx, &app, lifecycle.StatusPreApproved, statusEffect{
				Action: ActionAutoPreApproval,
				Mode:   ModeAuto,
				Details: map[string]interface{}{
					"min_credit_score":  settings.AutoApproval.MinCreditScore,
					"min_annual_income": settings.AutoApproval.MinAnnualIncome,
				},
			})
			if err != nil {
				return err
			}
			changes = append(changes, change)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(changes, ModeAuto)
	s.logger.Info("application submitted",
		zap.String("applicationID", app.ID),
		zap.Bool("anonymous", userID == nil),
		zap.String("status", app.Status))

	return &app, nil
}

// Get returns any application (staff)
func (s *ApplicationService) Get(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "application")
	}
	return &app, nil
}

// GetForUser returns an application owned by userID
func (s *ApplicationService) GetForUser(ctx context.Context, userID, id string) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).First(&app, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, notFound(err, "application")
	}
	return &app, nil
}

// GetForDealer returns an application assigned to dealerID
func (s *ApplicationService) GetForDealer(ctx context.Context, dealerID, id string) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).First(&app, "id = ? AND dealer_id = ?", id, dealerID).Error; err != nil {
		return nil, notFound(err, "application")
	}
	return &app, nil
}

// ListForUser returns the caller's applications, newest first
func (s *ApplicationService) ListForUser(ctx context.Context, userID string) ([]models.Application, error) {
	var apps []models.Application
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// ListForDealer returns one page of applications assigned to dealerID
func (s *ApplicationService) ListForDealer(ctx context.Context, dealerID, status string, page int) (Page[models.Application], error) {
	page, pageSize := normalizePage(page, s.pageSize)
	result := Page[models.Application]{Page: page, PageSize: pageSize}

	q := s.db.WithContext(ctx).Model(&models.Application{}).Where("dealer_id = ?", dealerID)
	if status != "" {
		st, err := lifecycle.ParseStatus(status)
		if err != nil {
			return result, invalid("status", err.Error())
		}
		q = q.Where("status = ?", string(st))
	}
	q = q.Session(&gorm.Session{})

	if err := q.Count(&result.Total).Error; err != nil {
		return result, fmt.Errorf("count dealer applications: %w", err)
	}
	if err := q.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&result.Items).Error; err != nil {
		return result, fmt.Errorf("list dealer applications: %w", err)
	}
	return result, nil
}

// Claim attaches unclaimed applications submitted with the session's email
// to the session's user. It returns the claimed applications.
func (s *ApplicationService) Claim(ctx context.Context, session auth.Session) ([]models.Application, error) {
	email := normalizeEmail(session.Email)
	if session.UserID == "" || email == "" {
		return nil, invalid("email", "is required")
	}

	var claimed []models.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id IS NULL AND email = ?", email).Find(&claimed).Error; err != nil {
			return fmt.Errorf("find unclaimed: %w", err)
		}
		if len(claimed) == 0 {
			return nil
		}

		ids := make([]string, len(claimed))
		for i := range claimed {
			ids[i] = claimed[i].ID
			claimed[i].UserID = strPtr(session.UserID)
		}

		res := tx.Model(&models.Application{}).
			Where("id IN ? AND user_id IS NULL", ids).
			Updates(map[string]interface{}{"user_id": session.UserID, "updated_at": s.now()})
		if res.Error != nil {
			return fmt.Errorf("claim applications: %w", res.Error)
		}
		if res.RowsAffected != int64(len(ids)) {
			return ErrConflict
		}

		for _, id := range ids {
			if err := recordActivity(tx, id, session.UserID, ActionClaimed, nil, false, true); err != nil {
				return err
			}
		}
		return enqueue(tx, models.EventApplicationsChanged, "", ApplicationsChangedPayload{
			Op:      "update",
			IDs:     ids,
			UserIDs: []string{session.UserID},
		})
	})
	if err != nil {
		return nil, err
	}

	if len(claimed) > 0 {
		s.committed(nil, ModeSingle)
		s.logger.Info("applications claimed", zap.String("userID", session.UserID), zap.Int("count", len(claimed)))
	}
	return claimed, nil
}

// UpdateProfile applies the applicant-editable subset to an owned application
func (s *ApplicationService) UpdateProfile(ctx context.Context, userID, id string, upd ProfileUpdate) (*models.Application, error) {
	if err := Validate(upd); err != nil {
		return nil, err
	}

	var app models.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			return notFound(err, "application")
		}

		oldVersion := app.Version
		upd.apply(&app)
		if err := s.saveFields(tx, &app, oldVersion, "status", "current_stage", "dealer_id", "user_id", "email", "credit_score"); err != nil {
			return err
		}

		if err := recordActivity(tx, app.ID, userID, ActionProfileUpdated, nil, false, true); err != nil {
			return err
		}
		return enqueue(tx, models.EventApplicationsChanged, app.ID, changedPayload("update", app))
	})
	if err != nil {
		return nil, err
	}

	s.committed(nil, ModeSingle)
	return &app, nil
}

// saveFields writes app's columns when the stored version is still oldVersion
func (s *ApplicationService) saveFields(tx *gorm.DB, app *models.Application, oldVersion uint64, omit ...string) error {
	app.Version = oldVersion + 1
	app.UpdatedAt = s.now()

	res := tx.Model(app).
		Where("version = ?", oldVersion).
		Select("*").
		Omit(append([]string{"id", "created_at"}, omit...)...).
		Updates(app)
	if res.Error != nil {
		return fmt.Errorf("update application %s: %w", app.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// AdminUpdate edits any application field. A non-nil Version must match
// the stored version.
func (s *ApplicationService) AdminUpdate(ctx context.Context, actorID, id string, upd AdminUpdate) (*models.Application, error) {
	if err := Validate(upd); err != nil {
		return nil, err
	}

	var to lifecycle.Status
	if upd.Status != nil {
		st, err := lifecycle.ParseStatus(*upd.Status)
		if err != nil {
			return nil, invalid("status", err.Error())
		}
		to = st
	}

	var app models.Application
	var changes []lifecycle.Change
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, "id = ?", id).Error; err != nil {
			return notFound(err, "application")
		}
		if upd.Version != nil && *upd.Version != app.Version {
			return ErrVersionConflict
		}

		oldVersion := app.Version
		previousDealer := app.DealerID
		upd.ProfileUpdate.apply(&app)
		if upd.Email != nil {
			app.Email = normalizeEmail(*upd.Email)
		}
		if upd.CreditScore != nil {
			app.CreditScore = *upd.CreditScore
		}
		if upd.DealerID != nil {
			dealerID, err := resolveDealer(tx, *upd.DealerID)
			if err != nil {
				return err
			}
			app.DealerID = dealerID
		}

		if err := s.saveFields(tx, &app, oldVersion, "status", "current_stage", "user_id"); err != nil {
			return err
		}
		details := map[string]interface{}{}
		if upd.Note != "" {
			details["note"] = upd.Note
		}
		if err := recordActivity(tx, app.ID, actorID, ActionAdminUpdated, details, true, false); err != nil {
			return err
		}
		payload := changedPayload("update", app)
		if previousDealer != nil && (app.DealerID == nil || *app.DealerID != *previousDealer) {
			payload.DealerIDs = append(payload.DealerIDs, *previousDealer)
		}
		if err := enqueue(tx, models.EventApplicationsChanged, app.ID, payload); err != nil {
			return err
		}

		if to != "" {
			change, err := s.applyStatus(tx, &app, to, statusEffect{
				ActorID: actorID,
				Action:  ActionStatusUpdate,
				Mode:    ModeSingle,
				Note:    upd.Note,
			})
			if err != nil {
				return err
			}
			changes = append(changes, change)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(changes, ModeSingle)
	return &app, nil
}

// resolveDealer maps "" to nil and verifies the dealer profile exists
func resolveDealer(tx *gorm.DB, dealerID string) (*string, error) {
	if dealerID == "" {
		return nil, nil
	}
	var dealer models.DealerProfile
	if err := tx.Select("id").First(&dealer, "id = ?", dealerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("dealer_id", "unknown dealer")
		}
		return nil, fmt.Errorf("lookup dealer: %w", err)
	}
	return &dealer.ID, nil
}

// AssignDealer sets or clears the dealer of an application
func (s *ApplicationService) AssignDealer(ctx context.Context, actorID, id, dealerID string) (*models.Application, error) {
	var app models.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, "id = ?", id).Error; err != nil {
			return notFound(err, "application")
		}
		previous := app.DealerID

		assigned, err := resolveDealer(tx, dealerID)
		if err != nil {
			return err
		}
		app.DealerID = assigned
		if err := s.saveFields(tx, &app, app.Version, "status", "current_stage", "user_id"); err != nil {
			return err
		}

		details := map[string]interface{}{"dealer_id": dealerID, "previous_dealer_id": previous}
		if err := recordActivity(tx, app.ID, actorID, ActionDealerAssigned, details, true, false); err != nil {
			return err
		}

		payload := changedPayload("update", app)
		if previous != nil {
			payload.DealerIDs = append(payload.DealerIDs, *previous)
		}
		return enqueue(tx, models.EventApplicationsChanged, app.ID, payload)
	})
	if err != nil {
		return nil, err
	}

	s.committed(nil, ModeSingle)
	return &app, nil
}

// UpdateStatus is the single-record status change. expectedVersion, when
// non-nil, must match the stored version.
func (s *ApplicationService) UpdateStatus(ctx context.Context, actorID, id, status, note string, expectedVersion *uint64) (*models.Application, error) {
	to, err := lifecycle.ParseStatus(status)
	if err != nil {
		return nil, invalid("status", err.Error())
	}

	var app models.Application
	var change lifecycle.Change
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, "id = ?", id).Error; err != nil {
			return notFound(err, "application")
		}
		if expectedVersion != nil && *expectedVersion != app.Version {
			return ErrVersionConflict
		}

		var err error
		change, err = s.applyStatus(tx, &app, to, statusEffect{
			ActorID: actorID,
			Action:  ActionStatusUpdate,
			Mode:    ModeSingle,
			Note:    note,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.committed([]lifecycle.Change{change}, ModeSingle)
	s.logger.Info("status updated",
		zap.String("actorID", actorID),
		zap.String("applicationID", id),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)))

	return &app, nil
}

func changedPayload(op string, app models.Application) ApplicationsChangedPayload {
	payload := ApplicationsChangedPayload{Op: op, IDs: []string{app.ID}}
	if app.UserID != nil {
		payload.UserIDs = []string{*app.UserID}
	}
	if app.DealerID != nil {
		payload.DealerIDs = []string{*app.DealerID}
	}
	return payload
}
