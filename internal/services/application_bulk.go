// application_bulk.go
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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/localnerve/autofin/internal/lifecycle"
	"github.com/localnerve/autofin/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BulkResult summarizes a bulk action
type BulkResult struct {
	Updated  int      `json:"updated"`
	Notified int      `json:"notified"`
	Deleted  int      `json:"deleted"`
	Missing  []string `json:"missing,omitempty"`
}

// BulkNotice is a freeform notification sent to applicants
type BulkNotice struct {
	Title   string `json:"title" validate:"required,max=255"`
	Message string `json:"message" validate:"required,max=4000"`
}

func missingIDs(requested []string, apps []models.Application) []string {
	found := make(map[string]struct{}, len(apps))
	for _, app := range apps {
		found[app.ID] = struct{}{}
	}
	var missing []string
	for _, id := range requested {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func requireIDs(ids []string) ([]string, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, invalid("ids", "is required")
	}
	return ids, nil
}

// BulkUpdateStatus moves every selected application to status in one
// transaction. Each application gets its own activity log, outbox event and,
// when it has an owner, notification. Any failure rolls back the batch.
func (s *ApplicationService) BulkUpdateStatus(ctx context.Context, actorID string, ids []string, status string) (BulkResult, error) {
	var result BulkResult

	ids, err := requireIDs(ids)
	if err != nil {
		return result, err
	}
	to, err := lifecycle.ParseStatus(status)
	if err != nil {
		return result, invalid("status", err.Error())
	}

	var changes []lifecycle.Change
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var apps []models.Application
		if err := tx.Where("id IN ?", ids).Find(&apps).Error; err != nil {
			return fmt.Errorf("load applications: %w", err)
		}
		result.Missing = missingIDs(ids, apps)

		for i := range apps {
			change, err := s.applyStatus(tx, &apps[i], to, statusEffect{
				ActorID: actorID,
				Action:  ActionBulkStatusUpdate,
				Mode:    ModeBulk,
				Details: map[string]interface{}{"batch_size": len(apps)},
			})
			if err != nil {
				return err
			}
			changes = append(changes, change)
			result.Updated++
			if apps[i].UserID != nil {
				result.Notified++
			}
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, err
	}

	s.committed(changes, ModeBulk)
	s.logger.Info("bulk status update",
		zap.String("actorID", actorID),
		zap.String("status", string(to)),
		zap.Int("updated", result.Updated),
		zap.Int("notified", result.Notified),
		zap.Int("missing", len(result.Missing)))

	return result, nil
}

// BulkNotify sends notice to the owner of each selected application.
// Ownership is re-read inside the transaction; unclaimed applications are skipped.
func (s *ApplicationService) BulkNotify(ctx context.Context, actorID string, ids []string, notice BulkNotice) (BulkResult, error) {
	var result BulkResult

	ids, err := requireIDs(ids)
	if err != nil {
		return result, err
	}
	if err := Validate(notice); err != nil {
		return result, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var apps []models.Application
		if err := tx.Select("id", "user_id").Where("id IN ?", ids).Find(&apps).Error; err != nil {
			return fmt.Errorf("load applications: %w", err)
		}
		result.Missing = missingIDs(ids, apps)

		var userIDs []string
		for i := range apps {
			app := apps[i]
			if app.UserID == nil {
				continue
			}
			if _, err := createNotification(tx, *app.UserID, &app.ID, "admin_message", notice.Title, notice.Message); err != nil {
				return err
			}
			details := map[string]interface{}{"title": notice.Title}
			if err := recordActivity(tx, app.ID, actorID, ActionBulkNotify, details, true, false); err != nil {
				return err
			}
			userIDs = append(userIDs, *app.UserID)
			result.Notified++
		}

		if len(userIDs) == 0 {
			return nil
		}
		return enqueue(tx, models.EventNotificationCreated, "", NotificationsCreatedPayload{UserIDs: dedupe(userIDs)})
	})
	if err != nil {
		return BulkResult{}, err
	}

	s.committed(nil, ModeBulk)
	s.logger.Info("bulk notify", zap.String("actorID", actorID), zap.Int("notified", result.Notified))
	return result, nil
}

// dependents are the tables deleted along with an application
var dependents = []interface{}{
	&models.Document{},
	&models.Notification{},
	&models.ActivityLog{},
	&models.ApplicationFlag{},
	&models.Message{},
}

// BulkDelete removes the selected applications and their dependent rows
// in one transaction. Stored document objects are removed after commit.
func (s *ApplicationService) BulkDelete(ctx context.Context, actorID string, ids []string) (BulkResult, error) {
	var result BulkResult

	ids, err := requireIDs(ids)
	if err != nil {
		return result, err
	}

	var keys []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var apps []models.Application
		if err := tx.Select("id", "user_id", "dealer_id").Where("id IN ?", ids).Find(&apps).Error; err != nil {
			return fmt.Errorf("load applications: %w", err)
		}
		result.Missing = missingIDs(ids, apps)
		if len(apps) == 0 {
			return nil
		}

		found := make([]string, len(apps))
		payload := ApplicationsChangedPayload{Op: "delete"}
		for i, app := range apps {
			found[i] = app.ID
			if app.UserID != nil {
				payload.UserIDs = append(payload.UserIDs, *app.UserID)
			}
			if app.DealerID != nil {
				payload.DealerIDs = append(payload.DealerIDs, *app.DealerID)
			}
		}
		payload.IDs = found
		payload.UserIDs = dedupe(payload.UserIDs)
		payload.DealerIDs = dedupe(payload.DealerIDs)

		if err := tx.Model(&models.Document{}).Where("application_id IN ?", found).Pluck("storage_key", &keys).Error; err != nil {
			return fmt.Errorf("collect document keys: %w", err)
		}

		for _, model := range dependents {
			if err := tx.Where("application_id IN ?", found).Delete(model).Error; err != nil {
				return fmt.Errorf("delete dependents: %w", err)
			}
		}

		res := tx.Where("id IN ?", found).Delete(&models.Application{})
		if res.Error != nil {
			return fmt.Errorf("delete applications: %w", res.Error)
		}
		result.Deleted = int(res.RowsAffected)

		return enqueue(tx, models.EventApplicationsChanged, "", payload)
	})
	if err != nil {
		return BulkResult{}, err
	}

	s.committed(nil, ModeBulk)
	s.removeObjects(ctx, keys)
	s.logger.Info("bulk delete",
		zap.String("actorID", actorID),
		zap.Int("deleted", result.Deleted),
		zap.Int("documents", len(keys)))

	return result, nil
}

// Delete removes a single application
func (s *ApplicationService) Delete(ctx context.Context, actorID, id string) error {
	result, err := s.BulkDelete(ctx, actorID, []string{id})
	if err != nil {
		return err
	}
	if result.Deleted == 0 {
		return fmt.Errorf("application: %w", ErrNotFound)
	}
	return nil
}

func (s *ApplicationService) removeObjects(ctx context.Context, keys []string) {
	if s.objects == nil || len(keys) == 0 {
		return
	}
	if err := s.objects.Delete(ctx, keys...); err != nil {
		s.logger.Warn("orphaned document objects", zap.Int("count", len(keys)), zap.Error(err))
	}
}

// ExportColumns is the fixed CSV column order
var ExportColumns = []string{
	"id", "first_name", "last_name", "email", "phone",
	"address", "city", "state", "zip_code",
	"employment_status", "employer_name", "job_title",
	"annual_income", "monthly_income", "credit_score",
	"vehicle_type", "vehicle_make", "vehicle_model", "vehicle_year",
	"down_payment", "desired_monthly_payment", "loan_term_months",
	"status", "current_stage", "dealer_id", "user_id",
	"created_at", "updated_at",
}

// Export writes the selected applications as CSV, re-read from the store
func (s *ApplicationService) Export(ctx context.Context, ids []string, w io.Writer) (int, error) {
	ids, err := requireIDs(ids)
	if err != nil {
		return 0, err
	}

	var apps []models.Application
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("created_at DESC").Find(&apps).Error; err != nil {
		return 0, fmt.Errorf("load applications: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return 0, err
	}
	for _, app := range apps {
		if err := cw.Write(exportRow(app)); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(apps), cw.Error()
}

func exportRow(a models.Application) []string {
	return []string{
		a.ID, a.FirstName, a.LastName, a.Email, a.Phone,
		a.Address, a.City, a.State, a.ZipCode,
		a.EmploymentStatus, a.EmployerName, a.JobTitle,
		formatMoney(a.AnnualIncome), formatMoney(a.MonthlyIncome), strconv.Itoa(a.CreditScore),
		a.VehicleType, a.VehicleMake, a.VehicleModel, strconv.Itoa(a.VehicleYear),
		formatMoney(a.DownPayment), formatMoney(a.DesiredMonthlyPayment), strconv.Itoa(a.LoanTermMonths),
		a.Status, strconv.Itoa(a.CurrentStage), deref(a.DealerID), deref(a.UserID),
		a.CreatedAt.UTC().Format(time.RFC3339), a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
