// application_bulk_test.go
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
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/localnerve/autofin/internal/lifecycle"
	"github.com/localnerve/autofin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpdateStatusWritesOneLogPerApplication(t *testing.T) {
	kicker := &countingKicker{}
	svc, db := newAppService(t, WithKicker(kicker))

	owned := seedApp(t, db, models.Application{UserID: ptr("user-1")})
	owned2 := seedApp(t, db, models.Application{UserID: ptr("user-2"), Email: "b@example.com"})
	anonymous := seedApp(t, db, models.Application{Email: "c@example.com"})
	ids := []string{owned.ID, owned2.ID, anonymous.ID}

	result, err := svc.BulkUpdateStatus(ctx, "admin-1", ids, string(lifecycle.StatusUnderReview))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Updated)
	assert.Equal(t, 2, result.Notified)
	assert.Empty(t, result.Missing)

	assert.Equal(t, int64(3), countRows(t, db, &models.ActivityLog{}, "action = ?", ActionBulkStatusUpdate))
	assert.Equal(t, int64(2), countRows(t, db, &models.Notification{}, "type = ?", "status_update"))
	assert.Equal(t, int64(3), countRows(t, db, &models.OutboxEvent{}, "event_type = ?", models.EventApplicationStatusChanged))
	assert.Equal(t, 1, kicker.count())

	var apps []models.Application
	require.NoError(t, db.Find(&apps, "id IN ?", ids).Error)
	for _, app := range apps {
		assert.Equal(t, string(lifecycle.StatusUnderReview), app.Status)
		assert.Equal(t, 2, app.CurrentStage)
		assert.True(t, lifecycle.Consistent(&app))
	}
}

func TestBulkUpdateStatusIsRepeatable(t *testing.T) {
	svc, db := newAppService(t)
	a := seedApp(t, db, models.Application{UserID: ptr("user-1")})
	b := seedApp(t, db, models.Application{Email: "b@example.com"})
	ids := []string{a.ID, b.ID}

	for i := 1; i <= 2; i++ {
		_, err := svc.BulkUpdateStatus(ctx, "admin-1", ids, string(lifecycle.StatusFinalApproval))
		require.NoError(t, err)
		assert.Equal(t, int64(2*i), countRows(t, db, &models.ActivityLog{}, "action = ?", ActionBulkStatusUpdate))
	}

	var apps []models.Application
	require.NoError(t, db.Find(&apps, "id IN ?", ids).Error)
	for _, app := range apps {
		assert.Equal(t, string(lifecycle.StatusFinalApproval), app.Status)
		assert.Equal(t, 6, app.CurrentStage)
	}
}

func TestBulkPreApprovalFromUnderReview(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, db := newAppService(t, WithClock(fixedClock(start)))

	app := seedApp(t, db, models.Application{Status: string(lifecycle.StatusUnderReview), UserID: ptr("user-7")})
	before := app.UpdatedAt

	_, err := svc.BulkUpdateStatus(ctx, "admin-1", []string{app.ID}, string(lifecycle.StatusPreApproved))
	require.NoError(t, err)

	var stored models.Application
	require.NoError(t, db.First(&stored, "id = ?", app.ID).Error)
	assert.Equal(t, string(lifecycle.StatusPreApproved), stored.Status)
	assert.Equal(t, 4, stored.CurrentStage)
	assert.False(t, stored.UpdatedAt.Equal(before))

	var notes []models.Notification
	require.NoError(t, db.Find(&notes, "user_id = ?", "user-7").Error)
	require.Len(t, notes, 1)
	assert.Equal(t, StatusNotificationTitle, notes[0].Title)
	assert.Equal(t, "Your application status has been updated to Pre-Approved.", notes[0].Message)
	require.NotNil(t, notes[0].ApplicationID)
	assert.Equal(t, app.ID, *notes[0].ApplicationID)

	var logs []models.ActivityLog
	require.NoError(t, db.Find(&logs, "application_id = ?", app.ID).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, ActionBulkStatusUpdate, logs[0].Action)
	assert.True(t, logs[0].IsAdminAction)
	assert.Equal(t, "admin-1", logs[0].ActorID)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(logs[0].Details.JSON, &details))
	assert.Equal(t, "under_review", details["from"])
	assert.Equal(t, "pre_approved", details["to"])
}

func TestBulkUpdateStatusRejectsInput(t *testing.T) {
	svc, db := newAppService(t)
	app := seedApp(t, db, models.Application{})

	_, err := svc.BulkUpdateStatus(ctx, "admin-1", []string{app.ID}, "approved")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.BulkUpdateStatus(ctx, "admin-1", nil, string(lifecycle.StatusFinalized))
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, int64(0), countRows(t, db, &models.ActivityLog{}, ""))
}

func TestBulkUpdateStatusReportsMissing(t *testing.T) {
	svc, db := newAppService(t)
	app := seedApp(t, db, models.Application{})

	result, err := svc.BulkUpdateStatus(ctx, "admin-1", []string{app.ID, "nope", app.ID}, string(lifecycle.StatusFinalized))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, []string{"nope"}, result.Missing)
}

func TestBulkNotifySkipsUnclaimed(t *testing.T) {
	svc, db := newAppService(t)
	owned := seedApp(t, db, models.Application{UserID: ptr("user-1")})
	anonymous := seedApp(t, db, models.Application{Email: "x@example.com"})

	result, err := svc.BulkNotify(ctx, "admin-1", []string{owned.ID, anonymous.ID}, BulkNotice{Title: "Docs", Message: "Please upload a pay stub."})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Notified)

	var notes []models.Notification
	require.NoError(t, db.Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, "user-1", notes[0].UserID)
	assert.Equal(t, "admin_message", notes[0].Type)
	assert.Equal(t, int64(1), countRows(t, db, &models.OutboxEvent{}, "event_type = ?", models.EventNotificationCreated))

	_, err = svc.BulkNotify(ctx, "admin-1", []string{owned.ID}, BulkNotice{Title: "", Message: "x"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBulkDeleteCascades(t *testing.T) {
	store := &fakeObjectStore{}
	svc, db := newAppService(t, WithObjectStore(store))

	doomed := seedApp(t, db, models.Application{UserID: ptr("user-1")})
	kept := seedApp(t, db, models.Application{UserID: ptr("user-2"), Email: "k@example.com"})

	for _, appID := range []string{doomed.ID, kept.ID} {
		require.NoError(t, db.Create(&models.Document{ApplicationID: appID, UserID: "u", FileName: "f.pdf", StorageKey: appID + "/f.pdf"}).Error)
		require.NoError(t, db.Create(&models.Notification{UserID: "u", ApplicationID: ptr(appID), Title: "t"}).Error)
		require.NoError(t, db.Create(&models.ActivityLog{ApplicationID: appID, Action: "x", Details: models.MustJSON(map[string]string{})}).Error)
		require.NoError(t, db.Create(&models.ApplicationFlag{ApplicationID: appID, Severity: "low", Reason: "r"}).Error)
		require.NoError(t, db.Create(&models.Message{ApplicationID: appID, SenderID: "u", SenderRole: "customer", Body: "hi"}).Error)
	}

	result, err := svc.BulkDelete(ctx, "admin-1", []string{doomed.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)

	for _, model := range []interface{}{&models.Document{}, &models.Notification{}, &models.ActivityLog{}, &models.ApplicationFlag{}, &models.Message{}} {
		assert.Equal(t, int64(0), countRows(t, db, model, "application_id = ?", doomed.ID))
		assert.Equal(t, int64(1), countRows(t, db, model, "application_id = ?", kept.ID))
	}
	assert.Equal(t, int64(1), countRows(t, db, &models.Application{}, ""))
	assert.Equal(t, []string{doomed.ID + "/f.pdf"}, store.deleted)

	assert.ErrorIs(t, svc.Delete(ctx, "admin-1", doomed.ID), ErrNotFound)
}

func TestExportWritesFixedColumns(t *testing.T) {
	svc, db := newAppService(t)
	a := seedApp(t, db, models.Application{FirstName: "Ana", LastName: "Diaz, Jr.", AnnualIncome: 85000, CreditScore: 710})
	seedApp(t, db, models.Application{Email: "other@example.com"})

	var buf bytes.Buffer
	n, err := svc.Export(ctx, []string{a.ID}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ExportColumns, records[0])

	row := map[string]string{}
	for i, col := range records[0] {
		row[col] = records[1][i]
	}
	assert.Equal(t, a.ID, row["id"])
	assert.Equal(t, "Diaz, Jr.", row["last_name"])
	assert.Equal(t, "85000.00", row["annual_income"])
	assert.Equal(t, "710", row["credit_score"])
	assert.Equal(t, "submitted", row["status"])
	assert.Equal(t, "", row["user_id"])
}
