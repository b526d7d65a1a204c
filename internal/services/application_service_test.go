// application_service_test.go
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
	"encoding/json"
	"testing"

	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/lifecycle"
	"github.com/localnerve/autofin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() ApplicationInput {
	return ApplicationInput{
		FirstName:        "Ana",
		LastName:         "Diaz",
		Email:            " Ana@Example.com ",
		Phone:            "555-0100",
		EmploymentStatus: "employed",
		AnnualIncome:     85000,
		CreditScore:      760,
		VehicleMake:      "Subaru",
		LoanTermMonths:   60,
	}
}

func TestSubmitAnonymous(t *testing.T) {
	kicker := &countingKicker{}
	svc, db := newAppService(t, WithKicker(kicker))

	app, err := svc.Submit(ctx, nil, validInput())
	require.NoError(t, err)

	assert.Len(t, app.ID, 36)
	assert.Equal(t, "ana@example.com", app.Email)
	assert.Equal(t, string(lifecycle.StatusSubmitted), app.Status)
	assert.Equal(t, 1, app.CurrentStage)
	assert.Nil(t, app.UserID)

	assert.Equal(t, int64(1), countRows(t, db, &models.ActivityLog{}, "action = ?", ActionSubmitted))
	assert.Equal(t, int64(0), countRows(t, db, &models.Notification{}, ""))
	assert.Equal(t, int64(1), countRows(t, db, &models.OutboxEvent{}, "event_type = ?", models.EventApplicationsChanged))
	assert.Equal(t, 1, kicker.count())
}

func TestSubmitTrimsBeforeValidating(t *testing.T) {
	svc, _ := newAppService(t)

	in := validInput()
	in.Email = "  Ana@Example.com "
	in.FirstName = " Ana "
	app, err := svc.Submit(ctx, nil, in)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", app.Email)
	assert.Equal(t, "Ana", app.FirstName)

	in = validInput()
	in.FirstName = "   "
	_, err = svc.Submit(ctx, nil, in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "first_name")
}

func TestSubmitValidates(t *testing.T) {
	svc, _ := newAppService(t)

	in := validInput()
	in.Email = "not-an-email"
	in.CreditScore = 900
	_, err := svc.Submit(ctx, nil, in)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "credit_score")
}

func TestSubmitWithDealerSlug(t *testing.T) {
	svc, db := newAppService(t)
	dealer := models.DealerProfile{ID: "dealer-1", UserID: "dealer-user", DealershipName: "Metro Motors", Slug: "metro-motors"}
	require.NoError(t, db.Create(&dealer).Error)

	in := validInput()
	in.DealerSlug = "metro-motors"
	app, err := svc.Submit(ctx, ptr("user-1"), in)
	require.NoError(t, err)
	require.NotNil(t, app.DealerID)
	assert.Equal(t, "dealer-1", *app.DealerID)
	assert.Equal(t, int64(1), countRows(t, db, &models.Notification{}, "user_id = ?", "user-1"))

	in.DealerSlug = "unknown-lot"
	app, err = svc.Submit(ctx, ptr("user-1"), in)
	require.NoError(t, err)
	assert.Nil(t, app.DealerID)
}

func TestSubmitAutoApproval(t *testing.T) {
	svc, db := newAppService(t)
	settings := NewSettingsService(db, nil)
	svc = NewApplicationService(db, nil, WithSettings(settings))

	cfg := DefaultSettings()
	cfg.AutoApproval = AutoApprovalSettings{Enabled: true, MinCreditScore: 740, MinAnnualIncome: 60000}
	_, err := settings.Save(ctx, "admin-1", cfg)
	require.NoError(t, err)

	strong, err := svc.Submit(ctx, ptr("user-1"), validInput())
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.StatusPreApproved), strong.Status)
	assert.Equal(t, 4, strong.CurrentStage)
	assert.Equal(t, int64(1), countRows(t, db, &models.ActivityLog{}, "action = ? AND application_id = ?", ActionAutoPreApproval, strong.ID))

	weak := validInput()
	weak.CreditScore = 640
	app, err := svc.Submit(ctx, ptr("user-1"), weak)
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.StatusSubmitted), app.Status)
}

func TestClaimMatchesSessionEmail(t *testing.T) {
	svc, db := newAppService(t)
	mine := seedApp(t, db, models.Application{Email: "ana@example.com"})
	seedApp(t, db, models.Application{Email: "someone@example.com"})
	taken := seedApp(t, db, models.Application{Email: "ana@example.com", UserID: ptr("user-9")})

	claimed, err := svc.Claim(ctx, auth.Session{UserID: "user-1", Email: "ANA@example.com"})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, mine.ID, claimed[0].ID)

	var stored models.Application
	require.NoError(t, db.First(&stored, "id = ?", mine.ID).Error)
	require.NotNil(t, stored.UserID)
	assert.Equal(t, "user-1", *stored.UserID)

	var other models.Application
	require.NoError(t, db.First(&other, "id = ?", taken.ID).Error)
	require.NotNil(t, other.UserID)
	assert.Equal(t, "user-9", *other.UserID)

	again, err := svc.Claim(ctx, auth.Session{UserID: "user-1", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestUpdateProfileCannotTouchLifecycle(t *testing.T) {
	svc, db := newAppService(t)
	app := seedApp(t, db, models.Application{UserID: ptr("user-1"), Status: string(lifecycle.StatusUnderReview)})

	updated, err := svc.UpdateProfile(ctx, "user-1", app.ID, ProfileUpdate{City: ptr("Denver"), VehicleYear: ptr(2024)})
	require.NoError(t, err)
	assert.Equal(t, "Denver", updated.City)
	assert.Equal(t, uint64(1), updated.Version)

	var stored models.Application
	require.NoError(t, db.First(&stored, "id = ?", app.ID).Error)
	assert.Equal(t, "Denver", stored.City)
	assert.Equal(t, 2024, stored.VehicleYear)
	assert.Equal(t, string(lifecycle.StatusUnderReview), stored.Status)
	assert.Equal(t, 2, stored.CurrentStage)

	_, err = svc.UpdateProfile(ctx, "user-2", app.ID, ProfileUpdate{City: ptr("Boise")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatusWritesSideEffectsTogether(t *testing.T) {
	svc, db := newAppService(t)
	app := seedApp(t, db, models.Application{UserID: ptr("user-1")})

	updated, err := svc.UpdateStatus(ctx, "admin-1", app.ID, "pending_documents", "need pay stub", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.CurrentStage)

	var logs []models.ActivityLog
	require.NoError(t, db.Find(&logs, "action = ?", ActionStatusUpdate).Error)
	require.Len(t, logs, 1)
	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(logs[0].Details.JSON, &details))
	assert.Equal(t, "need pay stub", details["note"])

	assert.Equal(t, int64(1), countRows(t, db, &models.Notification{}, "user_id = ?", "user-1"))

	var events []models.OutboxEvent
	require.NoError(t, db.Find(&events, "event_type = ?", models.EventApplicationStatusChanged).Error)
	require.Len(t, events, 1)
	var payload StatusChangedPayload
	require.NoError(t, json.Unmarshal(events[0].Payload.JSON, &payload))
	assert.Equal(t, "submitted", payload.From)
	assert.Equal(t, "pending_documents", payload.To)
	assert.Equal(t, "ana@example.com", payload.Email)
}

func TestUpdateStatusVersionConflict(t *testing.T) {
	svc, db := newAppService(t)
	app := seedApp(t, db, models.Application{})

	_, err := svc.UpdateStatus(ctx, "admin-1", app.ID, "under_review", "", ptr(uint64(0)))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, "admin-1", app.ID, "finalized", "", ptr(uint64(0)))
	assert.ErrorIs(t, err, ErrVersionConflict)

	var stored models.Application
	require.NoError(t, db.First(&stored, "id = ?", app.ID).Error)
	assert.Equal(t, "under_review", stored.Status)
	assert.Equal(t, int64(1), countRows(t, db, &models.ActivityLog{}, ""))
}

func TestUpdateStatusUnknown(t *testing.T) {
	svc, db := newAppService(t)
	app := seedApp(t, db, models.Application{})

	_, err := svc.UpdateStatus(ctx, "admin-1", app.ID, "approved", "", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateStatus(ctx, "admin-1", "missing", "finalized", "", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminUpdate(t *testing.T) {
	svc, db := newAppService(t)
	require.NoError(t, db.Create(&models.DealerProfile{ID: "dealer-1", UserID: "du", DealershipName: "Lot", Slug: "lot"}).Error)
	app := seedApp(t, db, models.Application{UserID: ptr("user-1")})

	updated, err := svc.AdminUpdate(ctx, "admin-1", app.ID, AdminUpdate{
		ProfileUpdate: ProfileUpdate{Phone: ptr("555-0199")},
		CreditScore:   ptr(700),
		Status:        ptr("vehicle_selection"),
		DealerID:      ptr("dealer-1"),
		Version:       ptr(uint64(0)),
	})
	require.NoError(t, err)
	assert.Equal(t, "555-0199", updated.Phone)
	assert.Equal(t, 700, updated.CreditScore)
	assert.Equal(t, "vehicle_selection", updated.Status)
	assert.Equal(t, 5, updated.CurrentStage)
	assert.Equal(t, uint64(2), updated.Version)
	require.NotNil(t, updated.DealerID)

	_, err = svc.AdminUpdate(ctx, "admin-1", app.ID, AdminUpdate{Version: ptr(uint64(0))})
	assert.ErrorIs(t, err, ErrVersionConflict)

	_, err = svc.AdminUpdate(ctx, "admin-1", app.ID, AdminUpdate{DealerID: ptr("ghost")})
	assert.ErrorIs(t, err, ErrValidation)

	cleared, err := svc.AdminUpdate(ctx, "admin-1", app.ID, AdminUpdate{DealerID: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.DealerID)
}

func TestAdminUpdateDealerChangeReachesPreviousDealer(t *testing.T) {
	svc, db := newAppService(t)
	require.NoError(t, db.Create(&models.DealerProfile{ID: "dealer-1", UserID: "du1", DealershipName: "Lot", Slug: "lot"}).Error)
	require.NoError(t, db.Create(&models.DealerProfile{ID: "dealer-2", UserID: "du2", DealershipName: "Yard", Slug: "yard"}).Error)
	app := seedApp(t, db, models.Application{DealerID: ptr("dealer-1")})

	lastChange := func() ApplicationsChangedPayload {
		var event models.OutboxEvent
		require.NoError(t, db.Order("id desc").First(&event, "event_type = ?", models.EventApplicationsChanged).Error)
		var payload ApplicationsChangedPayload
		require.NoError(t, json.Unmarshal(event.Payload.JSON, &payload))
		return payload
	}

	_, err := svc.AdminUpdate(ctx, "admin-1", app.ID, AdminUpdate{DealerID: ptr("dealer-2")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"dealer-1", "dealer-2"}, lastChange().DealerIDs)

	_, err = svc.AdminUpdate(ctx, "admin-1", app.ID, AdminUpdate{CreditScore: ptr(640)})
	require.NoError(t, err)
	assert.Equal(t, []string{"dealer-2"}, lastChange().DealerIDs)

	_, err = svc.AdminUpdate(ctx, "admin-1", app.ID, AdminUpdate{DealerID: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, []string{"dealer-2"}, lastChange().DealerIDs)
}

func TestAssignDealerAndList(t *testing.T) {
	svc, db := newAppService(t)
	require.NoError(t, db.Create(&models.DealerProfile{ID: "dealer-1", UserID: "du", DealershipName: "Lot", Slug: "lot"}).Error)
	a := seedApp(t, db, models.Application{})
	seedApp(t, db, models.Application{Email: "b@example.com"})

	_, err := svc.AssignDealer(ctx, "admin-1", a.ID, "dealer-1")
	require.NoError(t, err)

	page, err := svc.ListForDealer(ctx, "dealer-1", "", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, a.ID, page.Items[0].ID)

	_, err = svc.GetForDealer(ctx, "dealer-1", a.ID)
	require.NoError(t, err)
	_, err = svc.GetForDealer(ctx, "dealer-2", a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ListForDealer(ctx, "dealer-1", "bogus", 1)
	assert.ErrorIs(t, err, ErrValidation)
}
