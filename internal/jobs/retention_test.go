// retention_test.go
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

package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/localnerve/autofin/internal/models"
	"github.com/localnerve/autofin/internal/outbox"
	"github.com/localnerve/autofin/internal/services"
	"github.com/localnerve/autofin/internal/testutil"
	cron "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionPurgesExpiredRows(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	settings := services.NewSettingsService(db, nil)
	cfg := services.DefaultSettings()
	cfg.DocumentRetention.Days = 30
	_, err := settings.Save(ctx, "admin-1", cfg)
	require.NoError(t, err)

	old := models.Document{ApplicationID: "app-1", UserID: "user-1", FileName: "old.pdf", StorageKey: "k/old", CreatedAt: now.AddDate(0, 0, -45)}
	fresh := models.Document{ApplicationID: "app-1", UserID: "user-1", FileName: "new.pdf", StorageKey: "k/new", CreatedAt: now.AddDate(0, 0, -2)}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&fresh).Error)

	done := models.OutboxEvent{EventType: models.EventApplicationsChanged, Status: models.OutboxStatusCompleted, UpdatedAt: now.Add(-10 * 24 * time.Hour)}
	pending := models.OutboxEvent{EventType: models.EventApplicationsChanged, Status: models.OutboxStatusPending, UpdatedAt: now.Add(-10 * 24 * time.Hour)}
	require.NoError(t, db.Create(&done).Error)
	require.NoError(t, db.Create(&pending).Error)

	r := &Retention{
		Documents: services.NewDocumentService(db, nil, nil),
		Settings:  settings,
		Outbox:    outbox.NewWorker(db, nil, nil, outbox.WithClock(func() time.Time { return now })),
		Now:       func() time.Time { return now },
	}
	require.NoError(t, r.Run(ctx))

	var docs []models.Document
	require.NoError(t, db.Find(&docs).Error)
	require.Len(t, docs, 1)
	assert.Equal(t, "new.pdf", docs[0].FileName)

	var events []models.OutboxEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, models.OutboxStatusPending, events[0].Status)
}

func TestRetentionKeepsDocumentsByDefault(t *testing.T) {
	db := testutil.NewDB(t)
	doc := models.Document{ApplicationID: "app-1", UserID: "user-1", FileName: "a.pdf", StorageKey: "k/a", CreatedAt: time.Now().AddDate(-5, 0, 0)}
	require.NoError(t, db.Create(&doc).Error)

	r := &Retention{
		Documents: services.NewDocumentService(db, nil, nil),
		Settings:  services.NewSettingsService(db, nil),
	}
	require.NoError(t, r.Run(context.Background()))

	var n int64
	require.NoError(t, db.Model(&models.Document{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestRetentionSchedule(t *testing.T) {
	r := &Retention{}
	c := cron.New()

	id, err := r.Schedule(c, "")
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = r.Schedule(c, "not a schedule")
	assert.Error(t, err)
}
