// integration_test.go
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

//go:build integration

package database_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/localnerve/autofin/internal/config"
	"github.com/localnerve/autofin/internal/database"
	"github.com/localnerve/autofin/internal/models"
	"github.com/localnerve/autofin/internal/outbox"
	"github.com/localnerve/autofin/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_USER":     "testuser",
				"POSTGRES_DB":       "autofin",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := &config.Config{
		DBType:               "postgres",
		DBHost:               host,
		DBPort:               port.Port(),
		DBDatabase:           "autofin",
		DBAppUser:            "testuser",
		DBAppPassword:        "testpass",
		DBAppConnectionLimit: 5,
	}

	db, err := database.Connect(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func TestPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db := startPostgres(t)

	t.Run("SubmitSearchAndStatus", func(t *testing.T) {
		testSubmitSearchAndStatus(t, db)
	})
	t.Run("OutboxClaimsOnce", func(t *testing.T) {
		testOutboxClaimsOnce(t, db)
	})
}

func testSubmitSearchAndStatus(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	apps := services.NewApplicationService(db, nil)

	app, err := apps.Submit(ctx, nil, services.ApplicationInput{
		FirstName: "Rosa",
		LastName:  "Delgado",
		Email:     "Rosa.Delgado@Example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "rosa.delgado@example.com", app.Email)

	page, err := apps.Search(ctx, services.SearchFilters{Query: "delga"})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, app.ID, page.Items[0].ID)

	page, err = apps.Search(ctx, services.SearchFilters{Query: app.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	version := app.Version
	updated, err := apps.UpdateStatus(ctx, "admin-1", app.ID, "under_review", "", &version)
	require.NoError(t, err)
	assert.Equal(t, "under_review", updated.Status)

	_, err = apps.UpdateStatus(ctx, "admin-1", app.ID, "pre_approved", "", &version)
	assert.ErrorIs(t, err, services.ErrVersionConflict)
}

func testOutboxClaimsOnce(t *testing.T, db *gorm.DB) {
	require.NoError(t, db.Where("1 = 1").Delete(&models.OutboxEvent{}).Error)

	const events = 40
	for i := 0; i < events; i++ {
		require.NoError(t, db.Create(&models.OutboxEvent{
			EventType:   "integration.ping",
			AggregateID: "agg",
			Payload:     models.MustJSON(map[string]int{"n": i}),
			Status:      models.OutboxStatusPending,
			MaxRetries:  3,
		}).Error)
	}

	var delivered atomic.Int64
	handlers := map[string]outbox.Handler{
		"integration.ping": func(ctx context.Context, e *models.OutboxEvent) error {
			delivered.Add(1)
			return nil
		},
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		w := outbox.NewWorker(db, handlers, nil, outbox.WithBatchSize(5))
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w.ProcessBatch(ctx) > 0 {
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, events, delivered.Load())

	var pending int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("status <> ?", models.OutboxStatusCompleted).Count(&pending).Error)
	assert.Zero(t, pending)
}
