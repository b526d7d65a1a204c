// retention.go
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

// Package jobs runs the scheduled maintenance of the service.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/localnerve/autofin/internal/logger"
	"github.com/localnerve/autofin/internal/outbox"
	"github.com/localnerve/autofin/internal/services"
	cron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSchedule runs retention daily at 03:15
const DefaultSchedule = "15 3 * * *"

// DefaultOutboxAge is how long completed outbox events are kept
const DefaultOutboxAge = 7 * 24 * time.Hour

// Retention purges expired documents and delivered outbox events
type Retention struct {
	Documents *services.DocumentService
	Settings  *services.SettingsService
	Outbox    *outbox.Worker
	OutboxAge time.Duration
	Timeout   time.Duration
	Logger    *zap.Logger
	Now       func() time.Time
}

// Run performs one retention pass. Both purges are attempted even if one fails.
func (r *Retention) Run(ctx context.Context) error {
	log := logger.OrNop(r.Logger)
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	var errs []error

	settings, err := r.Settings.Load(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("load settings: %w", err))
	} else {
		n, err := r.Documents.PurgeExpired(ctx, settings.DocumentRetention.Days, now())
		if err != nil {
			errs = append(errs, err)
		} else if n > 0 {
			log.Info("document retention", zap.Int("purged", n), zap.Int("days", settings.DocumentRetention.Days))
		}
	}

	if r.Outbox != nil {
		age := r.OutboxAge
		if age <= 0 {
			age = DefaultOutboxAge
		}
		n, err := r.Outbox.Purge(ctx, age)
		if err != nil {
			errs = append(errs, err)
		} else if n > 0 {
			log.Info("outbox retention", zap.Int64("purged", n), zap.Duration("age", age))
		}
	}

	return errors.Join(errs...)
}

// Schedule registers Run on c at schedule, or DefaultSchedule when schedule is empty
func (r *Retention) Schedule(c *cron.Cron, schedule string) (cron.EntryID, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return c.AddFunc(schedule, func() {
		ctx := context.Background()
		if r.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.Timeout)
			defer cancel()
		}
		if err := r.Run(ctx); err != nil {
			logger.OrNop(r.Logger).Error("scheduled retention failed", zap.Error(err))
		}
	})
}
