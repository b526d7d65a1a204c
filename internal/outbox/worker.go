// worker.go
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

// Package outbox delivers side effects recorded in the outbox_events table.
package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/localnerve/autofin/internal/metrics"
	"github.com/localnerve/autofin/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Handler delivers one event. A returned error schedules a retry.
type Handler func(ctx context.Context, event *models.OutboxEvent) error

// Worker polls the outbox and runs the handler registered for each event type
type Worker struct {
	db           *gorm.DB
	handlers     map[string]Handler
	logger       *zap.Logger
	pollInterval time.Duration
	batchSize    int
	baseDelay    time.Duration
	stuckAfter   time.Duration
	kick         chan struct{}
	now          func() time.Time
}

// Option configures a Worker
type Option func(*Worker)

// WithPollInterval sets the poll period
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithBatchSize sets the number of events claimed per poll
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithBaseDelay sets the first retry delay; each further retry doubles it
func WithBaseDelay(d time.Duration) Option {
	return func(w *Worker) { w.baseDelay = d }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// NewWorker creates a Worker
func NewWorker(db *gorm.DB, handlers map[string]Handler, logger *zap.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Worker{
		db:           db,
		handlers:     handlers,
		logger:       logger,
		pollInterval: 5 * time.Second,
		batchSize:    25,
		baseDelay:    30 * time.Second,
		stuckAfter:   5 * time.Minute,
		kick:         make(chan struct{}, 1),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Kick requests a poll without waiting for the ticker
func (w *Worker) Kick() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Start runs the worker until ctx is done
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("outbox worker started",
		zap.Duration("pollInterval", w.pollInterval),
		zap.Int("batchSize", w.batchSize))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("outbox worker stopped")
			return
		case <-ticker.C:
		case <-w.kick:
		}
		for w.ProcessBatch(ctx) == w.batchSize {
			if ctx.Err() != nil {
				break
			}
		}
	}
}

// ProcessBatch claims and delivers up to one batch, returning the number claimed
func (w *Worker) ProcessBatch(ctx context.Context) int {
	now := w.now()
	db := w.db.WithContext(ctx)

	// events left in processing by a crashed worker go back to pending
	if err := db.Model(&models.OutboxEvent{}).
		Where("status = ? AND updated_at < ?", models.OutboxStatusProcessing, now.Add(-w.stuckAfter)).
		Update("status", models.OutboxStatusPending).Error; err != nil {
		w.logger.Warn("failed to reset stuck outbox events", zap.Error(err))
	}

	var events []models.OutboxEvent
	err := db.Transaction(func(tx *gorm.DB) error {
		q := tx.Where("status = ?", models.OutboxStatusPending).
			Where("(next_retry_at IS NULL OR next_retry_at <= ?)", now).
			Order("created_at ASC").
			Order("id ASC").
			Limit(w.batchSize)
		switch tx.Dialector.Name() {
		case "postgres", "mysql":
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Find(&events).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		ids := make([]uint64, len(events))
		for i := range events {
			ids[i] = events[i].ID
		}
		return tx.Model(&models.OutboxEvent{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{"status": models.OutboxStatusProcessing, "updated_at": now}).Error
	})
	if err != nil {
		w.logger.Error("failed to claim outbox events", zap.Error(err))
		return 0
	}

	for i := range events {
		w.deliver(ctx, &events[i])
	}
	return len(events)
}

func (w *Worker) deliver(ctx context.Context, event *models.OutboxEvent) {
	var err error
	if handler, ok := w.handlers[event.EventType]; ok {
		err = handler(ctx, event)
	} else {
		err = fmt.Errorf("no handler for event type %q", event.EventType)
	}
	metrics.OutboxDeliveries.WithLabelValues(event.EventType, metrics.Result(err)).Inc()

	now := w.now()
	attempts := event.RetryCount + 1
	updates := map[string]interface{}{
		"processed_at": now,
		"retry_count":  attempts,
		"updated_at":   now,
	}

	fields := []zap.Field{
		zap.Uint64("eventID", event.ID),
		zap.String("eventType", event.EventType),
		zap.Int("attempt", attempts),
	}

	switch {
	case err == nil:
		updates["status"] = models.OutboxStatusCompleted
		updates["error"] = nil
		updates["next_retry_at"] = nil
		w.logger.Debug("outbox event delivered", fields...)
	case attempts > event.MaxRetries:
		msg := err.Error()
		updates["status"] = models.OutboxStatusFailed
		updates["error"] = &msg
		updates["next_retry_at"] = nil
		w.logger.Error("outbox event failed permanently", append(fields, zap.Error(err))...)
	default:
		msg := err.Error()
		next := now.Add(w.baseDelay * time.Duration(1<<event.RetryCount))
		updates["status"] = models.OutboxStatusPending
		updates["error"] = &msg
		updates["next_retry_at"] = &next
		w.logger.Warn("outbox event failed, will retry", append(fields, zap.Error(err), zap.Time("nextRetryAt", next))...)
	}

	if uerr := w.db.WithContext(ctx).Model(event).Updates(updates).Error; uerr != nil {
		w.logger.Error("failed to record outbox delivery", append(fields, zap.Error(uerr))...)
	}
}

// Purge removes completed events older than age
func (w *Worker) Purge(ctx context.Context, age time.Duration) (int64, error) {
	res := w.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.OutboxStatusCompleted, w.now().Add(-age)).
		Delete(&models.OutboxEvent{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge outbox: %w", res.Error)
	}
	return res.RowsAffected, nil
}
