// health.go
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
	"fmt"

	"github.com/localnerve/autofin/internal/config"
	"github.com/localnerve/autofin/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Authorizer   string            `json:"authorizer"`
	Redis        string            `json:"redis,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

func (r *HealthCheckResult) fail(component, detail string, err error) {
	r.Status = "unhealthy"
	r.Details[detail] = err.Error()
	msg := fmt.Sprintf("%s: %v", component, err)
	if r.ErrorMessage == "" {
		r.ErrorMessage = msg
	} else {
		r.ErrorMessage += "; " + msg
	}
}

// HealthCheck checks the database, the Authorizer service and, when
// configured, Redis
func HealthCheck(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *zap.Logger) HealthCheckResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	sqlDB, err := db.DB()
	if err != nil {
		result.Database = "error"
		result.fail("database connection error", "database_error", err)
	} else if err := sqlDB.PingContext(ctx); err != nil {
		result.Database = "unreachable"
		result.fail("database ping failed", "database_ping_error", err)
	} else {
		result.Database = "ok"
		result.Details["database_type"] = cfg.DBType
		result.Details["database_name"] = cfg.DBDatabase
	}

	if err := utils.PingService(ctx, cfg.AuthzURL); err != nil {
		result.Authorizer = "unreachable"
		result.fail("authorizer ping failed", "authorizer_error", err)
	} else {
		result.Authorizer = "ok"
		result.Details["authorizer_url"] = cfg.AuthzURL
	}

	if cfg.RedisAddr != "" {
		if err := utils.PingAddress(ctx, cfg.RedisAddr); err != nil {
			result.Redis = "unreachable"
			result.fail("redis ping failed", "redis_error", err)
		} else {
			result.Redis = "ok"
		}
	}

	if result.Status == "healthy" {
		logger.Debug("health check passed")
	} else {
		logger.Warn("health check failed", zap.String("error", result.ErrorMessage))
	}
	return result
}
