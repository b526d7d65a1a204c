// common.go
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

package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/lifecycle"
	"github.com/localnerve/autofin/internal/middleware"
	"github.com/localnerve/autofin/internal/services"
	"github.com/localnerve/autofin/internal/types"
	"github.com/localnerve/autofin/internal/utils"
)

// serviceError renders a service failure with the status its sentinel implies
func serviceError(c *fiber.Ctx, err error, op string) error {
	var fe *fiber.Error
	var ce *types.CustomError
	if errors.As(err, &fe) || errors.As(err, &ce) {
		return err
	}

	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return utils.ValidationErrorResponse(c, verr.Fields)
	case errors.Is(err, services.ErrValidation), errors.Is(err, lifecycle.ErrInvalidStatus):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "validation")
	case errors.Is(err, services.ErrNotFound):
		return utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, services.ErrVersionConflict):
		return utils.VersionErrorResponse(c)
	case errors.Is(err, services.ErrConflict):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict, "conflict")
	case errors.Is(err, services.ErrForbidden):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "authorization")
	case errors.Is(err, services.ErrUnavailable):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusServiceUnavailable, op)
	case errors.Is(err, services.ErrUpstream):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadGateway, op)
	case errors.Is(err, context.DeadlineExceeded):
		return utils.ErrorResponse(c, "Request timed out", fiber.StatusGatewayTimeout, "persistence")
	}
	return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "persistence")
}

// invalidInput is the response for an unparsable body
func invalidInput(c *fiber.Ctx, op string) error {
	return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, op+".validation.input")
}

// actorOf returns the actor the guard resolved for this request
func actorOf(c *fiber.Ctx) (auth.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return actor, &types.CustomError{Code: fiber.StatusUnauthorized, Message: "no resolved session", Type: "authorization.session"}
	}
	return actor, nil
}

// queryInt reads a positive integer query value, or def when absent or malformed
func queryInt(c *fiber.Ctx, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}

// queryIntPtr reads an optional integer query value
func queryIntPtr(c *fiber.Ctx, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &services.ValidationError{Fields: map[string]string{key: "must be an integer"}}
	}
	return &n, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates. A plain date used as
// an upper bound covers the whole day.
func queryTime(c *fiber.Ctx, key string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, &services.ValidationError{Fields: map[string]string{key: "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"}}
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// pathUint64 parses a numeric path parameter
func pathUint64(c *fiber.Ctx, key string) (uint64, error) {
	n, err := strconv.ParseUint(c.Params(key), 10, 64)
	if err != nil {
		return 0, &services.ValidationError{Fields: map[string]string{key: "must be a positive integer"}}
	}
	return n, nil
}

// versionPtr converts an optional flexible version to the service form
func versionPtr(v *types.FlexUint64) *uint64 {
	if v == nil {
		return nil
	}
	n := v.Uint64()
	return &n
}

// idList is a bulk selection accepted as a single id or an array
type idList struct {
	IDs types.FlexList[string] `json:"ids"`
}
