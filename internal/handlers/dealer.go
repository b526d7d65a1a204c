// dealer.go
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
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/autofin/internal/models"
	"github.com/localnerve/autofin/internal/services"
	"github.com/localnerve/autofin/internal/utils"
	"go.uber.org/zap"
)

// DealerHandler serves the dealer console and the public intake lookup
type DealerHandler struct {
	Dealers *services.DealerService
	Apps    *services.ApplicationService
	Logger  *zap.Logger
}

type dealerProfileResponse struct {
	*models.DealerProfile
	IntakeLink string `json:"intake_link"`
}

// profile loads the caller's dealer profile
func (h *DealerHandler) profile(c *fiber.Ctx) (*models.DealerProfile, error) {
	actor, err := actorOf(c)
	if err != nil {
		return nil, err
	}
	return h.Dealers.GetByUser(c.UserContext(), actor.UserID)
}

// Profile handles GET /api/dealer/profile
// @Summary My dealer profile
// @Tags Dealer
// @Produce json
// @Success 200 {object} dealerProfileResponse
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /dealer/profile [get]
func (h *DealerHandler) Profile(c *fiber.Ctx) error {
	p, err := h.profile(c)
	if err != nil {
		return serviceError(c, err, "dealer")
	}
	return c.Status(fiber.StatusOK).JSON(dealerProfileResponse{DealerProfile: p, IntakeLink: h.Dealers.IntakeLink(p)})
}

// List handles GET /api/dealer/applications?status=&page=
// @Summary Applications assigned to me
// @Tags Dealer
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Success 200 {object} map[string]interface{}
// @Security CookieAuth
// @Router /dealer/applications [get]
func (h *DealerHandler) List(c *fiber.Ctx) error {
	p, err := h.profile(c)
	if err != nil {
		return serviceError(c, err, "dealer")
	}
	page, err := h.Apps.ListForDealer(c.UserContext(), p.ID, c.Query("status"), queryInt(c, "page", 1))
	if err != nil {
		return serviceError(c, err, "dealer")
	}
	return utils.PageResponse(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get handles GET /api/dealer/applications/:id
// @Summary One assigned application
// @Tags Dealer
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} models.Application
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /dealer/applications/{id} [get]
func (h *DealerHandler) Get(c *fiber.Ctx) error {
	p, err := h.profile(c)
	if err != nil {
		return serviceError(c, err, "dealer")
	}
	app, err := h.Apps.GetForDealer(c.UserContext(), p.ID, c.Params("id"))
	if err != nil {
		return serviceError(c, err, "dealer")
	}
	return c.Status(fiber.StatusOK).JSON(app)
}

// Lookup handles GET /api/dealers/:slug for the public intake form
// @Summary Dealer by intake slug
// @Tags Dealer
// @Produce json
// @Param slug path string true "Dealer slug"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /dealers/{slug} [get]
func (h *DealerHandler) Lookup(c *fiber.Ctx) error {
	p, err := h.Dealers.GetBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return serviceError(c, err, "dealer")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"dealership_name": p.DealershipName,
		"slug":            p.Slug,
		"intake_link":     h.Dealers.IntakeLink(p),
	})
}
