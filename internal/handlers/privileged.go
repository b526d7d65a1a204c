// privileged.go
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
	"github.com/localnerve/autofin/internal/services"
	"github.com/localnerve/autofin/internal/utils"
)

// PrivilegedHandler manages identities and dealers. Super admins only.
type PrivilegedHandler struct {
	Accounts *services.AccountService
	Dealers  *services.DealerService
}

type roleBody struct {
	Role string `json:"role"`
}

// ListUsers handles GET /api/admin/users?role=&page=&page_size=
// @Summary List identities
// @Tags Privileged
// @Produce json
// @Param role query string false "Role filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Security CookieAuth
// @Router /admin/users [get]
func (h *PrivilegedHandler) ListUsers(c *fiber.Ctx) error {
	page, err := h.Accounts.List(c.UserContext(), c.Query("role"), queryInt(c, "page", 1), queryInt(c, "page_size", 0))
	if err != nil {
		return serviceError(c, err, "users")
	}
	return utils.PageResponse(c, page.Items, page.Total, page.Page, page.PageSize)
}

// UpdateRole handles PUT /api/admin/users/:id/role
// @Summary Change a role
// @Tags Privileged
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param body body roleBody true "Role"
// @Success 200 {object} models.Account
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/users/{id}/role [put]
func (h *PrivilegedHandler) UpdateRole(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var body roleBody
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "users")
	}
	account, err := h.Accounts.UpdateRole(c.UserContext(), actor.UserID, c.Params("id"), body.Role)
	if err != nil {
		return serviceError(c, err, "users")
	}
	return c.Status(fiber.StatusOK).JSON(account)
}

// CreateDealer handles POST /api/admin/dealers
// @Summary Create a dealer
// @Description Promotes the identity to dealer and creates its profile and intake slug
// @Tags Privileged
// @Accept json
// @Produce json
// @Param body body services.DealerInput true "Dealer"
// @Success 201 {object} dealerProfileResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/dealers [post]
func (h *PrivilegedHandler) CreateDealer(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var in services.DealerInput
	if err := c.BodyParser(&in); err != nil {
		return invalidInput(c, "dealers")
	}
	profile, err := h.Dealers.Create(c.UserContext(), actor.UserID, in)
	if err != nil {
		return serviceError(c, err, "dealers")
	}
	return c.Status(fiber.StatusCreated).JSON(dealerProfileResponse{
		DealerProfile: profile,
		IntakeLink:    h.Dealers.IntakeLink(profile),
	})
}
