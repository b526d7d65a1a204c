// routes.go
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
	"github.com/localnerve/autofin/internal/middleware"
)

// Handlers groups every route handler
type Handlers struct {
	Session    *SessionHandler
	Customer   *CustomerHandler
	Dealer     *DealerHandler
	Admin      *AdminHandler
	Privileged *PrivilegedHandler
	Chat       *ChatHandler
	Changes    *ChangesHandler
}

// Mount registers the /api routes on api
func (h *Handlers) Mount(api fiber.Router, guard *middleware.Guard) {
	// Public
	api.Get("/dealers/:slug", h.Dealer.Lookup)
	api.Post("/auth/signup", h.Session.SignUp)
	api.Post("/auth/signin", h.Session.SignIn)
	api.Post("/auth/signout", h.Session.SignOut)
	api.Post("/applications", guard.Optional(), h.Customer.Submit)

	// Any signed-in role
	api.Get("/session", guard.Authenticated(), h.Session.Current)
	api.Get("/changes", guard.Authenticated(), h.Changes.Stream)
	api.Post("/chat", guard.Authenticated(), h.Chat.Chat)

	// Customer dashboard
	me := api.Group("/me", guard.AuthCustomer())
	me.Get("/applications", h.Customer.List)
	me.Post("/applications/claim", h.Customer.Claim)
	me.Get("/applications/:id", h.Customer.Get)
	me.Patch("/applications/:id", h.Customer.Update)
	me.Get("/applications/:id/documents", h.Customer.ListDocuments)
	me.Post("/applications/:id/documents", h.Customer.UploadDocument)
	me.Get("/applications/:id/activity", h.Customer.ListActivity)
	me.Get("/applications/:id/messages", h.Customer.Thread)
	me.Post("/applications/:id/messages", h.Customer.Send)
	me.Get("/notifications", h.Customer.ListNotifications)
	me.Get("/notifications/unread", h.Customer.UnreadCount)
	me.Post("/notifications/read-all", h.Customer.MarkAllRead)
	me.Post("/notifications/:id/read", h.Customer.MarkRead)

	// Dealer console
	dealer := api.Group("/dealer", guard.AuthDealer())
	dealer.Get("/profile", h.Dealer.Profile)
	dealer.Get("/applications", h.Dealer.List)
	dealer.Get("/applications/:id", h.Dealer.Get)

	// Admin console
	admin := api.Group("/admin", guard.AuthAdmin())
	admin.Get("/applications", h.Admin.Search)
	admin.Post("/applications/bulk/delete", h.Admin.BulkDelete)
	admin.Post("/applications/bulk/status", h.Admin.BulkStatus)
	admin.Post("/applications/bulk/notify", h.Admin.BulkNotify)
	admin.Post("/applications/bulk/export", h.Admin.BulkExport)
	admin.Get("/applications/:id", h.Admin.Get)
	admin.Put("/applications/:id", h.Admin.Update)
	admin.Delete("/applications/:id", h.Admin.Delete)
	admin.Post("/applications/:id/status", h.Admin.UpdateStatus)
	admin.Post("/applications/:id/dealer", h.Admin.AssignDealer)
	admin.Get("/applications/:id/activity", h.Admin.ListActivity)
	admin.Get("/applications/:id/documents", h.Admin.ListDocuments)
	admin.Get("/applications/:id/messages", h.Admin.Thread)
	admin.Post("/applications/:id/messages", h.Admin.Send)
	admin.Get("/applications/:id/flags", h.Admin.ListFlags)
	admin.Post("/applications/:id/flags", h.Admin.CreateFlag)
	admin.Get("/flags", h.Admin.TriageQueue)
	admin.Post("/flags/:id/resolve", h.Admin.ResolveFlag)
	admin.Get("/settings", h.Admin.GetSettings)
	admin.Put("/settings", h.Admin.PutSettings)

	// Privileged
	admin.Get("/users", h.Privileged.ListUsers)
	admin.Put("/users/:id/role", h.Privileged.UpdateRole)
	admin.Post("/dealers", h.Privileged.CreateDealer)
}
