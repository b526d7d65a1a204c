// status.go
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

// Package lifecycle owns the application status pipeline. Status is
// authoritative; the stage shown in progress indicators is derived from it.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/localnerve/autofin/internal/models"
)

// Status is an application lifecycle value
type Status string

const (
	StatusSubmitted        Status = "submitted"
	StatusUnderReview      Status = "under_review"
	StatusPendingDocuments Status = "pending_documents"
	StatusPreApproved      Status = "pre_approved"
	StatusVehicleSelection Status = "vehicle_selection"
	StatusFinalApproval    Status = "final_approval"
	StatusFinalized        Status = "finalized"
)

// Pipeline is the fixed status order. Stage n is Pipeline[n-1].
var Pipeline = []Status{
	StatusSubmitted,
	StatusUnderReview,
	StatusPendingDocuments,
	StatusPreApproved,
	StatusVehicleSelection,
	StatusFinalApproval,
	StatusFinalized,
}

// ErrInvalidStatus is returned for values outside the pipeline
var ErrInvalidStatus = errors.New("invalid application status")

// ParseStatus validates s
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if st.Stage() == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Stage returns the 1-based pipeline position, or 0 for an unknown status
func (s Status) Stage() int {
	for i, p := range Pipeline {
		if p == s {
			return i + 1
		}
	}
	return 0
}

// Label is the human readable status used in notification text
func (s Status) Label() string {
	switch s {
	case StatusSubmitted:
		return "Submitted"
	case StatusUnderReview:
		return "Under Review"
	case StatusPendingDocuments:
		return "Pending Documents"
	case StatusPreApproved:
		return "Pre-Approved"
	case StatusVehicleSelection:
		return "Vehicle Selection"
	case StatusFinalApproval:
		return "Final Approval"
	case StatusFinalized:
		return "Finalized"
	}
	return string(s)
}

// StatusForStage is the inverse of Stage
func StatusForStage(stage int) (Status, bool) {
	if stage < 1 || stage > len(Pipeline) {
		return "", false
	}
	return Pipeline[stage-1], true
}

// Change describes one applied transition
type Change struct {
	ApplicationID string `json:"application_id"`
	From          Status `json:"from"`
	To            Status `json:"to"`
	Stage         int    `json:"stage"`
}

// Transition is the only writer of Status and CurrentStage. Any pipeline
// status may follow any other, including itself; staff move applications
// backwards when documents are missing.
func Transition(app *models.Application, to Status, now time.Time) (Change, error) {
	if to.Stage() == 0 {
		return Change{}, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	change := Change{
		ApplicationID: app.ID,
		From:          Status(app.Status),
		To:            to,
		Stage:         to.Stage(),
	}

	app.Status = string(to)
	app.CurrentStage = to.Stage()
	app.UpdatedAt = now
	app.Version++

	return change, nil
}

// Initialize puts a new application at the start of the pipeline
func Initialize(app *models.Application) {
	app.Status = string(StatusSubmitted)
	app.CurrentStage = StatusSubmitted.Stage()
}

// Consistent reports whether CurrentStage agrees with Status
func Consistent(app *models.Application) bool {
	stage := Status(app.Status).Stage()
	return stage != 0 && stage == app.CurrentStage
}
