// metrics.go
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

// Package metrics holds the domain counters exported at /metrics next to
// the HTTP metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StatusTransitions counts applied status changes by target status and mode
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autofin",
		Name:      "status_transitions_total",
		Help:      "Application status transitions applied.",
	}, []string{"status", "mode"})

	// OutboxDeliveries counts outbox handler outcomes
	OutboxDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autofin",
		Name:      "outbox_deliveries_total",
		Help:      "Outbox event delivery attempts.",
	}, []string{"event_type", "result"})

	// RoleAssignments counts role metadata writes
	RoleAssignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autofin",
		Name:      "role_assignments_total",
		Help:      "Role metadata writes.",
	}, []string{"role", "result"})

	// RealtimeSubscribers is the number of open change-feed streams
	RealtimeSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "autofin",
		Name:      "realtime_subscribers",
		Help:      "Open change feed subscriptions.",
	})
)

// Result labels an outcome
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
