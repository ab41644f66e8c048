// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus metrics for the signage daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Content resolution
	resolverResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvsaude_resolver_resolved_total",
		Help: "Content resolutions by path taken",
	}, []string{"path"}) // path=locality|global_playlist|all_videos

	resolverFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvsaude_resolver_fallback_total",
		Help: "Resolver fallbacks by reason",
	}, []string{"reason"}) // reason=no_match|locality_error

	// Remote commands
	commandsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvsaude_commands_dispatched_total",
		Help: "Remote commands accepted into the mailbox",
	}, []string{"command"})

	commandsBlockedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvsaude_commands_blocked_total",
		Help: "Remote commands rejected by the dispatch blocklist",
	}, []string{"command"})

	// Announcements
	exhibitionsLoggedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tvsaude_exhibitions_logged_total",
		Help: "Announcement exhibition audit records written",
	})

	exhibitionLogErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tvsaude_exhibition_log_errors_total",
		Help: "Failed exhibition audit writes (best effort, never fatal)",
	})

	recurringFiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tvsaude_recurring_announcements_fired_total",
		Help: "Recurring announcement jobs fired",
	})

	// Sync bridge
	syncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvsaude_sync_runs_total",
		Help: "Sync bridge runs by kind and outcome",
	}, []string{"kind", "outcome"}) // kind=full|urgent|one, outcome=ok|error

	syncAnnouncements = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvsaude_sync_announcements",
		Help: "Announcements in the cache file after the last full sync",
	})

	syncUrgentAnnouncements = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvsaude_sync_urgent_announcements",
		Help: "Urgent announcements found by the last sync",
	})
)

// ResolverResolved records a successful resolution by path taken.
func ResolverResolved(path string) { resolverResolvedTotal.WithLabelValues(path).Inc() }

// ResolverFallback records a fallback by reason.
func ResolverFallback(reason string) { resolverFallbackTotal.WithLabelValues(reason).Inc() }

// CommandDispatched records an accepted command.
func CommandDispatched(command string) { commandsDispatchedTotal.WithLabelValues(command).Inc() }

// CommandBlocked records a blocklisted dispatch attempt.
func CommandBlocked(command string) { commandsBlockedTotal.WithLabelValues(command).Inc() }

// ExhibitionLogged records one exhibition audit write.
func ExhibitionLogged() { exhibitionsLoggedTotal.Inc() }

// ExhibitionLogError records a failed exhibition audit write.
func ExhibitionLogError() { exhibitionLogErrors.Inc() }

// RecurringFired records one recurring announcement firing.
func RecurringFired() { recurringFiredTotal.Inc() }

// SyncRun records a bridge run outcome.
func SyncRun(kind, outcome string) { syncRunsTotal.WithLabelValues(kind, outcome).Inc() }

// SyncCounts records the totals of the last sync.
func SyncCounts(total, urgent int) {
	syncAnnouncements.Set(float64(total))
	syncUrgentAnnouncements.Set(float64(urgent))
}
