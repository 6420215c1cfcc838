package server

import (
	"sync/atomic"
	"time"
)

// Stats holds live request counters.
type Stats struct {
	requests     atomic.Int64
	notFound     atomic.Int64
	badRequests  atomic.Int64
	clientErrors atomic.Int64
	serverErrors atomic.Int64
	canceled     atomic.Int64
	upgrades     atomic.Int64
	activeConns  atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Requests     int64     `json:"requests"`
	NotFound     int64     `json:"not_found"`
	BadRequests  int64     `json:"bad_requests"`
	ClientErrors int64     `json:"client_errors"`
	ServerErrors int64     `json:"server_errors"`
	Canceled     int64     `json:"canceled"`
	Upgrades     int64     `json:"upgrades"`
	ActiveConns  int64     `json:"active_connections"`
	CollectedAt  time.Time `json:"collected_at"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Requests:     s.requests.Load(),
		NotFound:     s.notFound.Load(),
		BadRequests:  s.badRequests.Load(),
		ClientErrors: s.clientErrors.Load(),
		ServerErrors: s.serverErrors.Load(),
		Canceled:     s.canceled.Load(),
		Upgrades:     s.upgrades.Load(),
		ActiveConns:  s.activeConns.Load(),
		CollectedAt:  time.Now(),
	}
}
