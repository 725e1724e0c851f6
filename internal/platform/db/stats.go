package db

import (
	"github.com/rs/zerolog"
)

// PoolStats represents database connection statistics.
type PoolStats struct {
	OpenConns    int    `json:"open_conns"`
	InUse        int    `json:"in_use"`
	Idle         int    `json:"idle"`
	MaxOpenConns int    `json:"max_open_conns"`
	WaitCount    int64  `json:"wait_count"`
	WaitDuration string `json:"wait_duration"`
	Healthy      bool   `json:"healthy"`
}

// GetPoolStats returns connection statistics for the gateway.
func GetPoolStats(g *Gateway) *PoolStats {
	stat := g.db.Stats()
	return &PoolStats{
		OpenConns:    stat.OpenConnections,
		InUse:        stat.InUse,
		Idle:         stat.Idle,
		MaxOpenConns: stat.MaxOpenConnections,
		WaitCount:    stat.WaitCount,
		WaitDuration: stat.WaitDuration.String(),
		Healthy:      stat.OpenConnections > 0,
	}
}

// MarshalZerologObject lets the stats be attached to a log event with Object.
func (s *PoolStats) MarshalZerologObject(e *zerolog.Event) {
	e.Int("open_conns", s.OpenConns).
		Int("in_use", s.InUse).
		Int("idle", s.Idle).
		Int("max_open_conns", s.MaxOpenConns).
		Int64("wait_count", s.WaitCount).
		Str("wait_duration", s.WaitDuration).
		Bool("healthy", s.Healthy)
}
