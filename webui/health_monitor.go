// Package webui provides the embedded web application for the ADEI Explorer.
// This file contains the DatabaseHealthMonitor for tracking database reachability.
package webui

import (
	"context"
	"sync"
	"time"

	"adei_backend/logging"
	"adei_backend/metrics"
)

// Pinger is the narrow interface the monitor checks against.
// *db.Database satisfies it; tests substitute fakes.
type Pinger interface {
	Ping() error
}

// DatabaseHealthMonitor periodically pings the database and records the
// result in the MetricsStore, which is where /health and /api/stats read
// system health from. A status change fires the optional callback, which
// the server uses to push a system_status frame to connected clients.
//
// Usage:
//
//	monitor := NewDatabaseHealthMonitor(database, store, DefaultHealthMonitorConfig())
//	go monitor.Start(ctx)
type DatabaseHealthMonitor struct {
	db             Pinger
	store          metrics.MetricsCollector
	checkInterval  time.Duration
	onStatusChange func(connected bool)
	log            *logging.Logger

	mu        sync.Mutex
	checked   bool
	connected bool
}

// HealthMonitorConfig configures the DatabaseHealthMonitor behavior.
type HealthMonitorConfig struct {
	// CheckInterval is how often to ping the database (default: 30s)
	CheckInterval time.Duration
	// OnStatusChange is called when reachability flips
	OnStatusChange func(connected bool)
	// Logger for diagnostic output
	Logger *logging.Logger
}

// DefaultHealthMonitorConfig returns a default configuration.
func DefaultHealthMonitorConfig() HealthMonitorConfig {
	return HealthMonitorConfig{
		CheckInterval: 30 * time.Second,
	}
}

// NewDatabaseHealthMonitor creates a DatabaseHealthMonitor over the given
// database and metrics store.
func NewDatabaseHealthMonitor(db Pinger, store metrics.MetricsCollector, config HealthMonitorConfig) *DatabaseHealthMonitor {
	interval := config.CheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	log := config.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	return &DatabaseHealthMonitor{
		db:             db,
		store:          store,
		checkInterval:  interval,
		onStatusChange: config.OnStatusChange,
		log:            log.Named("health"),
	}
}

// Start begins the periodic ping loop. It runs until the context is
// cancelled and blocks, so it should typically be run in a goroutine.
func (m *DatabaseHealthMonitor) Start(ctx context.Context) {
	// First check immediately so the store is populated before traffic
	m.CheckNow()

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("health monitor stopping")
			return
		case <-ticker.C:
			m.CheckNow()
		}
	}
}

// CheckNow performs an immediate ping and records the result.
func (m *DatabaseHealthMonitor) CheckNow() {
	err := m.db.Ping()
	connected := err == nil

	m.store.UpdateDatabaseStatus(connected)

	m.mu.Lock()
	changed := !m.checked || m.connected != connected
	m.checked = true
	m.connected = connected
	m.mu.Unlock()

	if !changed {
		return
	}

	if connected {
		m.log.Info("database reachable")
	} else {
		m.log.Warnw("database unreachable", "error", err.Error())
	}
	if m.onStatusChange != nil {
		m.onStatusChange(connected)
	}
}

// Connected reports the last check's result. It is false before the first
// check completes.
func (m *DatabaseHealthMonitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checked && m.connected
}
