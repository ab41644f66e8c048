// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ubsdigital/tvsaude/internal/domain"
)

// PingChecker wraps any Ping-style dependency (SQLite, Redis) as a Checker.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker creates a checker that is healthy while ping returns nil.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "reachable"}
}

// DirChecker verifies the data directory exists and is writable; the sync
// bridge cannot replace its cache files otherwise.
type DirChecker struct {
	name string
	path string
}

// NewDirChecker creates a writability checker for path.
func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: fmt.Sprintf("%s is not a directory", c.path)}
	}

	// A stat alone misses read-only mounts; proving writability needs a write.
	probe := filepath.Join(c.path, ".probe-"+uuid.NewString())
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	os.Remove(probe)

	return CheckResult{Status: StatusHealthy, Message: "writable"}
}

// SyncChecker watches the bridge: a down server degrades, a stale cache is
// unhealthy because displays would be showing outdated announcements.
type SyncChecker struct {
	maxAge time.Duration
	status func() domain.SyncStatus
}

// NewSyncChecker creates a checker over the bridge's status. maxAge bounds how
// old the last successful sync may be.
func NewSyncChecker(maxAge time.Duration, status func() domain.SyncStatus) *SyncChecker {
	return &SyncChecker{maxAge: maxAge, status: status}
}

func (c *SyncChecker) Name() string { return "sync" }

func (c *SyncChecker) Check(context.Context) CheckResult {
	s := c.status()
	if s.LastSync.IsZero() {
		return CheckResult{Status: StatusUnhealthy, Message: "no successful sync yet"}
	}
	if age := time.Since(s.LastSync); age > c.maxAge {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("last sync %s ago", age.Round(time.Second)),
		}
	}
	if !s.ServerUp {
		return CheckResult{Status: StatusDegraded, Message: "server unreachable, serving cached announcements"}
	}
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d announcements cached", s.TotalCount)}
}
