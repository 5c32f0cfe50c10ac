package core

// scheduler.go runs periodic housekeeping:
//  1. Sweep staging directories whose reports were never downloaded
//  2. Purge audited runs older than the retention period
//
// The loop is long-running and stops when its context is cancelled. A failed
// job is logged and retried on the next tick; it never stops the server.

import (
	"context"
	"log/slog"
	"time"
)

// MaintenanceConfig holds configuration for the maintenance loop.
// Zero values fall back to defaults.
type MaintenanceConfig struct {
	StorageTTL         time.Duration // Age after which an unclaimed stage is removed (default: 1h)
	AuditRetentionDays int           // Days to keep run records; <= 0 keeps them forever
	Interval           time.Duration // How often to run (default: 10m)
}

func (c MaintenanceConfig) withDefaults() MaintenanceConfig {
	if c.StorageTTL <= 0 {
		c.StorageTTL = time.Hour
	}
	if c.Interval <= 0 {
		c.Interval = 10 * time.Minute
	}
	return c
}

// StartMaintenance runs one maintenance cycle immediately, then every
// cfg.Interval until ctx is cancelled.
func (s *Service) StartMaintenance(ctx context.Context, cfg MaintenanceConfig) {
	cfg = cfg.withDefaults()
	slog.Info("maintenance scheduler started",
		"storage_ttl", cfg.StorageTTL,
		"audit_retention_days", cfg.AuditRetentionDays,
		"interval", cfg.Interval,
	)

	s.runMaintenance(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			s.runMaintenance(ctx, cfg)
		}
	}
}

// runMaintenance performs one sweep + purge cycle.
func (s *Service) runMaintenance(ctx context.Context, cfg MaintenanceConfig) {
	start := time.Now()

	swept, err := s.store.Sweep(cfg.StorageTTL)
	if err != nil {
		slog.Error("staging sweep failed", "error", err)
	} else if swept > 0 {
		slog.Info("removed abandoned reports", "stages_removed", swept)
	}

	if cfg.AuditRetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.AuditRetentionDays)
		purged, err := s.audit.PurgeRuns(ctx, cutoff)
		if err != nil {
			slog.Error("audit purge failed", "error", err)
		} else if purged > 0 {
			slog.Info("purged old runs", "runs_purged", purged)
		}
	}

	slog.Debug("maintenance completed", "duration_ms", time.Since(start).Milliseconds())
}
