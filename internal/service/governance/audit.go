// Package governance implements audit read access and retention sweeping.
package governance

import (
	"context"
	"log/slog"
	"time"

	"schemabridge/internal/domain"
)

// AuditService provides filtered read access to the audit trail.
type AuditService struct {
	repo domain.AuditRepository
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo domain.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// List returns a filtered, paginated list of audit events, newest first.
func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, int64, error) {
	if filter.RiskLevel != nil {
		switch *filter.RiskLevel {
		case domain.RiskLow, domain.RiskMedium, domain.RiskHigh, domain.RiskCritical:
		default:
			return nil, 0, domain.ErrValidation("unknown risk level %q", *filter.RiskLevel)
		}
	}
	return s.repo.List(ctx, filter)
}

// Pruner deletes audit events whose retention window has elapsed.
type Pruner interface {
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}

// RetentionSweeper periodically removes expired audit events. Pruning is the
// only deletion path for the audit trail; the core services never delete.
type RetentionSweeper struct {
	pruner Pruner
	clock  domain.Clock
	logger *slog.Logger
}

// NewRetentionSweeper creates a new RetentionSweeper.
func NewRetentionSweeper(pruner Pruner, clock domain.Clock, logger *slog.Logger) *RetentionSweeper {
	return &RetentionSweeper{pruner: pruner, clock: clock, logger: logger}
}

// Sweep deletes expired events and logs the outcome. Errors are logged and
// returned; a failed sweep is retried on the next scheduled run.
func (s *RetentionSweeper) Sweep(ctx context.Context) (int64, error) {
	now := s.clock.Now().UTC()
	deleted, err := s.pruner.PruneExpired(ctx, now)
	if err != nil {
		s.logger.Error("audit retention sweep failed", "error", err)
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("audit retention sweep completed", "deleted", deleted)
	}
	return deleted, nil
}
