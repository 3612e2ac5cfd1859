package service

import (
	"context"
	"fmt"

	"github.com/focep/collecte-engine/generic"
)

// AuditTrail returns the audit entries matching filter, oldest first. The
// backend must implement generic.AuditLog.
func (s *Service) AuditTrail(ctx context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("audit trail: %w", generic.ErrInvalidPeriod)
	}
	log, ok := s.backend.(generic.AuditLog)
	if !ok {
		return nil, fmt.Errorf("audit trail: %w", generic.ErrStoreRequired)
	}
	entries, err := log.QueryAudit(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("audit trail: %w", err)
	}
	return entries, nil
}
