package service

import (
	"context"
	"fmt"

	"paintpos/internal/model"
	"paintpos/internal/repository"
)

type AuditService interface {
	ListLogs(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) ListLogs(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	logs, total, err := s.auditRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}
	return logs, total, nil
}
