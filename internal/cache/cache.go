package cache

import (
	"context"
	"time"

	"atlaspos/backend/internal/domain"
)

// SummaryCache holds the per-tenant ledger summary. Invalidate is called on
// every mutation that moves a balance so a stale total never outlives the
// write that changed it.
type SummaryCache interface {
	Get(ctx context.Context, tenantID string) (*domain.LedgerSummary, bool, error)
	Set(ctx context.Context, tenantID string, value *domain.LedgerSummary, ttl time.Duration) error
	Invalidate(ctx context.Context, tenantID string) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.LedgerSummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.LedgerSummary, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
