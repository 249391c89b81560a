package seedguard

import (
	"context"
	"fmt"

	"mix-router-sol/pkg/logger"
)

// Guard 保证同一种子不会被两次转发使用
type Guard struct {
	store Store
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// Acquire 占用种子，已占用或已完成时返回 ErrSeedInUse
func (g *Guard) Acquire(ctx context.Context, seed uint64) error {
	ok, err := g.store.Reserve(ctx, seed)
	if err != nil {
		return fmt.Errorf("reserve seed %d: %w", seed, err)
	}
	if !ok {
		status, _ := g.store.Status(ctx, seed)
		return fmt.Errorf("%w: seed=%d status=%s", ErrSeedInUse, seed, status)
	}
	return nil
}

// Release 根据转发结果标记种子
func (g *Guard) Release(ctx context.Context, seed uint64, success bool) {
	status := SeedFailed
	if success {
		status = SeedCompleted
	}
	if err := g.store.Mark(ctx, seed, status); err != nil {
		logger.Warnf("[SeedGuard] mark seed %d as %s failed: %v", seed, status, err)
	}
}

func (g *Guard) Status(ctx context.Context, seed uint64) (SeedStatus, error) {
	return g.store.Status(ctx, seed)
}
