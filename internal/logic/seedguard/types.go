package seedguard

import (
	"context"
	"errors"
)

// SeedStatus 种子在 Redis 与内存中的统一编码
type SeedStatus int

const (
	SeedUnknown   SeedStatus = 0 // 不存在
	SeedReserved  SeedStatus = 1 // 已占用，转发进行中
	SeedCompleted SeedStatus = 2 // 已成功转发，不可再用
	SeedFailed    SeedStatus = 3 // 转发失败，过期后可重用
)

func (s SeedStatus) String() string {
	switch s {
	case SeedReserved:
		return "reserved"
	case SeedCompleted:
		return "completed"
	case SeedFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var ErrSeedInUse = errors.New("seed already reserved or completed")

// Store 种子状态存储
type Store interface {
	Status(ctx context.Context, seed uint64) (SeedStatus, error)
	// Reserve 仅在不存在或已失败时写入 Reserved，返回是否写入成功
	Reserve(ctx context.Context, seed uint64) (bool, error)
	Mark(ctx context.Context, seed uint64, status SeedStatus) error
}
