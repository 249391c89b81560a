package service

import (
	"context"
	"fmt"
	"time"

	"mix-router-sol/internal/logic/client"
	"mix-router-sol/internal/logic/domain"
	"mix-router-sol/internal/logic/ledger"
	"mix-router-sol/internal/logic/mix"
	"mix-router-sol/internal/logic/receipt"
	"mix-router-sol/internal/logic/seedguard"
	"mix-router-sol/internal/types"
	"mix-router-sol/pkg/logger"
)

// ReceiptSink 回执发布目标
type ReceiptSink interface {
	Publish(ctx context.Context, receipts ...*receipt.MixReceipt) error
}

// LogSink 未配置 Kafka 时只打印回执
type LogSink struct{}

func (LogSink) Publish(_ context.Context, receipts ...*receipt.MixReceipt) error {
	for _, r := range receipts {
		logger.Infof("[LogSink] receipt sig=%s slot=%d payer=%s recipient=%s amount=%d layers=%d seed=%d",
			r.Signature, r.Slot, r.Payer, r.Recipient, r.Amount, r.MixLayers, r.Seed)
	}
	return nil
}

// MixService 在本地账本上执行转发：占用种子 → 构造指令 → 执行 → 标记种子 → 发布回执
type MixService struct {
	runtime   *ledger.Runtime
	programID types.Pubkey
	guard     *seedguard.Guard
	sink      ReceiptSink
	now       func() time.Time
}

func NewMixService(rt *ledger.Runtime, programID types.Pubkey, guard *seedguard.Guard, sink ReceiptSink) *MixService {
	rt.Register(programID, func(ictx *ledger.InvokeContext, pid types.Pubkey, accounts []types.Pubkey, data []byte) error {
		return mix.ProcessInstruction(ictx, pid, accounts, data)
	})
	if sink == nil {
		sink = LogSink{}
	}
	return &MixService{
		runtime:   rt,
		programID: programID,
		guard:     guard,
		sink:      sink,
		now:       time.Now,
	}
}

// Forward 执行一次转发。回执发布失败只记日志，不影响已提交的转账。
func (s *MixService) Forward(ctx context.Context, p client.MixParams) (*receipt.MixReceipt, error) {
	p.ProgramID = s.programID

	if err := s.guard.Acquire(ctx, p.Seed); err != nil {
		return nil, err
	}

	ix, err := client.BuildInitializeMix(p)
	if err != nil {
		s.guard.Release(ctx, p.Seed, false)
		return nil, err
	}

	res, err := s.runtime.Execute(ctx, ledger.Transaction{
		Instructions: []domain.Instruction{ix},
		Signers:      []types.Pubkey{p.FeePayer, p.Payer},
	})
	s.guard.Release(ctx, p.Seed, err == nil)
	if err != nil {
		if res != nil {
			for _, line := range res.LogMessages {
				logger.Warnf("[MixService] %s", line)
			}
		}
		return nil, fmt.Errorf("forward seed=%d: %w", p.Seed, err)
	}

	r, err := receipt.FromExecution(res, s.programID, p.Payer, p.Recipient, p.Request(), s.now().Unix())
	if err != nil {
		return nil, err
	}
	logger.Infof("[MixService] forwarded %d lamports through %d layers, seed=%d slot=%d",
		p.Amount, p.MixLayers, p.Seed, res.Slot)

	if err := s.sink.Publish(ctx, r); err != nil {
		logger.Warnf("[MixService] publish receipt seed=%d failed: %v", p.Seed, err)
	}
	return r, nil
}
