package ledger

import (
	"context"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"sync"

	"mix-router-sol/internal/consts"
	"mix-router-sol/internal/logic/domain"
	"mix-router-sol/internal/types"
	"mix-router-sol/pkg/logger"
)

// Entrypoint 程序入口：accounts 为本条指令传入的账户（顺序保持），data 为指令数据
type Entrypoint func(ictx *InvokeContext, programID types.Pubkey, accounts []types.Pubkey, data []byte) error

// Transaction 一笔待执行交易。Signers 为已通过签名校验的账户。
type Transaction struct {
	Instructions []domain.Instruction
	Signers      []types.Pubkey
}

// ExecutionResult 交易执行结果，失败时 LogMessages 仍保留到失败点为止的日志
type ExecutionResult struct {
	Signature   []byte // 64 字节交易标识
	Slot        uint64
	LogMessages []string
	Err         error
}

// Runtime 本地宿主账本：程序路由 + 全有或全无的交易执行
type Runtime struct {
	bank     *Bank
	programs map[types.Pubkey]Entrypoint

	seqMu sync.Mutex
	slot  uint64
}

func NewRuntime(bank *Bank) *Runtime {
	rt := &Runtime{
		bank:     bank,
		programs: make(map[types.Pubkey]Entrypoint),
	}
	rt.programs[consts.SystemProgram] = processSystemInstruction
	return rt
}

func (rt *Runtime) Bank() *Bank {
	return rt.bank
}

// Register 部署程序，与 Execute 共用账本锁
func (rt *Runtime) Register(programID types.Pubkey, entry Entrypoint) {
	rt.bank.mu.Lock()
	defer rt.bank.mu.Unlock()
	rt.programs[programID] = entry
}

// Execute 执行交易：所有余额变更先暂存，全部指令成功后一次性提交；
// 任一指令失败则丢弃全部暂存，已执行的转账不会残留。
func (rt *Runtime) Execute(ctx context.Context, tx Transaction) (*ExecutionResult, error) {
	result := &ExecutionResult{}
	if len(tx.Instructions) == 0 {
		result.Err = ErrEmptyTransaction
		return result, result.Err
	}

	rt.bank.mu.Lock()
	defer rt.bank.mu.Unlock()

	result.Slot = rt.nextSlot()
	result.Signature = transactionID(result.Slot, tx)

	signers := make(map[types.Pubkey]bool, len(tx.Signers))
	for _, s := range tx.Signers {
		signers[s] = true
	}

	staged := make(map[types.Pubkey]uint64)
	for i, ix := range tx.Instructions {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result, err
		}

		ictx := &InvokeContext{
			rt:      rt,
			staged:  staged,
			logs:    &result.LogMessages,
			signers: make(map[types.Pubkey]bool),
		}
		for _, meta := range ix.Accounts {
			if !meta.IsSigner {
				continue
			}
			if !signers[meta.Pubkey] {
				result.Err = &InstructionError{Index: i, Err: fmt.Errorf("%w: %s", ErrMissingSignature, meta.Pubkey)}
				return result, result.Err
			}
			ictx.signers[meta.Pubkey] = true
		}

		if err := ictx.dispatch(ix); err != nil {
			result.Err = &InstructionError{Index: i, Err: err}
			logger.Debugf("[ledger] tx rolled back: slot=%d ix=%d err=%v", result.Slot, i, err)
			return result, result.Err
		}
	}

	rt.bank.commitUnsafe(staged)
	return result, nil
}

func (rt *Runtime) nextSlot() uint64 {
	rt.seqMu.Lock()
	defer rt.seqMu.Unlock()
	rt.slot++
	return rt.slot
}

// transactionID 对 slot 与交易消息做 sha512，生成与链上签名等长的标识
func transactionID(slot uint64, tx Transaction) []byte {
	h := sha512.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], slot)
	h.Write(buf[:])
	for _, s := range tx.Signers {
		h.Write(s[:])
	}
	for _, ix := range tx.Instructions {
		h.Write(ix.ProgramID[:])
		for _, meta := range ix.Accounts {
			h.Write(meta.Pubkey[:])
		}
		h.Write(ix.Data)
	}
	return h.Sum(nil)
}
