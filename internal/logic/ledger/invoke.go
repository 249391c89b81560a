package ledger

import (
	"fmt"

	"mix-router-sol/internal/logic/domain"
	"mix-router-sol/internal/logic/pda"
	"mix-router-sol/internal/types"
	"mix-router-sol/pkg/logger"
)

// maxInvokeDepth 顶层指令为 1，CPI 逐层加一
const maxInvokeDepth = 4

// InvokeContext 单条指令（或 CPI）的执行上下文，实现转发引擎所需的 Host。
// 同一交易内的所有上下文共享 staged 余额与日志。
type InvokeContext struct {
	rt        *Runtime
	staged    map[types.Pubkey]uint64
	logs      *[]string
	programID types.Pubkey
	accounts  map[types.Pubkey]bool // 本条指令可访问的账户
	signers   map[types.Pubkey]bool // 本条指令中具备签名权限的账户
	depth     int
}

// Balance 读取账户余额，优先返回本交易内的暂存值
func (c *InvokeContext) Balance(addr types.Pubkey) uint64 {
	if lamports, ok := c.staged[addr]; ok {
		return lamports
	}
	return c.rt.bank.accountUnsafe(addr).Lamports
}

func (c *InvokeContext) IsSigner(addr types.Pubkey) bool {
	return c.signers[addr]
}

func (c *InvokeContext) setBalance(addr types.Pubkey, lamports uint64) {
	c.staged[addr] = lamports
}

func (c *InvokeContext) owner(addr types.Pubkey) types.Pubkey {
	return c.rt.bank.accountUnsafe(addr).Owner
}

func (c *InvokeContext) Msg(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	*c.logs = append(*c.logs, "Program log: "+line)
	logger.Debugf("[ledger:%s] %s", c.programID, line)
}

// Invoke 跨程序调用，签名权限只继承自当前指令
func (c *InvokeContext) Invoke(ix domain.Instruction) error {
	return c.InvokeSigned(ix)
}

// InvokeSigned 跨程序调用。proofs 在当前程序下解析出的地址获得签名权限，
// 凭证无法解析或解析结果不在指令账户中均不会授予任何权限。
func (c *InvokeContext) InvokeSigned(ix domain.Instruction, proofs ...pda.DerivationProof) error {
	if c.depth+1 > maxInvokeDepth {
		return fmt.Errorf("%w: depth=%d", ErrCallDepth, c.depth+1)
	}
	if !c.accounts[ix.ProgramID] {
		return fmt.Errorf("%w: program %s", ErrMissingAccount, ix.ProgramID)
	}

	derivedSigners := make(map[types.Pubkey]bool, len(proofs))
	for i, proof := range proofs {
		addr, err := proof.Address(c.programID)
		if err != nil {
			return fmt.Errorf("signer proof %d: %w", i, err)
		}
		derivedSigners[addr] = true
	}

	child := &InvokeContext{
		rt:        c.rt,
		staged:    c.staged,
		logs:      c.logs,
		accounts:  make(map[types.Pubkey]bool, len(ix.Accounts)+1),
		signers:   make(map[types.Pubkey]bool),
		depth:     c.depth + 1,
		programID: ix.ProgramID,
	}
	for _, meta := range ix.Accounts {
		if !c.accounts[meta.Pubkey] {
			return fmt.Errorf("%w: %s", ErrMissingAccount, meta.Pubkey)
		}
		if meta.IsSigner {
			if !c.signers[meta.Pubkey] && !derivedSigners[meta.Pubkey] {
				return fmt.Errorf("%w: %s", ErrMissingSignature, meta.Pubkey)
			}
			child.signers[meta.Pubkey] = true
		}
	}
	return child.run(ix)
}

// dispatch 顶层指令入口，depth 从 1 开始
func (c *InvokeContext) dispatch(ix domain.Instruction) error {
	c.depth = 1
	c.programID = ix.ProgramID
	c.accounts = make(map[types.Pubkey]bool, len(ix.Accounts))
	return c.run(ix)
}

func (c *InvokeContext) run(ix domain.Instruction) error {
	entry, ok := c.rt.programs[ix.ProgramID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, ix.ProgramID)
	}
	for _, meta := range ix.Accounts {
		c.accounts[meta.Pubkey] = true
	}

	*c.logs = append(*c.logs, fmt.Sprintf("Program %s invoke [%d]", ix.ProgramID, c.depth))
	if err := entry(c, ix.ProgramID, ix.Keys(), ix.Data); err != nil {
		*c.logs = append(*c.logs, fmt.Sprintf("Program %s failed: %v", ix.ProgramID, err))
		return err
	}
	*c.logs = append(*c.logs, fmt.Sprintf("Program %s success", ix.ProgramID))
	return nil
}
