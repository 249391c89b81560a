package ledger

import (
	"sync"

	"mix-router-sol/internal/consts"
	"mix-router-sol/internal/types"
)

// Account 账本中的一个账户；不存在的账户视为 0 lamports、由 System Program 持有
type Account struct {
	Lamports uint64
	Owner    types.Pubkey
}

// Bank 已提交的账户状态。写入只发生在 Runtime.Execute 成功提交时。
type Bank struct {
	mu       sync.RWMutex
	accounts map[types.Pubkey]*Account
}

func NewBank() *Bank {
	return &Bank{
		accounts: make(map[types.Pubkey]*Account),
	}
}

// SetBalance 直接设置余额（创世/测试注资），不经过程序
func (b *Bank) SetBalance(addr types.Pubkey, lamports uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getOrCreateUnsafe(addr).Lamports = lamports
}

// SetOwner 设置账户的持有程序
func (b *Bank) SetOwner(addr types.Pubkey, owner types.Pubkey) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getOrCreateUnsafe(addr).Owner = owner
}

func (b *Bank) Balance(addr types.Pubkey) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.accountUnsafe(addr).Lamports
}

// Account 返回账户快照
func (b *Bank) Account(addr types.Pubkey) Account {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.accountUnsafe(addr)
}

func (b *Bank) accountUnsafe(addr types.Pubkey) Account {
	if acc, ok := b.accounts[addr]; ok {
		return *acc
	}
	return Account{Owner: consts.SystemProgram}
}

func (b *Bank) getOrCreateUnsafe(addr types.Pubkey) *Account {
	acc, ok := b.accounts[addr]
	if !ok {
		acc = &Account{Owner: consts.SystemProgram}
		b.accounts[addr] = acc
	}
	return acc
}

// commitUnsafe 将暂存的余额写回，调用方须持有写锁
func (b *Bank) commitUnsafe(staged map[types.Pubkey]uint64) {
	for addr, lamports := range staged {
		b.getOrCreateUnsafe(addr).Lamports = lamports
	}
}
