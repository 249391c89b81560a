package domain

import "mix-router-sol/internal/types"

// AccountMeta 描述指令引用的一个账户及其权限标记。
type AccountMeta struct {
	Pubkey     types.Pubkey
	IsSigner   bool // 是否需要该账户签名
	IsWritable bool // 指令是否会修改该账户余额
}

// Instruction 表示一条链上指令（主指令或 CPI 内部指令）。
type Instruction struct {
	ProgramID types.Pubkey  // 所调用的程序地址（例如 SystemProgram）
	Accounts  []AccountMeta // 指令涉及的账户列表，保持原始顺序
	Data      []byte        // 指令数据（原始字节序列）
}

// Keys 返回账户公钥列表，顺序与 Accounts 一致
func (ix *Instruction) Keys() []types.Pubkey {
	keys := make([]types.Pubkey, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		keys[i] = meta.Pubkey
	}
	return keys
}
