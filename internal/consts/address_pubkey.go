package consts

import (
	"mix-router-sol/internal/types"
)

// 公钥形式的地址常量（types.Pubkey），用于账户比对等场景。
var (
	SystemProgram     types.Pubkey
	DefaultMixProgram types.Pubkey
)

// init 自动将 base58 字符串地址转换为 types.Pubkey
func init() {
	SystemProgram = types.PubkeyFromBase58(SystemProgramStr)
	DefaultMixProgram = types.PubkeyFromBase58(DefaultMixProgramStr)
}
