package mix

import (
	"mix-router-sol/internal/logic/domain"
	"mix-router-sol/internal/logic/pda"
	"mix-router-sol/internal/types"
)

// Host 转发引擎依赖的宿主账本能力。
// 宿主负责余额约束、签名校验以及整次调用的全有或全无语义。
type Host interface {
	// Balance 返回账户当前（含本次调用已暂存变更）的 lamports
	Balance(addr types.Pubkey) uint64
	// Invoke 以交易自带签名执行跨程序调用
	Invoke(ix domain.Instruction) error
	// InvokeSigned 以派生凭证代替私钥签名执行跨程序调用，凭证由宿主校验
	InvokeSigned(ix domain.Instruction, proofs ...pda.DerivationProof) error
	// Msg 输出诊断日志，仅供观测
	Msg(format string, args ...interface{})
}
