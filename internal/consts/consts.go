package consts

// MixSeedTag 中间账户 PDA 派生的域分隔标签
const MixSeedTag = "mix_intermediate"

// 转发层数策略上限（闭区间），并非结构性限制
const (
	MinMixLayers uint8 = 1
	MaxMixLayers uint8 = 4
)

// FixedAccountCount 账户列表固定前缀：proxy_payer, payer, recipient, system_program
const FixedAccountCount = 4
