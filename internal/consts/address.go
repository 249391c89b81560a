package consts

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	//  Programs
	SystemProgramStr = "11111111111111111111111111111111"

	// DefaultMixProgramStr 本地模拟账本默认部署的转发程序地址，链上部署以配置为准
	DefaultMixProgramStr = "C1Yxk3ZBmMKD9c9exQH5GrMyQaUfmESFBtVnqjGtVaVX"
)
