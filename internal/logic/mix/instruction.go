package mix

import (
	"fmt"

	"github.com/near/borsh-go"
)

// InstructionInitializeMix 唯一的指令变体
const InstructionInitializeMix uint8 = 0

// MixRequest 单次调用的转发请求，解码后立即消费，不落盘
type MixRequest struct {
	Amount    uint64 // 转账数额（lamports）
	MixLayers uint8  // 中间账户层数
	Seed      uint64 // 调用方选择的派生种子，须保证唯一
}

// initializeMixData borsh 布局：u8 变体 + u64 amount + u8 mix_layers + u64 seed
type initializeMixData struct {
	Variant   uint8
	Amount    uint64
	MixLayers uint8
	Seed      uint64
}

const initializeMixDataLen = 1 + 8 + 1 + 8

// DecodeInstruction 解析指令数据。只做结构解析，不做范围校验；
// 末尾多余字节被忽略，与 borsh unchecked 解码一致。
func DecodeInstruction(data []byte) (req MixRequest, err error) {
	defer func() {
		if r := recover(); r != nil {
			req = MixRequest{}
			err = fmt.Errorf("%w: borsh panic: %v", ErrInvalidInstructionData, r)
		}
	}()

	if len(data) == 0 {
		return MixRequest{}, fmt.Errorf("%w: empty payload", ErrInvalidInstructionData)
	}
	if data[0] != InstructionInitializeMix {
		return MixRequest{}, fmt.Errorf("%w: unknown variant %d", ErrInvalidInstructionData, data[0])
	}
	if len(data) < initializeMixDataLen {
		return MixRequest{}, fmt.Errorf("%w: got %d bytes, want >= %d",
			ErrInvalidInstructionData, len(data), initializeMixDataLen)
	}

	var raw initializeMixData
	if err := borsh.Deserialize(&raw, data[:initializeMixDataLen]); err != nil {
		return MixRequest{}, fmt.Errorf("%w: %v", ErrInvalidInstructionData, err)
	}
	return MixRequest{
		Amount:    raw.Amount,
		MixLayers: raw.MixLayers,
		Seed:      raw.Seed,
	}, nil
}

// EncodeInitializeMix 客户端侧编码，DecodeInstruction 的逆操作
func EncodeInitializeMix(req MixRequest) ([]byte, error) {
	return borsh.Serialize(initializeMixData{
		Variant:   InstructionInitializeMix,
		Amount:    req.Amount,
		MixLayers: req.MixLayers,
		Seed:      req.Seed,
	})
}
