package mix

import (
	"fmt"

	"mix-router-sol/internal/types"
)

// MixError 转发程序的自定义错误码，对应链上 custom program error 的数值
type MixError uint32

const (
	ErrInvalidInstructionData  MixError = iota // 指令数据无法解析
	ErrNotEnoughAccounts                       // 账户列表长度与层数不符
	ErrInvalidMixLayers                        // 层数不在 [MinMixLayers, MaxMixLayers]
	ErrInsufficientFunds                       // payer 余额不足
	ErrAddressDerivationFailed                 // 中间账户与派生地址不一致
)

var mixErrorNames = map[MixError]string{
	ErrInvalidInstructionData:  "invalid instruction data",
	ErrNotEnoughAccounts:       "not enough accounts",
	ErrInvalidMixLayers:        "invalid mix layers",
	ErrInsufficientFunds:       "insufficient funds",
	ErrAddressDerivationFailed: "address derivation failed",
}

func (e MixError) Code() uint32 {
	return uint32(e)
}

func (e MixError) Error() string {
	name, ok := mixErrorNames[e]
	if !ok {
		name = "unknown mix error"
	}
	return fmt.Sprintf("%s (custom program error: 0x%x)", name, uint32(e))
}

// AddressMismatchError 第 Layer 层传入的中间账户与派生结果不一致
type AddressMismatchError struct {
	Layer    uint8
	Expected types.Pubkey
	Actual   types.Pubkey
}

func (e *AddressMismatchError) Error() string {
	return fmt.Sprintf("intermediate account mismatch at layer %d: expected=%s actual=%s: %v",
		e.Layer, e.Expected, e.Actual, ErrAddressDerivationFailed)
}

func (e *AddressMismatchError) Unwrap() error {
	return ErrAddressDerivationFailed
}
