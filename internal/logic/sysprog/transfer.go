package sysprog

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/near/borsh-go"

	"mix-router-sol/internal/logic/domain"
	"mix-router-sol/internal/types"
)

var (
	ErrInvalidSystemInstruction = errors.New("invalid system instruction data")
	ErrUnsupportedInstruction   = errors.New("unsupported system instruction")
)

// transferData System Program Transfer 的指令布局：u32 LE 指令序号 + u64 LE lamports
type transferData struct {
	Instruction uint32
	Lamports    uint64
}

const transferDataLen = 12

// Transfer 构造 System Program 转账指令（from 需签名，from/to 可写）
func Transfer(from, to types.Pubkey, lamports uint64) domain.Instruction {
	return domain.FromSdkInstruction(system.Transfer(system.TransferParam{
		From:   from.ToCommon(),
		To:     to.ToCommon(),
		Amount: lamports,
	}))
}

// InstructionIndex 读取 System 指令的 u32 序号
func InstructionIndex(data []byte) (uint32, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("%w: got %d bytes", ErrInvalidSystemInstruction, len(data))
	}
	return binary.LittleEndian.Uint32(data[:4]), nil
}

// DecodeTransfer 解析 Transfer 指令中的 lamports
func DecodeTransfer(data []byte) (lamports uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: borsh panic: %v", ErrInvalidSystemInstruction, r)
		}
	}()

	index, err := InstructionIndex(data)
	if err != nil {
		return 0, err
	}
	if index != uint32(system.InstructionTransfer) {
		return 0, fmt.Errorf("%w: index=%d", ErrUnsupportedInstruction, index)
	}
	if len(data) < transferDataLen {
		return 0, fmt.Errorf("%w: transfer data too short: %d", ErrInvalidSystemInstruction, len(data))
	}

	var td transferData
	if err := borsh.Deserialize(&td, data[:transferDataLen]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSystemInstruction, err)
	}
	return td.Lamports, nil
}
