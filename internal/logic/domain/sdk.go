package domain

import (
	sdktypes "github.com/blocto/solana-go-sdk/types"

	"mix-router-sol/internal/types"
)

// FromSdkInstruction 将 solana-go-sdk 的指令转换为内部结构
func FromSdkInstruction(ix sdktypes.Instruction) Instruction {
	accounts := make([]AccountMeta, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		accounts[i] = AccountMeta{
			Pubkey:     types.PubkeyFromCommon(meta.PubKey),
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		}
	}
	return Instruction{
		ProgramID: types.PubkeyFromCommon(ix.ProgramID),
		Accounts:  accounts,
		Data:      ix.Data,
	}
}

// ToSdkInstruction 转换为 solana-go-sdk 指令，用于组装链上交易
func (ix *Instruction) ToSdkInstruction() sdktypes.Instruction {
	accounts := make([]sdktypes.AccountMeta, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		accounts[i] = sdktypes.AccountMeta{
			PubKey:     meta.Pubkey.ToCommon(),
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		}
	}
	return sdktypes.Instruction{
		ProgramID: ix.ProgramID.ToCommon(),
		Accounts:  accounts,
		Data:      ix.Data,
	}
}
