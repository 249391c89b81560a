package client

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"mix-router-sol/internal/consts"
	"mix-router-sol/internal/logic/domain"
	"mix-router-sol/internal/logic/mix"
	"mix-router-sol/internal/logic/pda"
	"mix-router-sol/internal/types"
)

// MixParams 构造 InitializeMix 指令所需参数
type MixParams struct {
	ProgramID types.Pubkey
	FeePayer  types.Pubkey // 交易费用支付者（proxy_payer）
	Payer     types.Pubkey // 资金来源，需签名
	Recipient types.Pubkey // 最终接收者
	Amount    uint64
	MixLayers uint8
	Seed      uint64
}

func (p MixParams) Request() mix.MixRequest {
	return mix.MixRequest{Amount: p.Amount, MixLayers: p.MixLayers, Seed: p.Seed}
}

// PreviewPDAs 计算全部中间账户，顺序即转发顺序
func PreviewPDAs(programID types.Pubkey, seed uint64, layers uint8) ([]pda.DerivedAddress, error) {
	result := make([]pda.DerivedAddress, 0, layers)
	for layer := uint8(0); layer < layers; layer++ {
		d, err := pda.Derive(programID, seed, layer)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// BuildInitializeMix 构造转发指令。账户顺序：
//  0. fee payer（签名，可写）
//  1. payer（签名，可写）
//  2. recipient（可写）
//  3. System Program
//  4. 中间 PDA × MixLayers（可写）
//
// 层数不在这里校验，由链上程序拒绝。
func BuildInitializeMix(p MixParams) (domain.Instruction, error) {
	data, err := mix.EncodeInitializeMix(p.Request())
	if err != nil {
		return domain.Instruction{}, fmt.Errorf("encode InitializeMix: %w", err)
	}

	pdas, err := PreviewPDAs(p.ProgramID, p.Seed, p.MixLayers)
	if err != nil {
		return domain.Instruction{}, err
	}

	accounts := make([]domain.AccountMeta, 0, consts.FixedAccountCount+len(pdas))
	accounts = append(accounts,
		domain.AccountMeta{Pubkey: p.FeePayer, IsSigner: true, IsWritable: true},
		domain.AccountMeta{Pubkey: p.Payer, IsSigner: true, IsWritable: true},
		domain.AccountMeta{Pubkey: p.Recipient, IsWritable: true},
		domain.AccountMeta{Pubkey: consts.SystemProgram},
	)
	for _, d := range pdas {
		accounts = append(accounts, domain.AccountMeta{Pubkey: d.Address, IsWritable: true})
	}

	return domain.Instruction{
		ProgramID: p.ProgramID,
		Accounts:  accounts,
		Data:      data,
	}, nil
}

// RandomSeed 生成随机种子。种子决定中间账户，调用方必须避免复用。
func RandomSeed() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
