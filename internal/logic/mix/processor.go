package mix

import (
	"fmt"

	"mix-router-sol/internal/consts"
	"mix-router-sol/internal/logic/pda"
	"mix-router-sol/internal/logic/sysprog"
	"mix-router-sol/internal/types"
)

// 账户列表固定前缀的位置
const (
	accountProxyPayer = iota
	accountPayer
	accountRecipient
	accountSystemProgram
)

// ProcessInstruction 转发程序入口。
// 账户列表：[proxy_payer, payer, recipient, system_program, sub_0 ... sub_{L-1}]
func ProcessInstruction(host Host, programID types.Pubkey, accounts []types.Pubkey, data []byte) error {
	req, err := DecodeInstruction(data)
	if err != nil {
		return err
	}
	return processInitializeMix(host, programID, accounts, req)
}

// ValidateMixLayers 层数策略校验
func ValidateMixLayers(layers uint8) error {
	if layers < consts.MinMixLayers || layers > consts.MaxMixLayers {
		return fmt.Errorf("%w: got %d, want [%d, %d]",
			ErrInvalidMixLayers, layers, consts.MinMixLayers, consts.MaxMixLayers)
	}
	return nil
}

// processInitializeMix 执行 payer → sub_0 → ... → sub_{L-1} → recipient 的逐跳转账。
// 任何一步失败直接返回，已暂存的前序转账由宿主整体回滚。
func processInitializeMix(host Host, programID types.Pubkey, accounts []types.Pubkey, req MixRequest) error {
	if len(accounts) < consts.FixedAccountCount {
		return fmt.Errorf("%w: got %d, want >= %d", ErrNotEnoughAccounts, len(accounts), consts.FixedAccountCount)
	}
	proxyPayer := accounts[accountProxyPayer]
	payer := accounts[accountPayer]
	recipient := accounts[accountRecipient]
	host.Msg("proxy_payer = %s", proxyPayer)

	// 1. 校验 payer 余额
	payerBalance := host.Balance(payer)
	host.Msg("payer.lamports = %d amount = %d", payerBalance, req.Amount)
	if payerBalance < req.Amount {
		return fmt.Errorf("%w: payer=%s balance=%d amount=%d", ErrInsufficientFunds, payer, payerBalance, req.Amount)
	}

	// 2. 校验层数
	if err := ValidateMixLayers(req.MixLayers); err != nil {
		return err
	}

	// 3. 校验账户数量
	want := int(req.MixLayers) + consts.FixedAccountCount
	if len(accounts) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrNotEnoughAccounts, len(accounts), want)
	}
	subAccounts := accounts[consts.FixedAccountCount:]

	// 4. 校验第一层中间账户
	sender, err := expectDerived(host, programID, req.Seed, 0, subAccounts[0])
	if err != nil {
		return err
	}

	// 5. hop 0：payer 自身签名
	if err := host.Invoke(sysprog.Transfer(payer, sender.Address, req.Amount)); err != nil {
		return fmt.Errorf("hop 0 transfer %s -> %s failed: %w", payer, sender.Address, err)
	}

	// 6. 中间跳：发送方用自己的派生参数签名
	for layer := uint8(1); layer < req.MixLayers; layer++ {
		receiver, err := expectDerived(host, programID, req.Seed, layer, subAccounts[layer])
		if err != nil {
			return err
		}
		proof := pda.NewDerivationProof(req.Seed, layer-1, sender.Bump)
		if err := host.InvokeSigned(sysprog.Transfer(sender.Address, receiver.Address, req.Amount), proof); err != nil {
			return fmt.Errorf("hop %d transfer %s -> %s failed: %w", layer, sender.Address, receiver.Address, err)
		}
		sender = receiver
	}

	// 7. 最后一跳：末层中间账户 → recipient
	last := req.MixLayers - 1
	proof := pda.NewDerivationProof(req.Seed, last, sender.Bump)
	if err := host.InvokeSigned(sysprog.Transfer(sender.Address, recipient, req.Amount), proof); err != nil {
		return fmt.Errorf("hop %d transfer %s -> %s failed: %w", req.MixLayers, sender.Address, recipient, err)
	}
	return nil
}

// expectDerived 重新派生第 layer 层地址并与传入账户比对
func expectDerived(host Host, programID types.Pubkey, seed uint64, layer uint8, actual types.Pubkey) (pda.DerivedAddress, error) {
	expected, err := pda.Derive(programID, seed, layer)
	if err != nil {
		host.Msg("layer %d derivation failed: %v", layer, err)
		return pda.DerivedAddress{}, fmt.Errorf("%w: %v", ErrAddressDerivationFailed, err)
	}
	if expected.Address != actual {
		host.Msg("layer %d intermediate account mismatch: expected %s actual %s", layer, expected.Address, actual)
		return pda.DerivedAddress{}, &AddressMismatchError{
			Layer:    layer,
			Expected: expected.Address,
			Actual:   actual,
		}
	}
	return expected, nil
}
