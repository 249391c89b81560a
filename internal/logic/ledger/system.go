package ledger

import (
	"fmt"

	"mix-router-sol/internal/consts"
	"mix-router-sol/internal/logic/sysprog"
	"mix-router-sol/internal/types"
)

// processSystemInstruction 内置 System Program，目前只支持 Transfer
func processSystemInstruction(ictx *InvokeContext, _ types.Pubkey, accounts []types.Pubkey, data []byte) error {
	lamports, err := sysprog.DecodeTransfer(data)
	if err != nil {
		return err
	}
	if len(accounts) < 2 {
		return fmt.Errorf("%w: transfer needs 2 accounts, got %d", ErrMissingAccount, len(accounts))
	}
	from, to := accounts[0], accounts[1]

	// 1. from 必须具备签名权限（钱包签名或派生凭证）
	if !ictx.IsSigner(from) {
		return fmt.Errorf("%w: transfer from %s", ErrMissingSignature, from)
	}

	// 2. from 必须由 System Program 持有
	if owner := ictx.owner(from); owner != consts.SystemProgram {
		return fmt.Errorf("%w: transfer from %s owned by %s", ErrInvalidAccountOwner, from, owner)
	}

	// 3. 余额检查
	fromBalance := ictx.Balance(from)
	if fromBalance < lamports {
		return fmt.Errorf("%w: from=%s balance=%d need=%d", ErrInsufficientLamports, from, fromBalance, lamports)
	}
	ictx.setBalance(from, fromBalance-lamports)

	toBalance := ictx.Balance(to)
	if toBalance+lamports < toBalance {
		return fmt.Errorf("%w: to=%s balance=%d add=%d", ErrLamportsOverflow, to, toBalance, lamports)
	}
	ictx.setBalance(to, toBalance+lamports)
	return nil
}
