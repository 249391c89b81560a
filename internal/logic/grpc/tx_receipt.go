package grpc

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"

	"mix-router-sol/internal/consts"
	"mix-router-sol/internal/logic/mix"
	"mix-router-sol/internal/logic/receipt"
	"mix-router-sol/internal/types"
)

var ErrInvalidGrpcTx = errors.New("invalid grpc transaction")

func IsValidGrpcTx(tx *pb.SubscribeUpdateTransactionInfo) bool {
	if tx == nil ||
		tx.Transaction == nil ||
		tx.Transaction.Message == nil ||
		len(tx.Transaction.Signatures) == 0 ||
		len(tx.Transaction.Signatures[0]) != 64 ||
		tx.IsVote ||
		tx.Meta == nil ||
		tx.Meta.Err != nil {
		return false
	}
	return true
}

// buildFullAccountKeys 静态账户 + ALT 加载的 writable、readonly 账户，顺序与余额数组一致
func buildFullAccountKeys(static, writable, readonly [][]byte) ([]types.Pubkey, error) {
	keys := make([]types.Pubkey, 0, len(static)+len(writable)+len(readonly))
	for _, group := range [][][]byte{static, writable, readonly} {
		for _, raw := range group {
			pk, err := types.TryPubkeyFromBytes(raw)
			if err != nil {
				return nil, err
			}
			keys = append(keys, pk)
		}
	}
	return keys, nil
}

// ReceiptsFromUpdate 从 Geyser 推送的交易中还原回执，每条顶层 InitializeMix 指令一条。
// 中间账户的前后余额必须相同，否则视为异常交易。
func ReceiptsFromUpdate(programID types.Pubkey, tx *pb.SubscribeUpdateTransactionInfo, slot uint64) (_ []*receipt.MixReceipt, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrInvalidGrpcTx, r)
		}
	}()

	if !IsValidGrpcTx(tx) {
		return nil, ErrInvalidGrpcTx
	}

	keys, err := buildFullAccountKeys(
		tx.Transaction.Message.AccountKeys,
		tx.Meta.LoadedWritableAddresses,
		tx.Meta.LoadedReadonlyAddresses,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGrpcTx, err)
	}
	pre, post := tx.Meta.PreBalances, tx.Meta.PostBalances
	if len(pre) != len(keys) || len(post) != len(keys) {
		return nil, fmt.Errorf("%w: balances length mismatch: keys=%d pre=%d post=%d",
			ErrInvalidGrpcTx, len(keys), len(pre), len(post))
	}
	signature := base58.Encode(tx.Transaction.Signatures[0])

	var receipts []*receipt.MixReceipt
	for i, ix := range tx.Transaction.Message.Instructions {
		if keys[ix.ProgramIdIndex] != programID {
			continue
		}
		req, err := mix.DecodeInstruction(ix.Data)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		if len(ix.Accounts) != consts.FixedAccountCount+int(req.MixLayers) {
			return nil, fmt.Errorf("instruction %d: %w", i, mix.ErrNotEnoughAccounts)
		}

		payer := keys[ix.Accounts[1]]
		recipient := keys[ix.Accounts[2]]
		hops := make([]receipt.Hop, 0, int(req.MixLayers)+1)
		from := payer
		for layer := 0; layer < int(req.MixLayers); layer++ {
			idx := ix.Accounts[consts.FixedAccountCount+layer]
			if pre[idx] != post[idx] {
				return nil, fmt.Errorf("instruction %d: intermediate %s balance changed %d -> %d",
					i, keys[idx], pre[idx], post[idx])
			}
			hops = append(hops, receipt.Hop{From: from, To: keys[idx], Amount: req.Amount})
			from = keys[idx]
		}
		hops = append(hops, receipt.Hop{From: from, To: recipient, Amount: req.Amount})

		receipts = append(receipts, &receipt.MixReceipt{
			Signature: signature,
			Slot:      slot,
			ProgramID: programID,
			Payer:     payer,
			Recipient: recipient,
			Amount:    req.Amount,
			MixLayers: req.MixLayers,
			Seed:      req.Seed,
			Hops:      hops,
		})
	}
	return receipts, nil
}
