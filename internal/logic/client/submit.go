package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/rpc"
	sdktypes "github.com/blocto/solana-go-sdk/types"

	"mix-router-sol/internal/logic/mix"
	"mix-router-sol/internal/types"
	"mix-router-sol/pkg/logger"
)

var ErrPayerBalanceTooLow = errors.New("payer balance below amount")

// RpcClient Submitter 依赖的 RPC 能力，*client.Client 满足该接口
type RpcClient interface {
	GetBalance(ctx context.Context, base58Addr string) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (rpc.GetLatestBlockhashValue, error)
	SendTransaction(ctx context.Context, tx sdktypes.Transaction) (string, error)
}

// SubmitRequest 一次链上转发请求
type SubmitRequest struct {
	FeePayer  sdktypes.Account
	Payer     sdktypes.Account
	Recipient types.Pubkey
	Amount    uint64
	MixLayers uint8
	Seed      uint64
}

// SubmitResult 发送成功后的交易签名与中间账户
type SubmitResult struct {
	Signature string
	Seed      uint64
	PDAs      []types.Pubkey
}

type Submitter struct {
	rpc       RpcClient
	programID types.Pubkey
	timeout   time.Duration
}

func NewSubmitter(rpcClient RpcClient, programID types.Pubkey, timeout time.Duration) *Submitter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Submitter{rpc: rpcClient, programID: programID, timeout: timeout}
}

// Submit 预检 payer 余额 → 获取 blockhash → 组装并签名 → 发送
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := mix.ValidateMixLayers(req.MixLayers); err != nil {
		return nil, err
	}

	payer := types.PubkeyFromCommon(req.Payer.PublicKey)
	feePayer := types.PubkeyFromCommon(req.FeePayer.PublicKey)

	// 1. 余额预检
	balance, err := s.rpc.GetBalance(ctx, payer.String())
	if err != nil {
		return nil, fmt.Errorf("get payer balance: %w", err)
	}
	logger.Infof("[Submitter] payer=%s balance=%d amount=%d layers=%d",
		payer, balance, req.Amount, req.MixLayers)
	if balance < req.Amount {
		return nil, fmt.Errorf("%w: payer=%s balance=%d amount=%d", ErrPayerBalanceTooLow, payer, balance, req.Amount)
	}

	// 2. 构造指令
	ix, err := BuildInitializeMix(MixParams{
		ProgramID: s.programID,
		FeePayer:  feePayer,
		Payer:     payer,
		Recipient: req.Recipient,
		Amount:    req.Amount,
		MixLayers: req.MixLayers,
		Seed:      req.Seed,
	})
	if err != nil {
		return nil, err
	}

	// 3. 最新 blockhash
	latest, err := s.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest blockhash: %w", err)
	}

	// 4. 签名
	signers := []sdktypes.Account{req.FeePayer}
	if payer != feePayer {
		signers = append(signers, req.Payer)
	}
	tx, err := sdktypes.NewTransaction(sdktypes.NewTransactionParam{
		Message: sdktypes.NewMessage(sdktypes.NewMessageParam{
			FeePayer:        req.FeePayer.PublicKey,
			RecentBlockhash: latest.Blockhash,
			Instructions:    []sdktypes.Instruction{ix.ToSdkInstruction()},
		}),
		Signers: signers,
	})
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	// 5. 发送
	sig, err := s.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	pdas := make([]types.Pubkey, 0, req.MixLayers)
	for _, meta := range ix.Accounts[len(ix.Accounts)-int(req.MixLayers):] {
		pdas = append(pdas, meta.Pubkey)
	}
	logger.Infof("[Submitter] mix tx sent: sig=%s seed=%d", sig, req.Seed)
	return &SubmitResult{Signature: sig, Seed: req.Seed, PDAs: pdas}, nil
}
