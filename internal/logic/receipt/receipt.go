package receipt

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"

	"mix-router-sol/internal/logic/ledger"
	"mix-router-sol/internal/logic/mix"
	"mix-router-sol/internal/types"
)

var ErrInvalidReceipt = errors.New("invalid receipt payload")

// Hop 回执中的一跳转账
type Hop struct {
	From   types.Pubkey
	To     types.Pubkey
	Amount uint64
}

// MixReceipt 一次成功转发的记录，Kafka 消息体为其 borsh 编码
type MixReceipt struct {
	Signature string // base58
	Slot      uint64
	ProgramID types.Pubkey
	Payer     types.Pubkey
	Recipient types.Pubkey
	Amount    uint64
	MixLayers uint8
	Seed      uint64
	Hops      []Hop
	BlockTime int64 // Unix 秒，未知时为 0
}

// FromExecution 由本地账本执行结果生成回执，跳转路径按 seed 重新推导
func FromExecution(
	res *ledger.ExecutionResult,
	programID, payer, recipient types.Pubkey,
	req mix.MixRequest,
	blockTime int64,
) (*MixReceipt, error) {
	if res == nil {
		return nil, fmt.Errorf("nil execution result")
	}
	if res.Err != nil {
		return nil, fmt.Errorf("execution failed: %w", res.Err)
	}

	planned, err := mix.PlanHops(programID, payer, recipient, req)
	if err != nil {
		return nil, err
	}
	hops := make([]Hop, 0, len(planned))
	for _, h := range planned {
		hops = append(hops, Hop{From: h.From, To: h.To, Amount: h.Amount})
	}

	return &MixReceipt{
		Signature: base58.Encode(res.Signature),
		Slot:      res.Slot,
		ProgramID: programID,
		Payer:     payer,
		Recipient: recipient,
		Amount:    req.Amount,
		MixLayers: req.MixLayers,
		Seed:      req.Seed,
		Hops:      hops,
		BlockTime: blockTime,
	}, nil
}

// Intermediates 返回中间账户（不含 payer 与 recipient）
func (r *MixReceipt) Intermediates() []types.Pubkey {
	if len(r.Hops) == 0 {
		return nil
	}
	result := make([]types.Pubkey, 0, len(r.Hops)-1)
	for _, h := range r.Hops[:len(r.Hops)-1] {
		result = append(result, h.To)
	}
	return result
}

func Encode(r *MixReceipt) ([]byte, error) {
	data, err := borsh.Serialize(*r)
	if err != nil {
		return nil, fmt.Errorf("serialize receipt: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (r *MixReceipt, err error) {
	defer func() {
		if p := recover(); p != nil {
			r = nil
			err = fmt.Errorf("%w: %v", ErrInvalidReceipt, p)
		}
	}()

	var out MixReceipt
	if err := borsh.Deserialize(&out, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	return &out, nil
}
