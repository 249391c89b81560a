package mix

import (
	"mix-router-sol/internal/logic/pda"
	"mix-router-sol/internal/types"
)

// Hop 一次转账步骤
type Hop struct {
	From   types.Pubkey
	To     types.Pubkey
	Amount uint64
}

// PlanHops 预先计算一次转发的完整路径（layers+1 跳），用于客户端预览与回执
func PlanHops(programID types.Pubkey, payer, recipient types.Pubkey, req MixRequest) ([]Hop, error) {
	if err := ValidateMixLayers(req.MixLayers); err != nil {
		return nil, err
	}

	hops := make([]Hop, 0, int(req.MixLayers)+1)
	from := payer
	for layer := uint8(0); layer < req.MixLayers; layer++ {
		d, err := pda.Derive(programID, req.Seed, layer)
		if err != nil {
			return nil, err
		}
		hops = append(hops, Hop{From: from, To: d.Address, Amount: req.Amount})
		from = d.Address
	}
	hops = append(hops, Hop{From: from, To: recipient, Amount: req.Amount})
	return hops, nil
}
