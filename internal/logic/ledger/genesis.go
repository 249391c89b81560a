package ledger

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mix-router-sol/internal/types"
)

// GenesisAccount 创世文件中的一条账户记录
type GenesisAccount struct {
	Address  string `yaml:"address"`
	Lamports uint64 `yaml:"lamports"`
	Owner    string `yaml:"owner,omitempty"` // 为空表示 System Program
}

// Genesis 本地账本的初始状态
type Genesis struct {
	Accounts []GenesisAccount `yaml:"accounts"`
}

// LoadGenesis 读取 YAML 创世文件
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis %s: %w", path, err)
	}
	return ParseGenesis(raw)
}

func ParseGenesis(raw []byte) (*Genesis, error) {
	var g Genesis
	if err := yaml.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	return &g, nil
}

// Apply 将创世账户写入 bank，地址非法时不做任何写入
func (g *Genesis) Apply(bank *Bank) error {
	type entry struct {
		addr, owner types.Pubkey
		hasOwner    bool
		lamports    uint64
	}
	entries := make([]entry, 0, len(g.Accounts))
	for i, acc := range g.Accounts {
		addr, err := types.TryPubkeyFromBase58(acc.Address)
		if err != nil {
			return fmt.Errorf("genesis account %d: %w", i, err)
		}
		e := entry{addr: addr, lamports: acc.Lamports}
		if acc.Owner != "" {
			owner, err := types.TryPubkeyFromBase58(acc.Owner)
			if err != nil {
				return fmt.Errorf("genesis account %d owner: %w", i, err)
			}
			e.owner, e.hasOwner = owner, true
		}
		entries = append(entries, e)
	}

	for _, e := range entries {
		bank.SetBalance(e.addr, e.lamports)
		if e.hasOwner {
			bank.SetOwner(e.addr, e.owner)
		}
	}
	return nil
}
