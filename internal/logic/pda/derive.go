package pda

import (
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/blocto/solana-go-sdk/common"

	"mix-router-sol/internal/consts"
	"mix-router-sol/internal/types"
)

var (
	ErrDerivationFailed = errors.New("program address derivation failed")
	ErrInvalidProof     = errors.New("derivation proof does not produce a program address")
)

// DerivedAddress 中间账户地址及其 bump，纯函数结果，不落盘
type DerivedAddress struct {
	Address types.Pubkey
	Bump    uint8
}

// seedComponents 构造派生种子：[tag, le64(seed), le8(layer)]
func seedComponents(seed uint64, layer uint8) [][]byte {
	seedBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(seedBytes, seed)
	return [][]byte{
		[]byte(consts.MixSeedTag),
		seedBytes,
		{layer},
	}
}

// Derive 根据 (programID, seed, layer) 计算第 layer 层中间账户。
// bump 从 255 向下搜索，保证结果不在 ed25519 曲线上，即只有本程序能为其签名。
func Derive(programID types.Pubkey, seed uint64, layer uint8) (DerivedAddress, error) {
	addr, bump, err := common.FindProgramAddress(seedComponents(seed, layer), programID.ToCommon())
	if err != nil {
		return DerivedAddress{}, fmt.Errorf("%w: program=%s seed=%d layer=%d: %v",
			ErrDerivationFailed, programID, seed, layer, err)
	}
	return DerivedAddress{Address: types.PubkeyFromCommon(addr), Bump: bump}, nil
}

// SignerSeeds 复现 Derive 使用的全部种子并追加 bump，顺序与编码须与 Derive 逐字节一致
func SignerSeeds(seed uint64, layer uint8, bump uint8) [][]byte {
	return append(seedComponents(seed, layer), []byte{bump})
}

// CreateAddress 用完整种子（含 bump）直接计算程序地址，不做 bump 搜索
func CreateAddress(seeds [][]byte, programID types.Pubkey) (types.Pubkey, error) {
	addr, err := common.CreateProgramAddress(seeds, programID.ToCommon())
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return types.PubkeyFromCommon(addr), nil
}

// DerivationProof 中间账户的签名凭证：持有派生参数即拥有该账户的支出权限。
// 由宿主账本在转账时校验，而非由调用方自证。
type DerivationProof struct {
	Seeds [][]byte
}

func NewDerivationProof(seed uint64, layer uint8, bump uint8) DerivationProof {
	return DerivationProof{Seeds: SignerSeeds(seed, layer, bump)}
}

// Address 返回该凭证在 programID 下代表的账户地址
func (p DerivationProof) Address(programID types.Pubkey) (types.Pubkey, error) {
	return CreateAddress(p.Seeds, programID)
}

// IsOffCurve 判断地址是否不是合法的 ed25519 公钥（PDA 必须满足）
func IsOffCurve(addr types.Pubkey) bool {
	_, err := new(edwards25519.Point).SetBytes(addr[:])
	return err != nil
}
