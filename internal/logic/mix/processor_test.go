package mix

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mix-router-sol/internal/consts"
	"mix-router-sol/internal/logic/domain"
	"mix-router-sol/internal/logic/ledger"
	"mix-router-sol/internal/logic/pda"
	"mix-router-sol/internal/types"
)

type fixture struct {
	rt        *ledger.Runtime
	program   types.Pubkey
	proxy     types.Pubkey
	payer     types.Pubkey
	recipient types.Pubkey
}

func newFixture(t *testing.T, payerBalance uint64) *fixture {
	t.Helper()
	f := &fixture{
		rt:        ledger.NewRuntime(ledger.NewBank()),
		program:   consts.DefaultMixProgram,
		proxy:     types.Pubkey{0xaa},
		payer:     types.Pubkey{0xbb},
		recipient: types.Pubkey{0xcc},
	}
	f.rt.Register(f.program, func(ictx *ledger.InvokeContext, programID types.Pubkey, accounts []types.Pubkey, data []byte) error {
		return ProcessInstruction(ictx, programID, accounts, data)
	})
	f.rt.Bank().SetBalance(f.proxy, 5_000)
	f.rt.Bank().SetBalance(f.payer, payerBalance)
	return f
}

func (f *fixture) subAccounts(t *testing.T, seed uint64, layers uint8) []types.Pubkey {
	t.Helper()
	subs := make([]types.Pubkey, layers)
	for i := uint8(0); i < layers; i++ {
		d, err := pda.Derive(f.program, seed, i)
		require.NoError(t, err)
		subs[i] = d.Address
	}
	return subs
}

func (f *fixture) chain(subs []types.Pubkey) []types.Pubkey {
	return append([]types.Pubkey{f.proxy, f.payer, f.recipient, consts.SystemProgram}, subs...)
}

func (f *fixture) execute(t *testing.T, accounts []types.Pubkey, req MixRequest) (*ledger.ExecutionResult, error) {
	t.Helper()
	data, err := EncodeInitializeMix(req)
	require.NoError(t, err)
	return f.executeRaw(accounts, data)
}

func (f *fixture) executeRaw(accounts []types.Pubkey, data []byte) (*ledger.ExecutionResult, error) {
	metas := make([]domain.AccountMeta, len(accounts))
	for i, acc := range accounts {
		metas[i] = domain.AccountMeta{
			Pubkey:     acc,
			IsSigner:   i == accountProxyPayer || i == accountPayer,
			IsWritable: i != accountSystemProgram,
		}
	}
	return f.rt.Execute(context.Background(), ledger.Transaction{
		Instructions: []domain.Instruction{{ProgramID: f.program, Accounts: metas, Data: data}},
		Signers:      []types.Pubkey{f.proxy, f.payer},
	})
}

func (f *fixture) balance(addr types.Pubkey) uint64 {
	return f.rt.Bank().Balance(addr)
}

func TestForward_EndToEnd(t *testing.T) {
	f := newFixture(t, 10_000)
	subs := f.subAccounts(t, 42, 2)

	res, err := f.execute(t, f.chain(subs), MixRequest{Amount: 1000, MixLayers: 2, Seed: 42})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, uint64(9_000), f.balance(f.payer))
	assert.Equal(t, uint64(1_000), f.balance(f.recipient))
	for i, sub := range subs {
		assert.Equal(t, uint64(0), f.balance(sub), "sub-account %d keeps no balance", i)
	}
	assert.Equal(t, uint64(5_000), f.balance(f.proxy))
	assert.Contains(t, res.LogMessages, "Program log: payer.lamports = 10000 amount = 1000")
}

func TestForward_AllLayerCounts(t *testing.T) {
	for layers := consts.MinMixLayers; layers <= consts.MaxMixLayers; layers++ {
		f := newFixture(t, 777)
		subs := f.subAccounts(t, uint64(layers)*1000+1, layers)

		_, err := f.execute(t, f.chain(subs), MixRequest{Amount: 777, MixLayers: layers, Seed: uint64(layers)*1000 + 1})
		require.NoError(t, err, "layers=%d", layers)
		assert.Equal(t, uint64(0), f.balance(f.payer))
		assert.Equal(t, uint64(777), f.balance(f.recipient))
	}
}

func TestForward_InvalidMixLayers(t *testing.T) {
	f := newFixture(t, 10_000)

	_, err := f.execute(t, f.chain(nil), MixRequest{Amount: 10, MixLayers: 0, Seed: 1})
	assert.ErrorIs(t, err, ErrInvalidMixLayers)

	subs := f.subAccounts(t, 1, 5)
	_, err = f.execute(t, f.chain(subs), MixRequest{Amount: 10, MixLayers: 5, Seed: 1})
	assert.ErrorIs(t, err, ErrInvalidMixLayers)

	assert.Equal(t, uint64(10_000), f.balance(f.payer))
}

func TestForward_NotEnoughAccounts(t *testing.T) {
	f := newFixture(t, 10_000)
	subs := f.subAccounts(t, 9, 3)

	// 少一个中间账户
	_, err := f.execute(t, f.chain(subs[:2]), MixRequest{Amount: 10, MixLayers: 3, Seed: 9})
	assert.ErrorIs(t, err, ErrNotEnoughAccounts)

	// 连固定前缀都不完整
	_, err = f.execute(t, []types.Pubkey{f.proxy, f.payer}, MixRequest{Amount: 10, MixLayers: 1, Seed: 9})
	assert.ErrorIs(t, err, ErrNotEnoughAccounts)

	// 多出一个账户同样不合法
	extra, err := pda.Derive(f.program, 9, 3)
	require.NoError(t, err)
	_, err = f.execute(t, f.chain(append(subs, extra.Address)), MixRequest{Amount: 10, MixLayers: 3, Seed: 9})
	assert.ErrorIs(t, err, ErrNotEnoughAccounts)
}

func TestForward_InsufficientFunds(t *testing.T) {
	f := newFixture(t, 999)
	subs := f.subAccounts(t, 42, 2)

	_, err := f.execute(t, f.chain(subs), MixRequest{Amount: 1000, MixLayers: 2, Seed: 42})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, uint64(999), f.balance(f.payer))

	f.rt.Bank().SetBalance(f.payer, 1000)
	_, err = f.execute(t, f.chain(subs), MixRequest{Amount: 1000, MixLayers: 2, Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), f.balance(f.payer))
	assert.Equal(t, uint64(1000), f.balance(f.recipient))
}

func TestForward_MismatchAtLaterLayerRollsBack(t *testing.T) {
	f := newFixture(t, 10_000)
	subs := f.subAccounts(t, 42, 2)
	bogus := types.Pubkey{0xde, 0xad}
	subs[1] = bogus

	res, err := f.execute(t, f.chain(subs), MixRequest{Amount: 1000, MixLayers: 2, Seed: 42})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAddressDerivationFailed)

	var mismatch *AddressMismatchError
	require.True(t, errors.As(err, &mismatch))
	expected, derr := pda.Derive(f.program, 42, 1)
	require.NoError(t, derr)
	assert.Equal(t, uint8(1), mismatch.Layer)
	assert.Equal(t, expected.Address, mismatch.Expected)
	assert.Equal(t, bogus, mismatch.Actual)

	// hop 0 已在暂存中执行，但整笔交易回滚
	assert.Equal(t, uint64(10_000), f.balance(f.payer))
	assert.Equal(t, uint64(0), f.balance(subs[0]))
	assert.Equal(t, uint64(0), f.balance(f.recipient))

	// 诊断日志给出的是第 1 层自己的期望值
	assert.Contains(t, res.LogMessages,
		"Program log: layer 1 intermediate account mismatch: expected "+expected.Address.String()+" actual "+bogus.String())
}

func TestForward_MismatchAtFirstLayer(t *testing.T) {
	f := newFixture(t, 10_000)
	subs := f.subAccounts(t, 42, 2)
	subs[0], subs[1] = subs[1], subs[0]

	_, err := f.execute(t, f.chain(subs), MixRequest{Amount: 1000, MixLayers: 2, Seed: 42})
	var mismatch *AddressMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, uint8(0), mismatch.Layer)
	assert.Equal(t, uint64(10_000), f.balance(f.payer))
}

func TestForward_WrongSeedRejected(t *testing.T) {
	f := newFixture(t, 10_000)
	subs := f.subAccounts(t, 41, 2)

	_, err := f.execute(t, f.chain(subs), MixRequest{Amount: 1000, MixLayers: 2, Seed: 42})
	assert.ErrorIs(t, err, ErrAddressDerivationFailed)
}

func TestForward_InvalidInstructionData(t *testing.T) {
	f := newFixture(t, 10_000)
	subs := f.subAccounts(t, 42, 1)

	_, err := f.executeRaw(f.chain(subs), []byte{0, 1, 2})
	assert.ErrorIs(t, err, ErrInvalidInstructionData)
}

func TestForward_PayerMustSign(t *testing.T) {
	f := newFixture(t, 10_000)
	subs := f.subAccounts(t, 42, 1)
	data, err := EncodeInitializeMix(MixRequest{Amount: 1000, MixLayers: 1, Seed: 42})
	require.NoError(t, err)

	accounts := f.chain(subs)
	metas := make([]domain.AccountMeta, len(accounts))
	for i, acc := range accounts {
		metas[i] = domain.AccountMeta{Pubkey: acc, IsSigner: i == accountProxyPayer, IsWritable: true}
	}
	_, err = f.rt.Execute(context.Background(), ledger.Transaction{
		Instructions: []domain.Instruction{{ProgramID: f.program, Accounts: metas, Data: data}},
		Signers:      []types.Pubkey{f.proxy},
	})
	assert.ErrorIs(t, err, ledger.ErrMissingSignature)
	assert.Equal(t, uint64(10_000), f.balance(f.payer))
}

func TestForward_SystemProgramAccountRequired(t *testing.T) {
	f := newFixture(t, 10_000)
	subs := f.subAccounts(t, 42, 1)
	accounts := f.chain(subs)
	accounts[accountSystemProgram] = types.Pubkey{0x55}

	_, err := f.execute(t, accounts, MixRequest{Amount: 1000, MixLayers: 1, Seed: 42})
	assert.ErrorIs(t, err, ledger.ErrMissingAccount)
	assert.Equal(t, uint64(10_000), f.balance(f.payer))
}

func TestForward_ResidualBalanceUntouched(t *testing.T) {
	f := newFixture(t, 10_000)
	subs := f.subAccounts(t, 42, 2)
	f.rt.Bank().SetBalance(subs[0], 33)

	_, err := f.execute(t, f.chain(subs), MixRequest{Amount: 1000, MixLayers: 2, Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, uint64(33), f.balance(subs[0]))
	assert.Equal(t, uint64(1000), f.balance(f.recipient))
}

func TestForward_ZeroAmount(t *testing.T) {
	f := newFixture(t, 50)
	subs := f.subAccounts(t, 5, 3)

	_, err := f.execute(t, f.chain(subs), MixRequest{Amount: 0, MixLayers: 3, Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, uint64(50), f.balance(f.payer))
	assert.Equal(t, uint64(0), f.balance(f.recipient))
}

func TestPlanHops(t *testing.T) {
	program := consts.DefaultMixProgram
	payer, recipient := types.Pubkey{1}, types.Pubkey{2}

	hops, err := PlanHops(program, payer, recipient, MixRequest{Amount: 50, MixLayers: 3, Seed: 8})
	require.NoError(t, err)
	require.Len(t, hops, 4)
	assert.Equal(t, payer, hops[0].From)
	assert.Equal(t, recipient, hops[3].To)
	for i := 1; i < len(hops); i++ {
		assert.Equal(t, hops[i-1].To, hops[i].From)
		assert.Equal(t, uint64(50), hops[i].Amount)
	}

	_, err = PlanHops(program, payer, recipient, MixRequest{Amount: 50, MixLayers: 0, Seed: 8})
	assert.ErrorIs(t, err, ErrInvalidMixLayers)
}
