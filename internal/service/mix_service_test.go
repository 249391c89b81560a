package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mix-router-sol/internal/consts"
	"mix-router-sol/internal/logic/client"
	"mix-router-sol/internal/logic/ledger"
	"mix-router-sol/internal/logic/mix"
	"mix-router-sol/internal/logic/receipt"
	"mix-router-sol/internal/logic/seedguard"
	"mix-router-sol/internal/types"
)

type fakeSink struct {
	published []*receipt.MixReceipt
	err       error
}

func (f *fakeSink) Publish(_ context.Context, receipts ...*receipt.MixReceipt) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, receipts...)
	return nil
}

type serviceFixture struct {
	svc   *MixService
	bank  *ledger.Bank
	guard *seedguard.Guard
	sink  *fakeSink
}

func newServiceFixture(payerBalance uint64) *serviceFixture {
	bank := ledger.NewBank()
	bank.SetBalance(types.Pubkey{0xaa}, 5_000)
	bank.SetBalance(types.Pubkey{0xbb}, payerBalance)

	guard := seedguard.NewGuard(seedguard.NewMemorySeedStore())
	sink := &fakeSink{}
	svc := NewMixService(ledger.NewRuntime(bank), consts.DefaultMixProgram, guard, sink)
	svc.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return &serviceFixture{svc: svc, bank: bank, guard: guard, sink: sink}
}

func params(seed uint64) client.MixParams {
	return client.MixParams{
		FeePayer:  types.Pubkey{0xaa},
		Payer:     types.Pubkey{0xbb},
		Recipient: types.Pubkey{0xcc},
		Amount:    1000,
		MixLayers: 2,
		Seed:      seed,
	}
}

func TestForward_Success(t *testing.T) {
	f := newServiceFixture(10_000)
	ctx := context.Background()

	r, err := f.svc.Forward(ctx, params(42))
	require.NoError(t, err)

	assert.Equal(t, uint64(9_000), f.bank.Balance(types.Pubkey{0xbb}))
	assert.Equal(t, uint64(1_000), f.bank.Balance(types.Pubkey{0xcc}))
	for _, addr := range r.Intermediates() {
		assert.Zero(t, f.bank.Balance(addr))
	}

	assert.Equal(t, int64(1_700_000_000), r.BlockTime)
	assert.Equal(t, consts.DefaultMixProgram, r.ProgramID)
	require.Len(t, f.sink.published, 1)
	assert.Equal(t, r, f.sink.published[0])

	status, err := f.guard.Status(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, seedguard.SeedCompleted, status)
}

func TestForward_SeedReuseRejected(t *testing.T) {
	f := newServiceFixture(10_000)
	ctx := context.Background()

	_, err := f.svc.Forward(ctx, params(42))
	require.NoError(t, err)

	_, err = f.svc.Forward(ctx, params(42))
	assert.ErrorIs(t, err, seedguard.ErrSeedInUse)
	assert.Equal(t, uint64(9_000), f.bank.Balance(types.Pubkey{0xbb}))
	assert.Len(t, f.sink.published, 1)
}

func TestForward_FailureMarksSeedFailed(t *testing.T) {
	f := newServiceFixture(999)
	ctx := context.Background()

	_, err := f.svc.Forward(ctx, params(7))
	assert.ErrorIs(t, err, mix.ErrInsufficientFunds)
	assert.Equal(t, uint64(999), f.bank.Balance(types.Pubkey{0xbb}))
	assert.Empty(t, f.sink.published)

	status, err := f.guard.Status(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, seedguard.SeedFailed, status)

	// 失败的种子在补足余额后可以重用
	f.bank.SetBalance(types.Pubkey{0xbb}, 1_000)
	_, err = f.svc.Forward(ctx, params(7))
	assert.NoError(t, err)
}

func TestForward_InvalidLayers(t *testing.T) {
	f := newServiceFixture(10_000)
	p := params(3)
	p.MixLayers = 5

	_, err := f.svc.Forward(context.Background(), p)
	assert.ErrorIs(t, err, mix.ErrInvalidMixLayers)
}

func TestForward_PublishFailureKeepsTransfer(t *testing.T) {
	f := newServiceFixture(10_000)
	f.sink.err = errors.New("kafka down")

	r, err := f.svc.Forward(context.Background(), params(11))
	require.NoError(t, err)
	assert.NotNil(t, r)
	assert.Equal(t, uint64(1_000), f.bank.Balance(types.Pubkey{0xcc}))
}

func TestLogSink(t *testing.T) {
	assert.NoError(t, LogSink{}.Publish(context.Background(), &receipt.MixReceipt{Signature: "x"}))
}
