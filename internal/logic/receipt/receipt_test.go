package receipt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mix-router-sol/internal/consts"
	"mix-router-sol/internal/logic/ledger"
	"mix-router-sol/internal/logic/mix"
	"mix-router-sol/internal/logic/pda"
	"mix-router-sol/internal/types"
)

var (
	payer     = types.Pubkey{0xbb}
	recipient = types.Pubkey{0xcc}
)

func sampleResult() *ledger.ExecutionResult {
	sig := make([]byte, 64)
	for i := range sig {
		sig[i] = byte(i)
	}
	return &ledger.ExecutionResult{Signature: sig, Slot: 12}
}

func TestFromExecution(t *testing.T) {
	req := mix.MixRequest{Amount: 1000, MixLayers: 2, Seed: 42}
	r, err := FromExecution(sampleResult(), consts.DefaultMixProgram, payer, recipient, req, 1_700_000_000)
	require.NoError(t, err)

	assert.Equal(t, uint64(12), r.Slot)
	assert.NotEmpty(t, r.Signature)
	assert.Equal(t, uint8(2), r.MixLayers)
	require.Len(t, r.Hops, 3)
	assert.Equal(t, payer, r.Hops[0].From)
	assert.Equal(t, recipient, r.Hops[2].To)

	inter := r.Intermediates()
	require.Len(t, inter, 2)
	for layer, addr := range inter {
		d, err := pda.Derive(consts.DefaultMixProgram, 42, uint8(layer))
		require.NoError(t, err)
		assert.Equal(t, d.Address, addr)
	}
	for _, h := range r.Hops {
		assert.Equal(t, uint64(1000), h.Amount)
	}
}

func TestFromExecution_FailedResult(t *testing.T) {
	res := sampleResult()
	res.Err = errors.New("boom")
	_, err := FromExecution(res, consts.DefaultMixProgram, payer, recipient, mix.MixRequest{Amount: 1, MixLayers: 1}, 0)
	assert.Error(t, err)

	_, err = FromExecution(nil, consts.DefaultMixProgram, payer, recipient, mix.MixRequest{Amount: 1, MixLayers: 1}, 0)
	assert.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	req := mix.MixRequest{Amount: 55, MixLayers: 3, Seed: 1 << 40}
	want, err := FromExecution(sampleResult(), consts.DefaultMixProgram, payer, recipient, req, 99)
	require.NoError(t, err)

	data, err := Encode(want)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecode_Truncated(t *testing.T) {
	want, err := FromExecution(sampleResult(), consts.DefaultMixProgram, payer, recipient, mix.MixRequest{Amount: 1, MixLayers: 1, Seed: 1}, 0)
	require.NoError(t, err)
	data, err := Encode(want)
	require.NoError(t, err)

	_, err = Decode(data[:len(data)/2])
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}
