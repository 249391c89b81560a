package pda

import (
	"encoding/binary"
	"testing"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mix-router-sol/internal/consts"
	"mix-router-sol/internal/types"
)

var testProgram = consts.DefaultMixProgram

func TestDerive_Deterministic(t *testing.T) {
	a, err := Derive(testProgram, 42, 1)
	require.NoError(t, err)
	b, err := Derive(testProgram, 42, 1)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDerive_DistinctPerLayer(t *testing.T) {
	for _, seed := range []uint64{0, 1, 42, 1<<63 + 7} {
		seen := make(map[types.Pubkey]uint8)
		for layer := uint8(0); layer < consts.MaxMixLayers; layer++ {
			d, err := Derive(testProgram, seed, layer)
			require.NoError(t, err)
			prev, dup := seen[d.Address]
			assert.False(t, dup, "seed=%d layer %d collides with layer %d", seed, layer, prev)
			seen[d.Address] = layer
		}
	}
}

func TestDerive_DependsOnProgramAndSeed(t *testing.T) {
	base, err := Derive(testProgram, 42, 0)
	require.NoError(t, err)

	otherSeed, err := Derive(testProgram, 43, 0)
	require.NoError(t, err)
	assert.NotEqual(t, base.Address, otherSeed.Address)

	otherProgram, err := Derive(consts.SystemProgram, 42, 0)
	require.NoError(t, err)
	assert.NotEqual(t, base.Address, otherProgram.Address)
}

func TestSignerSeeds_Encoding(t *testing.T) {
	seeds := SignerSeeds(0x0102030405060708, 3, 254)
	require.Len(t, seeds, 4)
	assert.Equal(t, []byte("mix_intermediate"), seeds[0])
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, seeds[1])
	assert.Equal(t, uint64(0x0102030405060708), binary.LittleEndian.Uint64(seeds[1]))
	assert.Equal(t, []byte{3}, seeds[2])
	assert.Equal(t, []byte{254}, seeds[3])
}

func TestSignerSeeds_RoundTrip(t *testing.T) {
	for layer := uint8(0); layer < consts.MaxMixLayers; layer++ {
		d, err := Derive(testProgram, 42, layer)
		require.NoError(t, err)

		addr, err := CreateAddress(SignerSeeds(42, layer, d.Bump), testProgram)
		require.NoError(t, err)
		assert.Equal(t, d.Address, addr, "layer %d", layer)

		proofAddr, err := NewDerivationProof(42, layer, d.Bump).Address(testProgram)
		require.NoError(t, err)
		assert.Equal(t, d.Address, proofAddr)
	}
}

func TestDerivationProof_BoundToLayer(t *testing.T) {
	d0, err := Derive(testProgram, 42, 0)
	require.NoError(t, err)
	d1, err := Derive(testProgram, 42, 1)
	require.NoError(t, err)

	addr, err := NewDerivationProof(42, 0, d0.Bump).Address(testProgram)
	require.NoError(t, err)
	assert.NotEqual(t, d1.Address, addr)

	// 同一凭证换一个程序后指向完全不同的地址
	other, err := NewDerivationProof(42, 0, d0.Bump).Address(consts.SystemProgram)
	if err == nil {
		assert.NotEqual(t, d0.Address, other)
	}
}

func TestIsOffCurve(t *testing.T) {
	for layer := uint8(0); layer < consts.MaxMixLayers; layer++ {
		d, err := Derive(testProgram, 7, layer)
		require.NoError(t, err)
		assert.True(t, IsOffCurve(d.Address), "derived address must be off-curve")
	}

	wallet := sdktypes.NewAccount()
	assert.False(t, IsOffCurve(types.PubkeyFromCommon(wallet.PublicKey)), "ed25519 wallet key is on-curve")
}
