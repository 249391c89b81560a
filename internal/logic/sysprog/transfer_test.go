package sysprog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mix-router-sol/internal/consts"
	"mix-router-sol/internal/types"
)

func TestTransfer_Layout(t *testing.T) {
	from := types.Pubkey{1}
	to := types.Pubkey{2}
	ix := Transfer(from, to, 1000)

	assert.Equal(t, consts.SystemProgram, ix.ProgramID)
	require.Len(t, ix.Accounts, 2)
	assert.Equal(t, from, ix.Accounts[0].Pubkey)
	assert.True(t, ix.Accounts[0].IsSigner)
	assert.True(t, ix.Accounts[0].IsWritable)
	assert.Equal(t, to, ix.Accounts[1].Pubkey)
	assert.False(t, ix.Accounts[1].IsSigner)
	assert.True(t, ix.Accounts[1].IsWritable)

	assert.Equal(t, []byte{2, 0, 0, 0, 0xe8, 0x03, 0, 0, 0, 0, 0, 0}, ix.Data)

	lamports, err := DecodeTransfer(ix.Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), lamports)
}

func TestDecodeTransfer_Rejects(t *testing.T) {
	_, err := DecodeTransfer(nil)
	assert.ErrorIs(t, err, ErrInvalidSystemInstruction)

	_, err = DecodeTransfer([]byte{2, 0, 0, 0, 1, 2})
	assert.ErrorIs(t, err, ErrInvalidSystemInstruction)

	// CreateAccount = 0
	_, err = DecodeTransfer([]byte{0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrUnsupportedInstruction)
}
