package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeypair(t *testing.T) {
	acc := sdktypes.NewAccount()
	ints := make([]int, 0, len(acc.PrivateKey))
	for _, b := range acc.PrivateKey {
		ints = append(ints, int(b))
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	loaded, err := LoadKeypair(path)
	require.NoError(t, err)
	assert.Equal(t, acc.PublicKey, loaded.PublicKey)
}

func TestParseKeypair_Invalid(t *testing.T) {
	_, err := ParseKeypair([]byte(`[1,2,3]`))
	assert.ErrorContains(t, err, "invalid keypair length")

	_, err = ParseKeypair([]byte(`not json`))
	assert.Error(t, err)

	bad := make([]int, 64)
	bad[10] = 300
	raw, _ := json.Marshal(bad)
	_, err = ParseKeypair(raw)
	assert.ErrorContains(t, err, "invalid keypair byte")

	_, err = LoadKeypair(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
