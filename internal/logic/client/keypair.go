package client

import (
	"encoding/json"
	"fmt"
	"os"

	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// LoadKeypair 读取 solana-keygen 生成的 JSON 私钥文件（64 个整数的数组）
func LoadKeypair(path string) (sdktypes.Account, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sdktypes.Account{}, fmt.Errorf("read keypair %s: %w", path, err)
	}
	return ParseKeypair(raw)
}

func ParseKeypair(raw []byte) (sdktypes.Account, error) {
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return sdktypes.Account{}, fmt.Errorf("parse keypair json: %w", err)
	}
	if len(ints) != 64 {
		return sdktypes.Account{}, fmt.Errorf("invalid keypair length: got %d, want 64", len(ints))
	}
	key := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return sdktypes.Account{}, fmt.Errorf("invalid keypair byte at %d: %d", i, v)
		}
		key[i] = byte(v)
	}
	return sdktypes.AccountFromBytes(key)
}
