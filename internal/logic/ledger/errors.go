package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrMissingSignature     = errors.New("missing required signature")
	ErrInsufficientLamports = errors.New("insufficient lamports")
	ErrLamportsOverflow     = errors.New("lamports overflow")
	ErrMissingAccount       = errors.New("account not provided to instruction")
	ErrUnknownProgram       = errors.New("unknown program")
	ErrInvalidAccountOwner  = errors.New("invalid account owner")
	ErrCallDepth            = errors.New("cross-program invocation depth exceeded")
	ErrEmptyTransaction     = errors.New("transaction has no instructions")
)

// InstructionError 交易内第 Index 条指令执行失败，整笔交易已回滚
type InstructionError struct {
	Index int
	Err   error
}

func (e *InstructionError) Error() string {
	return fmt.Sprintf("instruction %d failed: %v", e.Index, e.Err)
}

func (e *InstructionError) Unwrap() error {
	return e.Err
}
