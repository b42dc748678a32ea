package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LockEvent is a single TokensLocked emission read from the source ledger.
// It is immutable once decoded; TxID is the idempotence anchor for the
// whole relay.
type LockEvent struct {
	// TxID is the source transaction hash in hex form.
	TxID          string
	BlockNumber   uint64
	LogIndex      uint32
	Sender        common.Address
	Amount        *big.Int
	TargetChainID uint64
	// Token is the locked token contract, carried for the mint instruction.
	Token common.Address
}

// BlockRange is a span of source-ledger heights, inclusive on both ends.
type BlockRange struct {
	From uint64
	To   uint64
}

// Empty reports whether the range denotes "nothing new". An empty range is
// a no-op for scanning, never an error.
func (r BlockRange) Empty() bool {
	return r.From > r.To
}
