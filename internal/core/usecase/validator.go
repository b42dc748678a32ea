package usecase

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/entity"
)

// Verdict classifies a raw lock event against the destination ledger.
type Verdict int

const (
	VerdictAccepted Verdict = iota
	VerdictMalformed
	VerdictWrongChain
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "accepted"
	case VerdictMalformed:
		return "malformed"
	case VerdictWrongChain:
		return "wrong_chain"
	default:
		return "unknown"
	}
}

// Validation is the outcome of validating one event. Reason is set for
// malformed events only.
type Validation struct {
	Verdict Verdict
	Reason  string
}

// ValidateEvent checks structural completeness and target-chain
// applicability of ev. It is pure: no logging, no store access.
func ValidateEvent(ev entity.LockEvent, expectedChainID uint64) Validation {
	if ev.Sender == (common.Address{}) {
		return Validation{Verdict: VerdictMalformed, Reason: "missing sender"}
	}
	if ev.Amount == nil || ev.Amount.Sign() <= 0 {
		return Validation{Verdict: VerdictMalformed, Reason: "missing or zero amount"}
	}
	if ev.TargetChainID == 0 {
		return Validation{Verdict: VerdictMalformed, Reason: "missing target chain id"}
	}
	if ev.TargetChainID != expectedChainID {
		return Validation{Verdict: VerdictWrongChain}
	}
	return Validation{Verdict: VerdictAccepted}
}
