package matchcore

import "github.com/clobcore/matchcore/internal/slab"

// SelfTradeBehavior selects how the matcher resolves a match against
// an order carrying the same callback info as the incoming order.
type SelfTradeBehavior uint8

const (
	// DecrementTake trades normally; both maker and taker fills carry
	// the same callback info and downstream accounting must net them.
	DecrementTake SelfTradeBehavior = iota
	// CancelProvide cancels the resting maker leaf and emits an Out for
	// it, then continues matching without consuming match_limit or
	// taker budget for that step.
	CancelProvide
	// AbortTransaction fails the whole call with WouldSelfTrade.
	AbortTransaction
)

// String names the policy for metrics labels and log fields.
func (b SelfTradeBehavior) String() string {
	switch b {
	case DecrementTake:
		return "decrement_take"
	case CancelProvide:
		return "cancel_provide"
	case AbortTransaction:
		return "abort_transaction"
	default:
		return "unknown"
	}
}

// Params is the input to a single matching call.
type Params struct {
	MaxAssetQty       uint64
	MaxQuoteQty       uint64
	Side              slab.Side
	LimitPrice        uint64 // Q32.32
	CallbackInfo      []byte
	PostOnly          bool
	PostAllowed       bool
	SelfTradeBehavior SelfTradeBehavior
	MatchLimit        uint64
}
