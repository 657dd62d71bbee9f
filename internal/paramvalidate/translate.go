package paramvalidate

import (
	"fmt"
	"strings"

	"github.com/clobcore/matchcore/internal/matchcore"
	"github.com/clobcore/matchcore/internal/slab"
)

// ParseSide converts the wire string form of a side into slab.Side.
func ParseSide(side string) (slab.Side, error) {
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "bid":
		return slab.Bid, nil
	case "ask":
		return slab.Ask, nil
	default:
		return 0, fmt.Errorf("invalid side: %q (must be 'bid' or 'ask')", side)
	}
}

// SideToString is the inverse of ParseSide.
func SideToString(side slab.Side) string {
	if side == slab.Bid {
		return "bid"
	}
	return "ask"
}

// ParseSelfTradeBehavior converts the wire string form of a self-trade
// policy into matchcore.SelfTradeBehavior.
func ParseSelfTradeBehavior(s string) (matchcore.SelfTradeBehavior, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "decrement_take":
		return matchcore.DecrementTake, nil
	case "cancel_provide":
		return matchcore.CancelProvide, nil
	case "abort_transaction":
		return matchcore.AbortTransaction, nil
	default:
		return 0, fmt.Errorf("invalid self_trade_behavior: %q", s)
	}
}

// ToParams translates a validated NewOrderRequest into matchcore.Params.
// Callers must run Validate on req first; ToParams only re-checks the
// enum fields Validate's oneof tag already covers, since a bad tag here
// would otherwise panic deeper in the matcher.
func ToParams(req NewOrderRequest) (matchcore.Params, error) {
	side, err := ParseSide(req.Side)
	if err != nil {
		return matchcore.Params{}, err
	}
	behavior, err := ParseSelfTradeBehavior(req.SelfTradeBehavior)
	if err != nil {
		return matchcore.Params{}, err
	}
	return matchcore.Params{
		MaxAssetQty:       req.MaxAssetQty,
		MaxQuoteQty:       req.MaxQuoteQty,
		Side:              side,
		LimitPrice:        req.LimitPrice,
		CallbackInfo:      req.CallbackInfo,
		PostOnly:          req.PostOnly,
		PostAllowed:       req.PostAllowed,
		SelfTradeBehavior: behavior,
		MatchLimit:        req.MatchLimit,
	}, nil
}
