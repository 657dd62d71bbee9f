// Package paramvalidate validates order parameters before they reach
// the matcher: the core trusts its inputs completely, so anything a
// malformed wire message could smuggle in has to be caught here.
package paramvalidate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// NewOrderRequest is the validated shape of an incoming order, prior
// to translation into matchcore.Params.
type NewOrderRequest struct {
	MarketID          string `json:"market_id" validate:"required"`
	MaxAssetQty       uint64 `json:"max_asset_qty" validate:"required,gt=0"`
	MaxQuoteQty       uint64 `json:"max_quote_qty" validate:"gte=0"`
	Side              string `json:"side" validate:"required,oneof=bid ask"`
	LimitPrice        uint64 `json:"limit_price" validate:"required,gt=0"`
	CallbackInfo      []byte `json:"callback_info" validate:"required,max=64"`
	PostOnly          bool   `json:"post_only"`
	PostAllowed       bool   `json:"post_allowed"`
	SelfTradeBehavior string `json:"self_trade_behavior" validate:"required,oneof=decrement_take cancel_provide abort_transaction"`
	MatchLimit        uint64 `json:"match_limit" validate:"gte=0"`
}

// ConsumeEventsRequest is the validated shape of a consume-events call.
type ConsumeEventsRequest struct {
	MarketID                 string `json:"market_id" validate:"required"`
	NumberOfEntriesToConsume uint64 `json:"number_of_entries_to_consume" validate:"required,gt=0"`
	RewardTarget             string `json:"reward_target" validate:"required"`
}

// Validator wraps go-playground/validator with the tag-name and
// message formatting conventions the rest of the host uses.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator whose field errors are reported using each
// struct field's json tag.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate checks i against its validate tags, returning a single
// joined error message on failure.
func (val *Validator) Validate(i interface{}) error {
	if err := val.v.Struct(i); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			messages := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				messages = append(messages, formatFieldError(fe))
			}
			return errors.New(strings.Join(messages, "; "))
		}
		return err
	}
	return nil
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s bytes", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
	}
}
