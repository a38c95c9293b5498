package router

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// DefaultFeeID is stamped into the low digits of every bonder/relayer fee so
// the bridge can tell tagged fees apart from raw ones.
const DefaultFeeID = "123456789"

// TaggedFee is a fee that carries its disambiguating identifier.
// Only a TaggedFee can be subtracted from a bound.
type TaggedFee struct {
	raw   *uint256.Int
	value *uint256.Int
	id    string
}

// WithDisambiguatingID tags fee with DefaultFeeID.
func WithDisambiguatingID(fee *uint256.Int) (TaggedFee, error) {
	return withFeeID(fee, DefaultFeeID)
}

func withFeeID(fee *uint256.Int, id string) (TaggedFee, error) {
	if fee == nil {
		return TaggedFee{}, ErrMissingFee
	}
	raw := fee.Clone()
	if raw.IsZero() {
		return TaggedFee{raw: raw, value: new(uint256.Int), id: id}, nil
	}

	digits := raw.Dec()
	// fees shorter than the id keep their value
	if len(digits) <= len(id) {
		return TaggedFee{raw: raw, value: raw.Clone(), id: id}, nil
	}
	value, err := uint256.FromDecimal(digits[:len(digits)-len(id)] + id)
	if err != nil {
		return TaggedFee{}, fmt.Errorf("failed to tag fee %s: %w", digits, err)
	}
	return TaggedFee{raw: raw, value: value, id: id}, nil
}

// Value is the tagged fee as sent to the bridge.
func (f TaggedFee) Value() *uint256.Int {
	if f.value == nil {
		return new(uint256.Int)
	}
	return f.value.Clone()
}

// Raw is the fee before tagging.
func (f TaggedFee) Raw() *uint256.Int {
	if f.raw == nil {
		return new(uint256.Int)
	}
	return f.raw.Clone()
}

// ID returns the identifier stamped into the fee.
func (f TaggedFee) ID() string {
	return f.id
}

// ComputeMinOutput returns bound - fee. When the fee exceeds the bound the
// result saturates at zero and ErrFeeExceedsAmount is returned.
func ComputeMinOutput(bound *uint256.Int, fee TaggedFee) (*uint256.Int, error) {
	if bound == nil {
		return new(uint256.Int), ErrMissingBound
	}
	value := fee.Value()
	if value.Gt(bound) {
		return new(uint256.Int), fmt.Errorf("fee %s exceeds bound %s: %w", value.Dec(), bound.Dec(), ErrFeeExceedsAmount)
	}
	return new(uint256.Int).Sub(bound, value), nil
}

// ParseAmount converts a human readable amount to base units. Digits past the
// token's precision are truncated.
func ParseAmount(amount string, decimals int32) (*uint256.Int, error) {
	if amount == "" {
		return new(uint256.Int), nil
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, amount)
	}
	units := d.Shift(decimals).Truncate(0)
	out, overflow := uint256.FromBig(units.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: amount %s overflows", ErrInvalidAmount, amount)
	}
	return out, nil
}
