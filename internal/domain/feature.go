package domain

import "time"

// Feature field names addressable from the rule file.
const (
	FieldLastPrice      = "last_price"
	FieldCVD            = "cvd"
	FieldBuyRatio       = "buy_ratio"
	FieldMomentumBps    = "momentum_bps"
	FieldOIDeltaPct     = "oi_delta_pct"
	FieldFundingBps     = "funding_bps"
	FieldMarkPremiumBps = "mark_premium_bps"
)

// Field is a single computed feature value. OK reports whether enough data
// was available to compute it. Callers must treat !OK as unknown, never as
// zero: a rule referencing an unknown field does not match.
type Field struct {
	Value float64 `json:"value"`
	OK    bool    `json:"ok"`
}

// FeatureVector is a point-in-time snapshot of the rolling features for one
// symbol. It is a value copy: once returned it never changes under the caller.
type FeatureVector struct {
	Symbol string    `json:"symbol"`
	At     time.Time `json:"at"`

	LastPrice      Field `json:"last_price"`       // most recent trade price
	CVD            Field `json:"cvd"`              // net signed trade size over the window
	BuyRatio       Field `json:"buy_ratio"`        // aggressor-buy share of window volume [0,1]
	MomentumBps    Field `json:"momentum_bps"`     // price change vs look-back trade, basis points
	OIDeltaPct     Field `json:"oi_delta_pct"`     // open-interest change over look-back, percent
	FundingBps     Field `json:"funding_bps"`      // latest funding rate, basis points
	MarkPremiumBps Field `json:"mark_premium_bps"` // mark vs oracle distance, basis points
}

// Get returns the field addressed by a rule-file name. Unknown names return
// a zero Field (OK false), so a misaddressed rule fails closed.
func (v *FeatureVector) Get(name string) Field {
	switch name {
	case FieldLastPrice:
		return v.LastPrice
	case FieldCVD:
		return v.CVD
	case FieldBuyRatio:
		return v.BuyRatio
	case FieldMomentumBps:
		return v.MomentumBps
	case FieldOIDeltaPct:
		return v.OIDeltaPct
	case FieldFundingBps:
		return v.FundingBps
	case FieldMarkPremiumBps:
		return v.MarkPremiumBps
	}
	return Field{}
}

// KnownField reports whether name addresses a feature field. Rule parsing
// rejects unknown names at startup.
func KnownField(name string) bool {
	switch name {
	case FieldLastPrice, FieldCVD, FieldBuyRatio, FieldMomentumBps,
		FieldOIDeltaPct, FieldFundingBps, FieldMarkPremiumBps:
		return true
	}
	return false
}

// FieldNames lists every addressable field, for boot-time error messages.
func FieldNames() []string {
	return []string{
		FieldLastPrice, FieldCVD, FieldBuyRatio, FieldMomentumBps,
		FieldOIDeltaPct, FieldFundingBps, FieldMarkPremiumBps,
	}
}
