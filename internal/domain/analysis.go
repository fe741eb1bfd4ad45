package domain

import "github.com/shopspring/decimal"

// Verdicts returned by the analysis collaborator.
const (
	VerdictConfirm = "confirm"
	VerdictReject  = "reject"
)

// Fallback actions applied when analysis times out or errors.
const (
	OnTimeoutLeave  = "leave"
	OnTimeoutCancel = "cancel"
)

// AnalysisRequest is the compact numeric summary posted to the analysis
// service after a trigger fires. No prose, no prompt content; the service
// owns whatever reasoning it does with these numbers.
type AnalysisRequest struct {
	TriggerID string          `json:"trigger_id"`
	Rule      string          `json:"rule"`
	Symbol    string          `json:"symbol"`
	FiredAtMs int64           `json:"fired_at_ms"`
	Side      string          `json:"side"`
	OrderSize decimal.Decimal `json:"order_size"`
	Features  FeatureVector   `json:"features"`
}

// AnalysisResult is the collaborator's verdict on a fired trigger.
type AnalysisResult struct {
	Verdict      string           `json:"verdict"`                 // VerdictConfirm or VerdictReject
	AdjustedSize *decimal.Decimal `json:"adjusted_size,omitempty"` // on reject: reduce instead of cancel
	Reason       string           `json:"reason,omitempty"`
}

// Confirmed reports whether the verdict lets the protective order stand.
func (r *AnalysisResult) Confirmed() bool {
	return r.Verdict == VerdictConfirm
}
