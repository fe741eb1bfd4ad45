package domain

import (
	"time"

	"github.com/google/uuid"
)

// TriggerEvent records a single rule match for one symbol. Each fire gets a
// unique ID so downstream dispatch and journaling can deduplicate; the
// feature snapshot is the exact vector the rule matched against.
type TriggerEvent struct {
	ID       string        `json:"id"`
	Rule     string        `json:"rule"`
	Symbol   string        `json:"symbol"`
	At       time.Time     `json:"at"`
	Features FeatureVector `json:"features"`
}

// NewTriggerEvent stamps a fresh trigger for rule/symbol with the matched
// snapshot.
func NewTriggerEvent(rule, symbol string, at time.Time, features FeatureVector) *TriggerEvent {
	return &TriggerEvent{
		ID:       uuid.NewString(),
		Rule:     rule,
		Symbol:   symbol,
		At:       at,
		Features: features,
	}
}
