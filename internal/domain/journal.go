package domain

import (
	"time"
)

// TriggerRecord is the journaled form of a fired trigger.
type TriggerRecord struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Rule      string    `gorm:"index" json:"rule"`
	Symbol    string    `gorm:"index" json:"symbol"`
	FiredAt   time.Time `json:"fired_at"`
	Features  string    `json:"features"` // FeatureVector snapshot as JSON
	CreatedAt time.Time `json:"created_at"`
}

// OrderRecord is the journaled outcome of one protective-order dispatch.
type OrderRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TriggerID string    `gorm:"index" json:"trigger_id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Type      string    `json:"type"`
	Size      string    `json:"size"`  // decimal string
	Price     string    `json:"price"` // decimal string, empty for market
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error"` // final placement error, empty on success
	CreatedAt time.Time `json:"created_at"`
}

// VerdictRecord is the journaled analysis outcome for one trigger.
type VerdictRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TriggerID string    `gorm:"index" json:"trigger_id"`
	Verdict   string    `json:"verdict"` // confirm, reject, or timeout
	Action    string    `json:"action"`  // stand, cancel, or reduce
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}

// Verdict values journaled for non-answer outcomes.
const (
	VerdictTimeout = "timeout"

	VerdictActionStand  = "stand"
	VerdictActionCancel = "cancel"
	VerdictActionReduce = "reduce"
)
