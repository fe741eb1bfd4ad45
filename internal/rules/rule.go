package rules

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action describes what a fired rule does: the protective order shape and
// whether the fire is forwarded for out-of-band analysis.
type Action struct {
	Side           string          // domain.SideBuy or domain.SideSell
	OrderType      string          // domain.OrderTypeMarket or domain.OrderTypeLimit
	SizeFraction   decimal.Decimal // fraction of account size; zero falls back to the configured default
	LimitOffsetBps decimal.Decimal // limit price offset from the trigger price, signed
	Analyze        bool
}

// Rule is one parsed trigger definition. Immutable for the process lifetime;
// the condition tree is built once at startup and only ever read afterwards.
type Rule struct {
	Name      string
	Symbols   []string // allowlist; empty means every tracked symbol
	Condition Predicate
	Action    Action
	Cooldown  time.Duration // zero falls back to the configured default
}

// AppliesTo reports whether the rule is evaluated for the given symbol.
func (r *Rule) AppliesTo(symbol string) bool {
	if len(r.Symbols) == 0 {
		return true
	}
	for _, s := range r.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}
