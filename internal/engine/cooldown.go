package engine

import (
	"sync"
	"time"
)

type cooldownKey struct {
	rule   string
	symbol string
}

// CooldownLedger tracks the last fire time per (rule, symbol) pair. Check
// and record are a single step under the lock, so concurrent evaluations of
// the same pair can never both fire inside one window.
type CooldownLedger struct {
	mu        sync.Mutex
	lastFired map[cooldownKey]time.Time
}

func NewCooldownLedger() *CooldownLedger {
	return &CooldownLedger{
		lastFired: make(map[cooldownKey]time.Time),
	}
}

// TryFire reports whether the pair may fire at now and, when it may,
// records the fire. A non-positive cooldown never suppresses.
func (l *CooldownLedger) TryFire(rule, symbol string, now time.Time, cooldown time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := cooldownKey{rule: rule, symbol: symbol}
	if last, ok := l.lastFired[key]; ok && cooldown > 0 && now.Sub(last) < cooldown {
		return false
	}
	l.lastFired[key] = now
	return true
}
