package feature

import (
	"sort"
	"sync"
	"time"

	"sentinel_go/internal/domain"
	"sentinel_go/internal/event"
)

// Cache owns every SymbolWindow and is the single writer surface for feed
// events. The outer map lock only guards window lookup and creation; event
// application and snapshotting take the per-symbol lock, so activity on one
// symbol never stalls another.
type Cache struct {
	mu      sync.RWMutex
	windows map[string]*SymbolWindow
	cfg     WindowConfig
}

// NewCache creates a cache with a pre-built window per configured symbol.
func NewCache(symbols []string, cfg WindowConfig) *Cache {
	c := &Cache{
		windows: make(map[string]*SymbolWindow, len(symbols)),
		cfg:     cfg,
	}
	for _, sym := range symbols {
		c.windows[sym] = NewSymbolWindow(sym, cfg)
	}
	return c
}

// window returns the symbol's window, creating it on first sight.
func (c *Cache) window(symbol string) *SymbolWindow {
	c.mu.RLock()
	w, ok := c.windows[symbol]
	c.mu.RUnlock()
	if ok {
		return w
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok = c.windows[symbol]; ok {
		return w
	}
	w = NewSymbolWindow(symbol, c.cfg)
	c.windows[symbol] = w
	return w
}

// ApplyTrade routes one trade print to its symbol window. Called from the
// feed delivery path; O(1) amortized.
func (c *Cache) ApplyTrade(ev *event.TradeEvent) {
	c.window(ev.Symbol).ApplyTrade(ev)
}

// ApplyContext routes one asset-context snapshot to its symbol window.
func (c *Cache) ApplyContext(ev *event.ContextEvent) {
	c.window(ev.Symbol).ApplyContext(ev)
}

// Features returns a point-in-time vector for the symbol. Unknown symbols
// return ErrUnknownSymbol rather than an empty vector, so callers cannot
// mistake "never seen" for "insufficient data".
func (c *Cache) Features(symbol string) (domain.FeatureVector, error) {
	c.mu.RLock()
	w, ok := c.windows[symbol]
	c.mu.RUnlock()
	if !ok {
		return domain.FeatureVector{}, domain.ErrUnknownSymbol
	}
	return w.Snapshot(time.Now()), nil
}

// Symbols returns all tracked symbols sorted for consistent ordering.
func (c *Cache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]string, 0, len(c.windows))
	for sym := range c.windows {
		result = append(result, sym)
	}
	sort.Strings(result)
	return result
}
