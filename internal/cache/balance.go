// Package cache holds derived per-account balances so the balance
// sheet does not recompute untouched accounts on every render.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceCache is an LRU with TTL keyed by account id. Entries are
// invalidated explicitly on every ledger write, so the TTL is only a
// backstop.
type BalanceCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[int64]*list.Element
	lru     *list.List
}

type entry struct {
	accountID int64
	balance   decimal.Decimal
	expiresAt time.Time
}

func NewBalanceCache(maxSize int, ttl time.Duration) *BalanceCache {
	return &BalanceCache{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[int64]*list.Element),
		lru:     list.New(),
	}
}

// Get returns the cached balance for an account, if still fresh.
func (c *BalanceCache) Get(accountID int64) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[accountID]
	if !exists {
		return decimal.Zero, false
	}
	e := elem.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		c.remove(elem)
		return decimal.Zero, false
	}
	c.lru.MoveToFront(elem)
	return e.balance, true
}

// Set stores a balance, evicting the least recently used account when
// over capacity.
func (c *BalanceCache) Set(accountID int64, balance decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry{
		accountID: accountID,
		balance:   balance,
		expiresAt: time.Now().Add(c.ttl),
	}
	if elem, exists := c.items[accountID]; exists {
		elem.Value = e
		c.lru.MoveToFront(elem)
		return
	}
	c.items[accountID] = c.lru.PushFront(e)

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
}

// Invalidate drops one account's cached balance.
func (c *BalanceCache) Invalidate(accountID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[accountID]; exists {
		c.remove(elem)
	}
}

// InvalidateAll drops every cached balance. Called after snapshot
// creation or deletion, which can shift any account's baseline.
func (c *BalanceCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[int64]*list.Element)
	c.lru.Init()
}

// Size returns the number of cached balances.
func (c *BalanceCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *BalanceCache) remove(elem *list.Element) {
	e := elem.Value.(*entry)
	delete(c.items, e.accountID)
	c.lru.Remove(elem)
}
