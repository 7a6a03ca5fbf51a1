package flowcontrol

import (
	"math"
	"math/bits"
	"time"

	cmtsync "github.com/cometbft/flowcontrol/libs/sync"
	"github.com/cometbft/flowcontrol/p2p"
)

// ledgerEntry is one peer's balance in one ledger. A zero lastUpdate means
// the entry was just created and has nothing to recharge from.
type ledgerEntry struct {
	mtx cmtsync.Mutex

	balance    int64
	lastUpdate time.Time

	// set once the entry is no longer reachable from its ledger
	removed bool
}

func newLedgerEntry(balance int64) *ledgerEntry {
	return &ledgerEntry{balance: balance}
}

// recharged returns the balance at now without modifying the entry.
func (e *ledgerEntry) recharged(now time.Time, rate, limit int64) int64 {
	if e.lastUpdate.IsZero() {
		return e.balance
	}
	return recharge(e.balance, now.Sub(e.lastUpdate), rate, limit)
}

// touch moves lastUpdate to now. lastUpdate never moves backwards, so a clock
// that jumps back only delays the next recharge.
func (e *ledgerEntry) touch(now time.Time) {
	if now.After(e.lastUpdate) {
		e.lastUpdate = now
	}
}

// recharge returns min(balance + rate*elapsed, limit), where rate is in
// credits per millisecond. A balance already at or above limit is clamped
// to it. Non-positive elapsed times add nothing.
func recharge(balance int64, elapsed time.Duration, rate, limit int64) int64 {
	if balance >= limit {
		return limit
	}
	if elapsed <= 0 || rate <= 0 {
		return balance
	}
	// limit > balance, so the difference fits in a uint64 even for a
	// balance close to math.MinInt64.
	room := uint64(limit) - uint64(balance)

	hi, lo := bits.Mul64(uint64(rate), uint64(elapsed))
	if hi >= uint64(time.Millisecond) {
		return limit
	}
	gain, _ := bits.Div64(hi, lo, uint64(time.Millisecond))
	if gain >= room {
		return limit
	}
	return int64(uint64(balance) + gain)
}

// timeToRecharge returns how long it takes to recover need credits at rate
// credits per millisecond, rounded up to the nanosecond.
func timeToRecharge(need uint64, rate int64) time.Duration {
	hi, lo := bits.Mul64(need, uint64(time.Millisecond))
	if hi >= uint64(rate) {
		return time.Duration(math.MaxInt64)
	}
	q, r := bits.Div64(hi, lo, uint64(rate))
	if r > 0 {
		q++
	}
	if q > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(q)
}

// ledger maps peers to their entries. The map lock only guards membership;
// balances are guarded by each entry's own lock so peers never contend with
// each other.
//
// Lock order: an entry lock may be held while taking the map lock, never the
// other way around.
type ledger struct {
	mtx     cmtsync.RWMutex
	entries map[p2p.ID]*ledgerEntry
}

func newLedger() *ledger {
	return &ledger{
		entries: make(map[p2p.ID]*ledgerEntry),
	}
}

// acquire returns the locked entry for id, creating it with fresh if absent.
// The caller must unlock it.
func (l *ledger) acquire(id p2p.ID, fresh func() *ledgerEntry) *ledgerEntry {
	for {
		l.mtx.RLock()
		e, ok := l.entries[id]
		l.mtx.RUnlock()

		if !ok {
			l.mtx.Lock()
			e, ok = l.entries[id]
			if !ok {
				e = fresh()
				l.entries[id] = e
			}
			l.mtx.Unlock()
		}

		e.mtx.Lock()
		if !e.removed {
			return e
		}
		// lost a race with drop or remove, look again
		e.mtx.Unlock()
	}
}

// peek returns the locked entry for id, or nil if there is none.
func (l *ledger) peek(id p2p.ID) *ledgerEntry {
	l.mtx.RLock()
	e, ok := l.entries[id]
	l.mtx.RUnlock()
	if !ok {
		return nil
	}
	e.mtx.Lock()
	if e.removed {
		e.mtx.Unlock()
		return nil
	}
	return e
}

// drop removes e, which the caller holds locked.
func (l *ledger) drop(id p2p.ID, e *ledgerEntry) {
	e.removed = true
	l.mtx.Lock()
	if l.entries[id] == e {
		delete(l.entries, id)
	}
	l.mtx.Unlock()
}

// remove deletes the entry for id and reports whether there was one.
func (l *ledger) remove(id p2p.ID) bool {
	l.mtx.Lock()
	e, ok := l.entries[id]
	delete(l.entries, id)
	l.mtx.Unlock()
	if !ok {
		return false
	}
	e.mtx.Lock()
	e.removed = true
	e.mtx.Unlock()
	return true
}

func (l *ledger) size() int {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return len(l.entries)
}
