package market

import (
	"sync"

	"github.com/google/uuid"
)

// orderLocks guarantees at most one delivery dispatch in flight per order.
// The dispatch itself runs outside any database transaction, so this is the
// only guard against two workers racing the same seller endpoint.
type orderLocks struct {
	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func newOrderLocks() *orderLocks {
	return &orderLocks{inFlight: make(map[uuid.UUID]struct{})}
}

// tryAcquire marks the order as in flight. Returns false when another
// dispatch already holds it.
func (l *orderLocks) tryAcquire(orderID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.inFlight[orderID]; held {
		return false
	}
	l.inFlight[orderID] = struct{}{}
	return true
}

func (l *orderLocks) release(orderID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, orderID)
}
