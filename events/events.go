package events

import (
	"sync"

	"gorollupbridge/logging"
	"gorollupbridge/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Kind string

const (
	TransactionUpdated   Kind = "transaction-updated"
	TransactionRemoved   Kind = "transaction-removed"
	WithdrawalRegistered Kind = "withdrawal-registered"
	WithdrawalUpdated    Kind = "withdrawal-updated"
	WithdrawalClaimed    Kind = "withdrawal-claimed"
	// a withdraw receipt with zero or several outgoing messages, nothing was registered
	WithdrawalAnomalous Kind = "withdrawal-anomalous"
)

type Event struct {
	Kind        Kind                     `json:"kind"`
	Transaction *types.Transaction       `json:"transaction,omitempty"`
	TxID        string                   `json:"txID,omitempty"`
	Withdrawal  *types.PendingWithdrawal `json:"withdrawal,omitempty"`
	Message     string                   `json:"message,omitempty"`
}

type Handler func(Event)

// Bus delivers events synchronously to every subscriber, in publish order.
type Bus struct {
	log *zap.SugaredLogger

	mu       sync.RWMutex
	order    []string
	handlers map[string]Handler
}

func NewBus(log *zap.SugaredLogger) *Bus {
	return &Bus{
		log:      logging.OrNop(log),
		handlers: make(map[string]Handler),
	}
}

// Subscribe returns an id to pass to Unsubscribe.
func (b *Bus) Subscribe(h Handler) string {
	id := uuid.New().String()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[id] = h
	b.order = append(b.order, id)
	return id
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handlers[id]; !ok {
		return
	}
	delete(b.handlers, id)
	for i, o := range b.order {
		if o == id {
			b.order = append(b.order[:i:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		hs = append(hs, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range hs {
		b.deliver(h, e)
	}
}

func (b *Bus) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorf("Event subscriber panicked on %s: %v", e.Kind, r)
		}
	}()
	h(e)
}
