package msgcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gorollupbridge/config"
	"gorollupbridge/logging"
	"gorollupbridge/storage"
	"gorollupbridge/types"

	"go.uber.org/zap"
)

// Cache remembers outgoing messages known to be executed. Only positive
// answers are stored: a miss means "unknown", never "not executed".
type Cache struct {
	store storage.Store
	log   *zap.SugaredLogger

	mu       sync.RWMutex
	executed map[string]bool
}

func New(ctx context.Context, store storage.Store, log *zap.SugaredLogger) (*Cache, error) {
	c := &Cache{
		store:    store,
		log:      logging.OrNop(log),
		executed: make(map[string]bool),
	}

	raw, found, err := store.Get(ctx, config.KEY_EXECUTED_MESSAGES)
	if err != nil {
		return nil, fmt.Errorf("cannot load executed messages cache: %w", err)
	}
	if found && len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.executed); err != nil {
			return nil, fmt.Errorf("cannot unmarshal executed messages cache: %w", err)
		}
	}
	return c, nil
}

func (c *Cache) Has(id types.MessageID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.executed[id.String()]
}

// MarkExecuted merges the id into whatever is persisted right now, so entries
// written by another process since startup are kept.
func (c *Cache) MarkExecuted(ctx context.Context, id types.MessageID) error {
	key := id.String()

	var merged map[string]bool
	err := c.store.Update(ctx, config.KEY_EXECUTED_MESSAGES, func(current []byte, found bool) ([]byte, error) {
		merged = make(map[string]bool)
		if found && len(current) > 0 {
			if err := json.Unmarshal(current, &merged); err != nil {
				return nil, fmt.Errorf("cannot unmarshal executed messages cache: %w", err)
			}
		}
		merged[key] = true
		return json.Marshal(merged)
	})
	if err != nil {
		c.log.Errorf("Error caching executed message %s: %s", key, err.Error())
		return err
	}

	c.mu.Lock()
	for k, v := range merged {
		if v {
			c.executed[k] = true
		}
	}
	c.mu.Unlock()

	c.log.Debugf("Cached executed message %s", key)
	return nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.executed)
}
