package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorollupbridge/storage"

	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"
)

// attempts for a WATCH/MULTI/EXEC cycle before giving up with storage.ErrConflict
const updateRetries = 5

// Store keeps the persisted collections in Redis, one string key per collection.
type Store struct {
	pool *redis.Pool
	log  *zap.SugaredLogger
}

var _ storage.Store = (*Store)(nil)

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func NewStore(host string, port int, log *zap.SugaredLogger) *Store {
	redisAddr := fmt.Sprintf("%s:%d", host, port)
	return &Store{
		pool: &redis.Pool{
			MaxIdle:     5,
			IdleTimeout: 4 * time.Minute,
			Dial:        func() (redis.Conn, error) { return redis.Dial("tcp", redisAddr, timeoutDialOptions()...) },
		},
		log: log,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do("PING")
	return err
}

func (s *Store) Close() error {
	return s.pool.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, false, err
	}
	defer conn.Close()

	value, err := redis.Bytes(conn.Do("GET", key))
	if err == nil {
		return value, true, nil
	}

	if errors.Is(err, redis.ErrNil) {
		return nil, false, nil
	}

	s.log.Errorf("error Redis GET %s: %s", key, err.Error())
	return nil, false, err
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do("SET", key, value)
	if err != nil {
		s.log.Errorf("error Redis SET %s: %s", key, err.Error())
		return err
	}

	return nil
}

// Update runs fn between WATCH and EXEC, so a concurrent writer on the same key
// makes EXEC return nil and the cycle is retried against the new value.
func (s *Store) Update(ctx context.Context, key string, fn storage.UpdateFunc) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	for i := 0; i < updateRetries; i++ {
		if _, err := conn.Do("WATCH", key); err != nil {
			return err
		}

		current, err := redis.Bytes(conn.Do("GET", key))
		found := true
		if errors.Is(err, redis.ErrNil) {
			found = false
		} else if err != nil {
			conn.Do("UNWATCH")
			return err
		}

		next, err := fn(current, found)
		if err != nil {
			conn.Do("UNWATCH")
			return err
		}

		if err := conn.Send("MULTI"); err != nil {
			return err
		}
		if err := conn.Send("SET", key, next); err != nil {
			return err
		}
		_, err = redis.Values(conn.Do("EXEC"))
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.ErrNil) {
			s.log.Errorf("error Redis EXEC %s: %s", key, err.Error())
			return err
		}
		s.log.Debugf("Redis key %s changed during update, retrying (%d)", key, i+1)
	}

	return storage.ErrConflict
}
