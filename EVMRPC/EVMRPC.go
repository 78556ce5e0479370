package EVMRPC

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorollupbridge/logging"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

var ErrNoRPC = errors.New("no rpc endpoint configured")

// Pool is the RPC list of one chain. Clients are dialed on first use and kept.
type Pool struct {
	Name string
	urls []string
	log  *zap.SugaredLogger

	mu      sync.Mutex
	clients map[string]*ethclient.Client
}

func NewPool(name string, urls []string, log *zap.SugaredLogger) *Pool {
	return &Pool{
		Name:    name,
		urls:    urls,
		log:     logging.OrNop(log),
		clients: make(map[string]*ethclient.Client),
	}
}

func (p *Pool) client(ctx context.Context, url string) (*ethclient.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[url]; ok {
		return c, nil
	}
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	p.clients[url] = c
	return c, nil
}

func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for url, c := range p.clients {
		c.Close()
		delete(p.clients, url)
	}
}

// WithClient runs f against each endpoint of the pool in order until one
// succeeds. A not-found answer or a cancelled context ends the loop, those
// would be the same on every node.
func WithClient[T any](ctx context.Context, p *Pool, f func(client *ethclient.Client) (T, error)) (res T, err error) {
	if len(p.urls) == 0 {
		return res, fmt.Errorf("%w: %s", ErrNoRPC, p.Name)
	}
	for _, url := range p.urls {
		var client *ethclient.Client
		client, err = p.client(ctx, url)
		if err != nil {
			p.log.Warnf("Error connecting to %s: %s", url, err.Error())
			continue
		}

		res, err = f(client)
		if err == nil || errors.Is(err, ethereum.NotFound) || ctx.Err() != nil {
			return
		}
		p.log.Warnf("Error calling %s (%s): %s", url, p.Name, err.Error())
	}
	return
}
