package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gorollupbridge/EVMRPC"
	"gorollupbridge/balance"
	"gorollupbridge/bridge"
	"gorollupbridge/config"
	"gorollupbridge/events"
	"gorollupbridge/ledger"
	"gorollupbridge/logging"
	"gorollupbridge/msgcache"
	"gorollupbridge/redis"
	"gorollupbridge/storage"
	"gorollupbridge/withdrawals"
	"gorollupbridge/workers"
	"gorollupbridge/workers/handlers"

	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the yaml config")
	memory := flag.Bool("memory", false, "keep state in memory instead of Redis")
	flag.Parse()

	config.Init(*configPath)
	cfg := config.Config

	log, err := logging.New(cfg.Log.Level, cfg.Log.Dir)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	defer log.Sync()
	log.Infof("Starting rollup bridge")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// without persistence do not continue
	var store storage.Store
	var health func(ctx context.Context) error
	if *memory {
		log.Warnf("Using in-memory store, state is lost on exit")
		store = storage.NewMemory()
	} else {
		rs := redis.NewStore(cfg.Server.RedisHost, cfg.Server.RedisPort, log)
		defer rs.Close()
		if err := rs.Ping(ctx); err != nil {
			log.Fatalf("Cannot connect to Redis at %s:%d: %s", cfg.Server.RedisHost, cfg.Server.RedisPort, err.Error())
		}
		store = storage.Prefixed(rs, cfg.Server.RedisPrefix)
		health = rs.Ping
	}

	parent := EVMRPC.NewPool(cfg.Parent.Name, cfg.Parent.RPCList, log)
	defer parent.Close()
	child := EVMRPC.NewPool(cfg.Child.Name, cfg.Child.RPCList, log)
	defer child.Close()

	chain, err := EVMRPC.NewBridge(ctx, parent, child, cfg, log)
	if err != nil {
		log.Fatalf("Error setting up bridge: %s", err.Error())
	}
	log.Infof("Bridging for %s between chains %d and %d", chain.Account().Hex(), chain.ParentChainID(), chain.ChildChainID())

	assets, err := handlers.NewAssets(cfg.Tokens)
	if err != nil {
		log.Fatalf("Error in token config: %s", err.Error())
	}

	l, err := ledger.New(ctx, store, log)
	if err != nil {
		log.Fatalf("Error loading transactions: %s", err.Error())
	}
	cache, err := msgcache.New(ctx, store, log)
	if err != nil {
		log.Fatalf("Error loading executed message cache: %s", err.Error())
	}
	registry := withdrawals.New()
	bus := events.NewBus(log)

	orch := bridge.New(ctx, chain, l, cache, registry, bridge.Options{
		DestinationTimeout: cfg.Bridge.DestinationTimeout,
		Log:                log,
		Bus:                bus,
		TokenByParent:      assets.ByParent,
	})
	tracker := balance.NewTracker(chain, chain.Account(), log)

	reconciled := true
	if err := orch.Reconcile(ctx); err != nil {
		log.Errorf("Error reconciling withdrawals, retrying in background: %s", err.Error())
		reconciled = false
	}

	handlers.Setup(handlers.Deps{
		Orchestrator: orch,
		Balances:     tracker,
		Assets:       assets,
		Account:      chain.Account().Hex(),
		ParentChain:  chain.ParentChainID(),
		ChildChain:   chain.ChildChainID(),
		Health:       health,
		Log:          log,
	})

	// there are 3 worker threads:
	// * poll pending withdrawal states
	// * refresh balances
	// * API serving HTTP(S) server, its exit stops the others
	parentTokens, childTokens := assets.TokenAddresses()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		workers.Worker_refreshWithdrawals(gctx, orch, reconciled, cfg.Refresh.Withdrawals, log)
		return nil
	})
	g.Go(func() error {
		workers.Worker_refreshBalances(gctx, tracker, parentTokens, childTokens, cfg.Refresh.Balances, log)
		return nil
	})
	g.Go(func() error {
		err := workers.Worker_HTTP(gctx, cfg, log)
		stop()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Errorf("Worker error: %s", err.Error())
	}

	// flows in flight end with ctx and leave their records pending
	orch.Wait()
	log.Infof("Rollup bridge stopped")
}
