package config

import "time"

type ChainConfig struct {
	Name    string   `yaml:"name"`
	ChainID uint64   `yaml:"chain_id" envconfig:"CHAIN_ID"`
	RPCList []string `yaml:"rpc" envconfig:"RPC"`
	// contracts, parent side: inbox, bridge, outbox, legacy_outbox, rollup, gateway_router
	// child side: gateway_router (ArbSys and NodeInterface are precompiles)
	Inbox         string `yaml:"inbox"`
	Bridge        string `yaml:"bridge"`
	Outbox        string `yaml:"outbox"`
	LegacyOutbox  string `yaml:"legacy_outbox"`
	Rollup        string `yaml:"rollup"`
	GatewayRouter string `yaml:"gateway_router"`
	BlockBatch    int    `yaml:"block_batch"`
	StartBlock    uint64 `yaml:"start_block"` // where withdrawal history scan starts
}

type TokenConfig struct {
	Symbol   string `yaml:"symbol"`
	Decimals int32  `yaml:"decimals"`
	Parent   string `yaml:"parent"`
	Child    string `yaml:"child"`
}

type Configuration struct {
	// Server config
	Server struct {
		Listen      string `yaml:"listen" envconfig:"LISTEN"`
		UseSSL      bool   `yaml:"ssl"`
		RedisPort   int    `yaml:"redis_port" envconfig:"REDIS_PORT"`
		RedisHost   string `yaml:"redis_host" envconfig:"REDIS_HOST"`
		RedisPrefix string `yaml:"redis_prefix"`
	} `yaml:"server"`
	Parent ChainConfig `yaml:"parent"`
	Child  ChainConfig `yaml:"child"`
	// signing account, private stuff
	Wallet struct {
		PrivateKey string `yaml:"private_key" envconfig:"PRIVATE_KEY"`
	} `yaml:"wallet"`
	Bridge struct {
		DestinationTimeout time.Duration `yaml:"destination_timeout"`
		PollInterval       time.Duration `yaml:"poll_interval"`
		// retryable parameters for token deposits, gas estimation is not done here
		RetryableMaxGas        uint64 `yaml:"retryable_max_gas"`
		RetryableGasPriceBid   string `yaml:"retryable_gas_price_bid"`
		RetryableSubmissionFee string `yaml:"retryable_submission_fee"`
	} `yaml:"bridge"`
	Refresh struct {
		Withdrawals time.Duration `yaml:"withdrawals"`
		Balances    time.Duration `yaml:"balances"`
	} `yaml:"refresh"`
	// bridgeable tokens, also the balances tracked
	Tokens []TokenConfig `yaml:"tokens" ignored:"true"`
	Log    struct {
		Level string `yaml:"level" envconfig:"LEVEL"`
		Dir   string `yaml:"dir"`
	} `yaml:"log"`
}

var Config Configuration

// env prefix, e.g. BRIDGE_PRIVATE_KEY
const ENV_PREFIX = "BRIDGE"

// bound wait for a deposit to show up on the child chain
const DEFAULT_DESTINATION_TIMEOUT = 10 * time.Minute

const DEFAULT_POLL_INTERVAL = 5 * time.Second

// persisted collections
const (
	KEY_TRANSACTIONS      = "transactions"
	KEY_EXECUTED_MESSAGES = "executed-messages-cache"
)

// Arbitrum precompiles on the child chain
const (
	ARBSYS_ADDRESS         = "0x0000000000000000000000000000000000000064"
	NODE_INTERFACE_ADDRESS = "0x00000000000000000000000000000000000000C8"
)

func Defaults(cfg *Configuration) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.RedisHost == "" {
		cfg.Server.RedisHost = "127.0.0.1"
	}
	if cfg.Server.RedisPort == 0 {
		cfg.Server.RedisPort = 6379
	}
	if cfg.Server.RedisPrefix == "" {
		cfg.Server.RedisPrefix = "rollupbridge"
	}
	if cfg.Bridge.DestinationTimeout == 0 {
		cfg.Bridge.DestinationTimeout = DEFAULT_DESTINATION_TIMEOUT
	}
	if cfg.Bridge.PollInterval == 0 {
		cfg.Bridge.PollInterval = DEFAULT_POLL_INTERVAL
	}
	if cfg.Bridge.RetryableMaxGas == 0 {
		cfg.Bridge.RetryableMaxGas = 300000
	}
	if cfg.Bridge.RetryableGasPriceBid == "" {
		cfg.Bridge.RetryableGasPriceBid = "300000000"
	}
	if cfg.Bridge.RetryableSubmissionFee == "" {
		cfg.Bridge.RetryableSubmissionFee = "1000000000000000"
	}
	if cfg.Refresh.Withdrawals == 0 {
		cfg.Refresh.Withdrawals = time.Minute
	}
	if cfg.Refresh.Balances == 0 {
		cfg.Refresh.Balances = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = "logs"
	}
	for _, c := range []*ChainConfig{&cfg.Parent, &cfg.Child} {
		if c.BlockBatch == 0 {
			c.BlockBatch = 512
		}
	}
}
