package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

// reading config error is fatal, and exists main thread
func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

func readFile(path string, cfg *Configuration) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("cannot decode %s: %w", path, err)
	}
	return nil
}

func readEnv(cfg *Configuration) error {
	return envconfig.Process(ENV_PREFIX, cfg)
}

func validate(cfg *Configuration) error {
	if len(cfg.Parent.RPCList) == 0 {
		return fmt.Errorf("parent chain has no rpc endpoints")
	}
	if len(cfg.Child.RPCList) == 0 {
		return fmt.Errorf("child chain has no rpc endpoints")
	}
	if cfg.Child.ChainID == 0 {
		return fmt.Errorf("child chain id is required")
	}
	for _, t := range cfg.Tokens {
		if t.Symbol == "" || t.Parent == "" || t.Child == "" {
			return fmt.Errorf("token %q needs symbol, parent and child addresses", t.Symbol)
		}
	}
	return nil
}

// Load reads the yaml file, applies env overrides and defaults.
func Load(path string) (Configuration, error) {
	var cfg Configuration
	if err := readFile(path, &cfg); err != nil {
		return cfg, err
	}
	if err := readEnv(&cfg); err != nil {
		return cfg, err
	}
	Defaults(&cfg)
	return cfg, validate(&cfg)
}

func Init(path string) {
	cfg, err := Load(path)
	if err != nil {
		processError(err)
	}
	Config = cfg
}
