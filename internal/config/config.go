// Package config merges network profiles, config files, environment
// variables and flags into one runtime configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Network is a chain profile: the node endpoint and the protocol contract
// addresses deployed on it.
type Network struct {
	ChainID          int64
	NodeURI          string
	BaseToken        string
	Factory          string
	Exchange         string
	Dispenser        string
	StartBlock       uint64
	GasFeeMultiplier float64
}

// Deployed profiles. The development profile targets a local ganache-style
// node.
var networks = map[string]Network{
	"mainnet": {
		ChainID:          1,
		NodeURI:          "https://mainnet.infura.io/v3",
		BaseToken:        "0x967da4048cD07aB37855c090aAF366e4ce1b9F48",
		Factory:          "0xbe0083053744ECb871510C88dC0f6b77Da162706",
		Exchange:         "0x608d05214E42722B94a54cF6114d4840FCfF84e1",
		Dispenser:        "0x3c21a88768a2c4317aABAfbc1ce599E3e8E5b4bA",
		StartBlock:       11105459,
		GasFeeMultiplier: 1.05,
	},
	"ropsten": {
		ChainID:          3,
		NodeURI:          "https://ropsten.infura.io/v3",
		BaseToken:        "0x5e8DCB2AfA23844bcc311B00Ad1A0C30025aADE9",
		Factory:          "0x75be6e18c80A487C8b49663bf14f80A6495045B2",
		Exchange:         "0xA7a711A09396DF82D9be46A26B48BafdB9BB4fA6",
		Dispenser:        "0x17B4fb3e4E4bd0c8f0Ed00C53c6E37617f0D6Ee1",
		StartBlock:       9227563,
		GasFeeMultiplier: 1,
	},
	"rinkeby": {
		ChainID:          4,
		NodeURI:          "https://rinkeby.infura.io/v3",
		BaseToken:        "0x8967BCF84170c91B0d24D4302C2376283b0B3a07",
		Factory:          "0x53eDF9289B0898e1652Ce009AACf8D25fA9A42F8",
		Exchange:         "0xeD1DfC5F3a589CfC4E8B91C1fbfC18FC6699Fbde",
		Dispenser:        "0xb8b5F9486BcB9618F18e3869A30E6AB46768e170",
		StartBlock:       7294090,
		GasFeeMultiplier: 1,
	},
	"polygon": {
		ChainID:          137,
		NodeURI:          "https://polygon-rpc.com",
		BaseToken:        "0x282d8efCe846A88B159800bd4130ad77443Fa1A1",
		Factory:          "0x2112eb93f9A4dB176a6d4862c9b9E6e7221bA217",
		Exchange:         "0x2720d405ef7cDC8a2E2e5AeBC8883C99611d893C",
		Dispenser:        "0xc9eD29a1cfC785BB9EcE8AdAFb4209A19c1bdb76",
		StartBlock:       11005222,
		GasFeeMultiplier: 1.6,
	},
	"development": {
		ChainID:          8996,
		NodeURI:          "http://127.0.0.1:8545",
		StartBlock:       0,
		GasFeeMultiplier: 1,
	},
}

// KnownNetworks lists the available profile names.
func KnownNetworks() []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	return names
}

// Config holds configuration values loaded from the network profile, config
// file, environment, and flags. Flag and env values override the profile.
type Config struct {
	Network          string
	ChainID          int64
	NodeURI          string
	PrivateKey       string
	BaseToken        string
	Factory          string
	Exchange         string
	Dispenser        string
	StartBlock       uint64
	GasFeeMultiplier float64
	PostgresDSN      string
	Out              string
	LogLevel         string
}

// Load merges the selected network profile with config file, environment
// variables, and flags.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SOLBODY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("network", "development")
	v.SetDefault("out", "./data/records.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	name := v.GetString("network")
	profile, ok := networks[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown network %q (known: %s)", name, strings.Join(KnownNetworks(), ", "))
	}

	cfg := Config{
		Network:          name,
		ChainID:          profile.ChainID,
		NodeURI:          profile.NodeURI,
		PrivateKey:       v.GetString("private-key"),
		BaseToken:        profile.BaseToken,
		Factory:          profile.Factory,
		Exchange:         profile.Exchange,
		Dispenser:        profile.Dispenser,
		StartBlock:       profile.StartBlock,
		GasFeeMultiplier: profile.GasFeeMultiplier,
		PostgresDSN:      v.GetString("pg-dsn"),
		Out:              v.GetString("out"),
		LogLevel:         v.GetString("log-level"),
	}

	// Explicit settings win over the profile.
	if s := v.GetString("node-uri"); s != "" {
		cfg.NodeURI = s
	}
	if s := v.GetString("base-token"); s != "" {
		cfg.BaseToken = s
	}
	if s := v.GetString("factory"); s != "" {
		cfg.Factory = s
	}
	if s := v.GetString("exchange"); s != "" {
		cfg.Exchange = s
	}
	if s := v.GetString("dispenser"); s != "" {
		cfg.Dispenser = s
	}
	if v.IsSet("start-block") {
		cfg.StartBlock = v.GetUint64("start-block")
	}
	if v.IsSet("gas-fee-multiplier") {
		cfg.GasFeeMultiplier = v.GetFloat64("gas-fee-multiplier")
	}

	return cfg, nil
}
