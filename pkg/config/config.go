package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BukiOffor/registry/pkg/ccd"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultContractIndex is the index of the testnet registry instance.
	DefaultContractIndex = 10289
	// DefaultEnergyMargin is added to the dry-run energy of registrations.
	DefaultEnergyMargin = 200
	// DefaultGenesisHash is the testnet genesis block hash.
	DefaultGenesisHash = "4221332d34e1694168c2a0c0b3fd0f273809612cb13d000d5c2e00e85f50f796"
	// DefaultRequestTimeout is the default RPC request timeout.
	DefaultRequestTimeout = 20 * time.Second
	// DefaultInstanceCacheSize is the default RPC client cache size.
	DefaultInstanceCacheSize = 128
	// DefaultTransactionExpiry is the default lifetime of transactions.
	DefaultTransactionExpiry = time.Hour
)

// Version is the version of the client, set at build time.
var Version string

// Config is the top level struct representing the client configuration.
type Config struct {
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
	Registry                 Registry                 `yaml:"Registry"`
	Wallet                   Wallet                   `yaml:"Wallet"`
}

// Registry describes the contract instance to work with.
type Registry struct {
	Index    uint64 `yaml:"Index"`
	Subindex uint64 `yaml:"Subindex"`
	// EnergyMargin is added to the energy used by the register dry-run.
	EnergyMargin uint64 `yaml:"EnergyMargin"`
	// GenesisHash is the genesis block hash of the network the contract
	// verifies signatures for.
	GenesisHash       string        `yaml:"GenesisHash"`
	TransactionExpiry time.Duration `yaml:"TransactionExpiry"`
}

// Wallet is the sender account configuration. Either Path to a browser
// wallet export or Address with a hex-encoded Key can be used.
type Wallet struct {
	Path    string `yaml:"Path"`
	Address string `yaml:"Address"`
	Key     string `yaml:"Key"`
}

// Address returns the contract address.
func (r Registry) Address() ccd.ContractAddress {
	return ccd.NewContractAddress(r.Index, r.Subindex)
}

// Genesis returns the parsed GenesisHash.
func (r Registry) Genesis() (ccd.BlockHash, error) {
	return ccd.BlockHashFromHex(r.GenesisHash)
}

// Default returns the configuration with all the defaults set.
func Default() Config {
	return Config{
		ApplicationConfiguration: ApplicationConfiguration{
			Logger: Logger{
				LogEncoding: "console",
				LogLevel:    "info",
			},
			RPC: RPC{
				RequestTimeout:    DefaultRequestTimeout,
				InstanceCacheSize: DefaultInstanceCacheSize,
			},
		},
		Registry: Registry{
			Index:             DefaultContractIndex,
			EnergyMargin:      DefaultEnergyMargin,
			GenesisHash:       DefaultGenesisHash,
			TransactionExpiry: DefaultTransactionExpiry,
		},
	}
}

// LoadFile loads config from the provided path, unknown fields are not
// allowed.
func LoadFile(configPath string) (Config, error) {
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	return Decode(configData)
}

// Decode parses YAML configuration on top of Default and validates it.
func Decode(configData []byte) (Config, error) {
	config := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(configData))
	decoder.KnownFields(true)
	err := decoder.Decode(&config)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := c.ApplicationConfiguration.Validate(); err != nil {
		return fmt.Errorf("invalid ApplicationConfiguration: %w", err)
	}
	if _, err := c.Registry.Genesis(); err != nil {
		return fmt.Errorf("invalid Registry.GenesisHash: %w", err)
	}
	if c.Registry.TransactionExpiry < 0 {
		return errors.New("negative Registry.TransactionExpiry")
	}
	if c.Wallet.Path != "" && c.Wallet.Key != "" {
		return errors.New("Wallet.Path conflicts with Wallet.Key")
	}
	if (c.Wallet.Key == "") != (c.Wallet.Address == "") {
		return errors.New("Wallet.Key and Wallet.Address must be set together")
	}
	if c.Wallet.Address != "" {
		if _, err := ccd.AccountAddressFromBase58(c.Wallet.Address); err != nil {
			return fmt.Errorf("invalid Wallet.Address: %w", err)
		}
	}
	return nil
}
