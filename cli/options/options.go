/*
Package options contains a set of common CLI options and helper functions to use them.
*/
package options

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BukiOffor/registry/cli/flags"
	"github.com/BukiOffor/registry/cli/input"
	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/config"
	"github.com/BukiOffor/registry/pkg/io"
	"github.com/BukiOffor/registry/pkg/rpcclient"
	"github.com/BukiOffor/registry/pkg/rpcclient/actor"
	"github.com/BukiOffor/registry/pkg/rpcclient/invoker"
	"github.com/BukiOffor/registry/pkg/wallet"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeout is the default timeout used for the whole command.
const DefaultTimeout = 30 * time.Second

// RPCEndpointFlag is a long flag name for an RPC endpoint. It can be used to
// check for flag presence in the context.
const RPCEndpointFlag = "rpc-endpoint"

// RPC is a set of flags used for RPC connections (endpoint and timeout).
var RPC = []cli.Flag{
	cli.StringFlag{
		Name:  RPCEndpointFlag + ", r",
		Usage: "RPC node address (overrides configuration)",
	},
	cli.DurationFlag{
		Name:  "timeout, s",
		Value: DefaultTimeout,
		Usage: "Timeout for the operation",
	},
}

// NewWallet returns a set of flags used to get the sender account. Generic
// flag values keep their state, so every command gets its own set.
func NewWallet() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "wallet, w",
			Usage: "browser wallet account export to sign transactions with (overrides configuration)",
		},
		cli.GenericFlag{
			Name:  "address, a",
			Usage: "sender account address, its signing key is requested interactively",
			Value: &flags.Account{},
		},
	}
}

// NewContract returns a flag for the registry instance address.
func NewContract() cli.Flag {
	return cli.GenericFlag{
		Name:  "contract, c",
		Usage: "registry contract address as 'index' or 'index,subindex' (overrides configuration)",
		Value: &flags.ContractAddress{},
	}
}

// Historic is a flag for commands that can perform historic invocations.
var Historic = cli.StringFlag{
	Name:  "historic",
	Usage: "Use historic state (block hash)",
}

// ConfigFile is a flag for commands that use client configuration.
var ConfigFile = cli.StringFlag{
	Name:  "config-file, config",
	Usage: "path to the YAML configuration file (defaults are used if not set)",
}

// Debug is a flag for commands that allow debug logging.
var Debug = cli.BoolFlag{
	Name:  "debug, d",
	Usage: "enable debug logging (overrides configuration)",
}

var errNoEndpoint = errors.New("no RPC endpoint specified, use option '--" + RPCEndpointFlag + "' or '-r' or set it in the configuration")
var errInvalidHistoric = errors.New("invalid 'historic' parameter, not a block hash")
var errNoWallet = errors.New("no sender account, specify it with the '--wallet' or '--address' flag or in the configuration")

// GetTimeoutContext returns a context.Context with the default or a user-set timeout.
func GetTimeoutContext(ctx *cli.Context) (context.Context, func()) {
	dur := ctx.Duration("timeout")
	if dur == 0 {
		dur = DefaultTimeout
	}
	return context.WithTimeout(context.Background(), dur)
}

// GetConfigFromContext loads the configuration file (if given) or the
// defaults and applies the flags overriding it.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	var (
		cfg = config.Default()
		err error
	)
	if configFile := ctx.String("config-file"); len(configFile) != 0 {
		cfg, err = config.LoadFile(configFile)
		if err != nil {
			return config.Config{}, err
		}
	}
	if endpoint := ctx.String(RPCEndpointFlag); len(endpoint) != 0 {
		cfg.ApplicationConfiguration.RPC.Endpoint = endpoint
	}
	if f, ok := ctx.Generic("contract").(*flags.ContractAddress); ok && f.IsSet {
		cfg.Registry.Index = f.Value.Index
		cfg.Registry.Subindex = f.Value.Subindex
	}
	if wPath := ctx.String("wallet"); len(wPath) != 0 {
		cfg.Wallet = config.Wallet{Path: wPath}
	}
	return cfg, cfg.Validate()
}

// HandleLoggingParams creates a logger for the given configuration. If a
// user selected debug level, it's enabled. If LogPath is configured, the
// directory for it is created.
func HandleLoggingParams(debug bool, cfg config.ApplicationConfiguration) (*zap.Logger, *zap.AtomicLevel, error) {
	var (
		level = zapcore.InfoLevel
		err   error
	)
	if len(cfg.LogLevel) > 0 {
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	if len(cfg.LogEncoding) > 0 {
		cc.Encoding = cfg.LogEncoding
	}
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil
	// Command output goes to stdout.
	cc.OutputPaths = []string{"stderr"}

	if logPath := cfg.LogPath; logPath != "" {
		if err := io.MakeDirForFile(logPath, "logger"); err != nil {
			return nil, nil, err
		}
		cc.OutputPaths = []string{logPath}
	}

	log, err := cc.Build()
	return log, &cc.Level, err
}

// GetRPCClient returns an RPC client instance for the given configuration.
func GetRPCClient(gctx context.Context, cfg config.Config, log *zap.Logger) (*rpcclient.Client, cli.ExitCoder) {
	rpcCfg := cfg.ApplicationConfiguration.RPC
	if len(rpcCfg.Endpoint) == 0 {
		return nil, cli.NewExitError(errNoEndpoint, 1)
	}
	c, err := rpcclient.New(gctx, rpcCfg.Endpoint, rpcclient.Options{
		DialTimeout:       rpcCfg.DialTimeout,
		RequestTimeout:    rpcCfg.RequestTimeout,
		MaxConnsPerHost:   rpcCfg.MaxConnsPerHost,
		InstanceCacheSize: rpcCfg.InstanceCacheSize,
		Logger:            log,
	})
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	return c, nil
}

// GetHistoric returns the block hash given with "--historic" or nil if the
// flag is not set.
func GetHistoric(ctx *cli.Context) (*ccd.BlockHash, cli.ExitCoder) {
	historic := ctx.String("historic")
	if historic == "" {
		return nil, nil
	}
	h, err := ccd.BlockHashFromHex(strings.TrimPrefix(historic, "0x"))
	if err != nil {
		return nil, cli.NewExitError(errInvalidHistoric, 1)
	}
	return &h, nil
}

// GetInvoker returns an invoker using the given RPC client, context and
// invoker address. It parses "--historic" parameter to adjust it.
func GetInvoker(c *rpcclient.Client, ctx *cli.Context, addr *ccd.Address) (*invoker.Invoker, cli.ExitCoder) {
	block, err := GetHistoric(ctx)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return invoker.New(c, addr), nil
	}
	return invoker.NewHistoricAtBlock(*block, c, addr), nil
}

// GetRPCWithInvoker combines GetRPCClient with GetInvoker for cases where it's
// appropriate to do so.
func GetRPCWithInvoker(gctx context.Context, ctx *cli.Context, cfg config.Config, log *zap.Logger, addr *ccd.Address) (*rpcclient.Client, *invoker.Invoker, cli.ExitCoder) {
	c, err := GetRPCClient(gctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	inv, err := GetInvoker(c, ctx, addr)
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	return c, inv, nil
}

// GetSigner returns the sender account. A wallet export is used if it's
// configured, then the configured address and key, then the "--address"
// flag with the key read from the terminal.
func GetSigner(ctx *cli.Context, cfg config.Wallet) (*wallet.Account, error) {
	switch {
	case cfg.Path != "":
		return wallet.LoadExport(cfg.Path)
	case cfg.Key != "":
		addr, err := ccd.AccountAddressFromBase58(cfg.Address)
		if err != nil {
			return nil, err
		}
		return wallet.NewBasicSigner(addr, cfg.Key)
	}
	f, ok := ctx.Generic("address").(*flags.Account)
	if !ok || !f.IsSet {
		return nil, errNoWallet
	}
	key, err := input.ReadPassword(fmt.Sprintf("Enter signing key for %s > ", f.Value))
	if err != nil {
		return nil, fmt.Errorf("Error reading signing key: %w", err)
	}
	return wallet.NewBasicSigner(f.Value, strings.TrimSpace(key))
}

// GetRPCWithActor returns an RPC client instance and Actor instance for the
// given context and configuration.
func GetRPCWithActor(gctx context.Context, ctx *cli.Context, cfg config.Config, log *zap.Logger) (*rpcclient.Client, *actor.Actor, cli.ExitCoder) {
	acc, err := GetSigner(ctx, cfg.Wallet)
	if err != nil {
		return nil, nil, cli.NewExitError(fmt.Errorf("bad sender account: %w", err), 1)
	}
	c, ec := GetRPCClient(gctx, cfg, log)
	if ec != nil {
		return nil, nil, ec
	}
	a, err := actor.NewTuned(c, acc, actor.Options{
		EnergyMargin: ccd.Energy(cfg.Registry.EnergyMargin),
		Expiry:       cfg.Registry.TransactionExpiry,
	})
	if err != nil {
		c.Close()
		return nil, nil, cli.NewExitError(fmt.Errorf("failed to create Actor: %w", err), 1)
	}
	return c, a, nil
}
