package registry

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BukiOffor/registry/cli/cmdargs"
	"github.com/BukiOffor/registry/cli/flags"
	"github.com/BukiOffor/registry/cli/input"
	"github.com/BukiOffor/registry/cli/options"
	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/ccdrpc/result"
	"github.com/BukiOffor/registry/pkg/config"
	"github.com/BukiOffor/registry/pkg/registrar"
	"github.com/BukiOffor/registry/pkg/registry"
	"github.com/BukiOffor/registry/pkg/wallet"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// DefaultInitEnergy is the energy limit of registry instantiation.
const DefaultInitEnergy = 5000

var errNoSignature = errors.New("both --signer and --signature are needed for a pre-signed message")

// NewCommands returns 'registry' command.
func NewCommands() []cli.Command {
	baseFlags := func() []cli.Flag {
		return append([]cli.Flag{
			options.ConfigFile,
			options.Debug,
			options.NewContract(),
		}, options.RPC...)
	}
	readFlags := func() []cli.Flag {
		return append(baseFlags(), options.Historic)
	}
	withWallet := func(fs []cli.Flag) []cli.Flag {
		return append(fs, options.NewWallet()...)
	}
	signingFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "signing-key",
			Usage: "hex-encoded ed25519 private key of the tag owner to sign the message with",
		},
		cli.StringFlag{
			Name:  "signer",
			Usage: "hex-encoded public key the message is signed with (pre-signed messages)",
		},
		cli.StringFlag{
			Name:  "signature",
			Usage: "hex-encoded message signature (pre-signed messages)",
		},
	}
	return []cli.Command{{
		Name:  "registry",
		Usage: "work with the tag registry contract",
		Subcommands: []cli.Command{
			{
				Name:      "check",
				Usage:     "check that the configured instance is a registry contract",
				UsageText: "check [--config-file <file>] [--contract <address>] [--rpc-endpoint <node>] [--historic <block>]",
				Action:    check,
				Flags:     readFlags(),
			},
			{
				Name:      "param-hash",
				Usage:     "get the hash to sign for a registration",
				UsageText: "param-hash --tag <tag> --public-key <key> --data-contract <address> --provider <name> [--expiry <time>] [--local]",
				Description: `Computes the message hash the registry verifies the signature against.
   By default the contract computes it in a dry-run, with --local it's done
   without any RPC calls using the configured genesis block hash.
`,
				Action: paramHash,
				Flags: append(append(readFlags(), newMessageFlags()...), cli.BoolFlag{
					Name:  "local",
					Usage: "compute the hash locally",
				}),
			},
			{
				Name:      "register",
				Usage:     "register a tag",
				UsageText: "register --tag <tag> --data-contract <address> --provider <name> [--expiry <time>] [--signing-key <key> | --signer <key> --signature <sig>] [-w <export> | -a <address>]",
				Description: `Dry-runs the registration and sends it if the contract accepts it. The
   message is signed with --signing-key (or with the key entered interactively)
   unless --signer and --signature of a message signed elsewhere are given.
   The outcome is printed as JSON, a rejected registration is not sent.
`,
				Action: register,
				Flags:  withWallet(append(append(baseFlags(), newMessageFlags()...), signingFlags...)),
			},
			{
				Name:      "get-key",
				Usage:     "look up the record of a tag",
				UsageText: "get-key [--config-file <file>] [--contract <address>] [--historic <block>] <tag>",
				Action:    getKey,
				Flags:     readFlags(),
			},
			{
				Name:      "get-tag",
				Usage:     "look up the tag of a public key",
				UsageText: "get-tag [--config-file <file>] [--contract <address>] [--historic <block>] <public-key>",
				Action:    getTag,
				Flags:     readFlags(),
			},
			{
				Name:      "instantiate",
				Usage:     "create a new registry instance",
				UsageText: "instantiate [--energy <energy>] [-w <export> | -a <address>]",
				Action:    instantiate,
				Flags: withWallet(append(baseFlags(), cli.Uint64Flag{
					Name:  "energy, e",
					Value: DefaultInitEnergy,
					Usage: "energy limit of the instantiation",
				})),
			},
			{
				Name:      "wallet-param",
				Usage:     "print an entrypoint parameter in the browser wallet form",
				UsageText: "wallet-param [message and signing flags] <get_param_hash|register|get_key|get_tag>",
				Action:    walletParam,
				Flags:     append(append(baseFlags(), newMessageFlags()...), signingFlags...),
			},
			{
				Name:      "monitor",
				Usage:     "poll tags and export their state as Prometheus metrics",
				UsageText: "monitor [--interval <duration>] [--once] <tag> [<tag> [...]]",
				Action:    monitor,
				Flags: append(baseFlags(),
					cli.DurationFlag{
						Name:  "interval",
						Value: DefaultMonitorInterval,
						Usage: "polling interval",
					},
					cli.BoolFlag{
						Name:  "once",
						Usage: "poll once and exit",
					},
				),
			},
		},
	}}
}

func newMessageFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "tag, t",
			Usage: "tag to register (the contract appends " + registry.TagSuffix + " if needed)",
		},
		cli.StringFlag{
			Name:  "public-key, k",
			Usage: "hex-encoded public key of the tag owner (taken from the signing key if omitted)",
		},
		cli.GenericFlag{
			Name:  "data-contract",
			Usage: "contract address stored in the record",
			Value: &flags.ContractAddress{},
		},
		cli.StringFlag{
			Name:  "provider",
			Usage: "provider name stored in the record",
		},
		cli.StringFlag{
			Name:  "expiry",
			Value: "1h",
			Usage: "message expiry as RFC 3339 time or a duration from now",
		},
	}
}

// setup reads the configuration and creates a logger for it.
func setup(ctx *cli.Context) (config.Config, *zap.Logger, error) {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return config.Config{}, nil, cli.NewExitError(err, 1)
	}
	log, _, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return config.Config{}, nil, cli.NewExitError(err, 1)
	}
	return cfg, log, nil
}

func getMessage(ctx *cli.Context) (registry.Message, error) {
	tag := ctx.String("tag")
	if tag == "" {
		return registry.Message{}, errors.New("tag is missing, use --tag")
	}
	contract, ok := ctx.Generic("data-contract").(*flags.ContractAddress)
	if !ok || !contract.IsSet {
		return registry.Message{}, errors.New("record contract address is missing, use --data-contract")
	}
	expiry, err := cmdargs.ParseExpiry(ctx.String("expiry"), time.Now())
	if err != nil {
		return registry.Message{}, err
	}
	return registry.Message{
		Tag: tag,
		Data: registry.Data{
			PublicKey:       strings.ToLower(ctx.String("public-key")),
			ContractAddress: contract.Value,
			Provider:        ctx.String("provider"),
		},
		ExpiryTime: expiry,
	}, nil
}

// getRegisterParameter returns the pre-signed parameter if the signature is
// given and signs the message otherwise.
func getRegisterParameter(ctx *cli.Context, m registry.Message, cfg config.Config) (registry.RegisterParameter, error) {
	signer, signature := ctx.String("signer"), ctx.String("signature")
	if signer != "" || signature != "" {
		if signature == "" || (signer == "" && m.Data.PublicKey == "") {
			return registry.RegisterParameter{}, errNoSignature
		}
		if signer == "" {
			signer = m.Data.PublicKey
		}
		if m.Data.PublicKey == "" {
			m.Data.PublicKey = signer
		}
		return registry.RegisterParameter{Signer: signer, Signature: signature, Message: m}, nil
	}

	hexKey := ctx.String("signing-key")
	if hexKey == "" {
		var err error
		hexKey, err = input.ReadPassword("Enter tag signing key > ")
		if err != nil {
			return registry.RegisterParameter{}, fmt.Errorf("Error reading signing key: %w", err)
		}
	}
	key, err := wallet.PrivateKeyFromHex(strings.TrimSpace(hexKey))
	if err != nil {
		return registry.RegisterParameter{}, fmt.Errorf("bad signing key: %w", err)
	}
	genesis, err := cfg.Registry.Genesis()
	if err != nil {
		return registry.RegisterParameter{}, err
	}
	return registry.SignRegisterMessage(key, m, cfg.Registry.Address(), genesis)
}

func printJSON(ctx *cli.Context, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, string(b))
	return nil
}

func check(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, ec := options.GetRPCClient(gctx, cfg, log)
	if ec != nil {
		return ec
	}
	defer c.Close()
	block, ec := options.GetHistoric(ctx)
	if ec != nil {
		return ec
	}
	if _, err := registry.NewModule(c, nil); err != nil {
		return cli.NewExitError(err, 1)
	}
	if err := registry.CheckOnChain(c, cfg.Registry.Address(), block); err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintf(ctx.App.Writer, "Contract %s is a %s instance of module %s\n",
		cfg.Registry.Address(), registry.ContractName, registry.ModuleReference)
	return nil
}

func paramHash(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	m, err := getMessage(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	var h [32]byte
	if ctx.Bool("local") {
		genesis, err := cfg.Registry.Genesis()
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		h, err = registry.MessageHash(m, cfg.Registry.Address(), genesis)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
	} else {
		gctx, cancel := options.GetTimeoutContext(ctx)
		defer cancel()
		c, inv, ec := options.GetRPCWithInvoker(gctx, ctx, cfg, log, nil)
		if ec != nil {
			return ec
		}
		defer c.Close()
		h, err = registry.NewReader(inv, cfg.Registry.Address()).GetParamHash(m)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
	}
	fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(h[:]))
	return nil
}

func register(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	m, err := getMessage(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	p, err := getRegisterParameter(ctx, m, cfg)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, a, ec := options.GetRPCWithActor(gctx, ctx, cfg, log)
	if ec != nil {
		return ec
	}
	defer c.Close()

	out, err := registrar.New(a, cfg.Registry.Address(), log).Register(p)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if err := printJSON(ctx, out); err != nil {
		return err
	}
	if !out.Status {
		return cli.NewExitError(fmt.Sprintf("registration rejected: %s", out.Message), 1)
	}
	return nil
}

// lookup is the output of get-key and get-tag.
type lookup struct {
	Result *result.Invoke      `json:"result"`
	Error  *registry.ErrorKind `json:"error,omitempty"`
}

func getKey(ctx *cli.Context) error {
	tag, ec := cmdargs.GetSingleArg(ctx, "tag")
	if ec != nil {
		return ec
	}
	return doLookup(ctx, func(r *registry.ContractReader) (*result.Invoke, error) {
		return r.DryRunGetKey(tag, ccd.ContractInvokeMetadata{})
	})
}

func getTag(ctx *cli.Context) error {
	key, ec := cmdargs.GetSingleArg(ctx, "public key")
	if ec != nil {
		return ec
	}
	return doLookup(ctx, func(r *registry.ContractReader) (*result.Invoke, error) {
		return r.DryRunGetTag(strings.ToLower(key), ccd.ContractInvokeMetadata{})
	})
}

func doLookup(ctx *cli.Context, f func(*registry.ContractReader) (*result.Invoke, error)) error {
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, inv, ec := options.GetRPCWithInvoker(gctx, ctx, cfg, log, nil)
	if ec != nil {
		return ec
	}
	defer c.Close()

	res, err := f(registry.NewReader(inv, cfg.Registry.Address()))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	em, err := registry.ParseErrorMessage(res)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	out := lookup{Result: res}
	if em != nil {
		out.Error = &em.Kind
	}
	return printJSON(ctx, out)
}

func instantiate(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, a, ec := options.GetRPCWithActor(gctx, ctx, cfg, log)
	if ec != nil {
		return ec
	}
	defer c.Close()

	m, err := registry.NewModule(c, a)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	h, err := m.InstantiateRegistry(ccd.ContractTransactionMetadata{
		Amount:        ccd.ZeroAmount,
		SenderAddress: a.Sender(),
		Energy:        ccd.Energy(ctx.Uint64("energy")),
	}, nil)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("failed to send instantiation: %w", err), 1)
	}
	fmt.Fprintln(ctx.App.Writer, h)
	return nil
}

func walletParam(ctx *cli.Context) error {
	ep, ec := cmdargs.GetSingleArg(ctx, "entrypoint")
	if ec != nil {
		return ec
	}
	cfg, _, err := setup(ctx)
	if err != nil {
		return err
	}

	var p registry.WebWalletParameter
	switch ccd.EntrypointName(ep) {
	case registry.GetKeyEntrypoint:
		if ctx.String("tag") == "" {
			return cli.NewExitError("tag is missing, use --tag", 1)
		}
		p = registry.GetKeyParameterWebWallet(ctx.String("tag"))
	case registry.GetTagEntrypoint:
		if ctx.String("public-key") == "" {
			return cli.NewExitError("public key is missing, use --public-key", 1)
		}
		p = registry.GetTagParameterWebWallet(strings.ToLower(ctx.String("public-key")))
	case registry.GetParamHashEntrypoint, registry.RegisterEntrypoint:
		m, err := getMessage(ctx)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		if ccd.EntrypointName(ep) == registry.GetParamHashEntrypoint {
			p = registry.GetParamHashParameterWebWallet(m)
			break
		}
		rp, err := getRegisterParameter(ctx, m, cfg)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		p = registry.RegisterParameterWebWallet(rp)
	default:
		return cli.NewExitError(fmt.Sprintf("unknown entrypoint %q", ep), 1)
	}
	return printJSON(ctx, p)
}
