// Command launcher creates pump.fun tokens from the command line or over HTTP.
//
// Usage:
//
//	launcher launch --name "Doge Two" --ticker DOGE2 --description "much wow" --image https://example.com/art.png
//	launcher serve
//	launcher keygen --outfile wallet.json
//	launcher address
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"pump-launcher/internal/api"
	"pump-launcher/internal/builder"
	"pump-launcher/internal/config"
	"pump-launcher/internal/domain"
	"pump-launcher/internal/keys"
	"pump-launcher/internal/launch"
	"pump-launcher/internal/logging"
	"pump-launcher/internal/metadata"
	"pump-launcher/internal/solana"
	"pump-launcher/internal/submit"
)

func main() {
	app := &cli.App{
		Name:  "launcher",
		Usage: "launch tokens on the pump.fun bonding curve",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "config file (yaml, json or toml)"},
			&cli.StringFlag{Name: "rpc-url", Usage: "Solana RPC HTTP endpoint"},
			&cli.StringFlag{Name: "ws-url", Usage: "Solana RPC WebSocket endpoint (enables push confirmation)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "json-logs", Usage: "emit JSON logs"},
		},
		Commands: []*cli.Command{
			launchCommand(),
			serveCommand(),
			keygenCommand(),
			addressCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.Logger.Fatal().Err(err).Msg("launcher failed")
	}
}

// loadConfig reads configuration and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if c.IsSet("rpc-url") {
		cfg.RPCURL = c.String("rpc-url")
	}
	if c.IsSet("ws-url") {
		cfg.WSURL = c.String("ws-url")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("json-logs") {
		cfg.Log.JSON = c.Bool("json-logs")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.Init(cfg.Log.Level, cfg.Log.JSON)
	return cfg, nil
}

// runtime holds the wired components shared by launch and serve.
type runtime struct {
	launcher *launch.Launcher
	agent    launch.Agent
	ws       *solana.WSClientImpl
}

func (r *runtime) Close() {
	if r.ws != nil {
		_ = r.ws.Close()
	}
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	wallet, err := cfg.LoadWallet()
	if err != nil {
		return nil, err
	}

	rt := &runtime{}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	rpc := solana.NewHTTPClient(cfg.RPCURL,
		solana.WithTimeout(cfg.HTTPTimeout),
		solana.WithMaxRetries(cfg.RPCMaxRetries),
	)

	var ws solana.WSClient
	if cfg.WSURL != "" {
		wsCfg := solana.DefaultWSConfig()
		wsCfg.Logger = logging.WithComponent("ws")
		client, err := solana.NewWSClient(ctx, cfg.WSURL, &wsCfg)
		if err != nil {
			logging.Logger.Warn().Err(err).Msg("websocket unavailable, confirming by polling")
		} else {
			rt.ws = client
			ws = client
		}
	}

	conn := solana.NewConnection(solana.ConnectionOptions{
		RPC:          rpc,
		WS:           ws,
		Commitment:   solana.Commitment(cfg.Commitment),
		PollInterval: cfg.ConfirmPollInterval,
		Logger:       logging.WithComponent("connection"),
	})

	rt.agent = launch.Agent{Wallet: wallet, Connection: conn}
	rt.launcher = launch.NewLauncher(launch.Options{
		Publisher: metadata.NewPublisher(metadata.Options{
			Client:   httpClient,
			Endpoint: cfg.MetadataURL,
			Logger:   logging.WithComponent("metadata"),
		}),
		Builder: builder.NewBuilder(builder.Options{
			Client:   httpClient,
			Endpoint: cfg.BuilderURL,
			Logger:   logging.WithComponent("builder"),
		}),
		Submitter: submit.NewSubmitter(submit.Options{Logger: logging.WithComponent("submit")}),
		Logger:    logging.WithComponent("launch"),
	})
	return rt, nil
}

func launchCommand() *cli.Command {
	return &cli.Command{
		Name:  "launch",
		Usage: "create a token and print its signature, mint and metadata URI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true, Usage: "token name"},
			&cli.StringFlag{Name: "ticker", Required: true, Usage: "token ticker"},
			&cli.StringFlag{Name: "description", Required: true, Usage: "token description"},
			&cli.StringFlag{Name: "image", Required: true, Usage: "artwork URL"},
			&cli.Float64Flag{Name: "liquidity", Usage: "initial buy in SOL"},
			&cli.IntFlag{Name: "slippage", Usage: "slippage for the initial buy"},
			&cli.Float64Flag{Name: "priority-fee", Usage: "priority fee in SOL"},
			&cli.StringFlag{Name: "twitter", Usage: "twitter link"},
			&cli.StringFlag{Name: "telegram", Usage: "telegram link"},
			&cli.StringFlag{Name: "website", Usage: "website link"},
			&cli.DurationFlag{Name: "timeout", Value: 3 * time.Minute, Usage: "overall launch timeout"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
			defer cancel()

			rt, err := newRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			opts := &domain.LaunchOptions{
				Twitter:  c.String("twitter"),
				Telegram: c.String("telegram"),
				Website:  c.String("website"),
			}
			if c.IsSet("liquidity") {
				v := c.Float64("liquidity")
				opts.InitialLiquiditySOL = &v
			}
			if c.IsSet("slippage") {
				v := c.Int("slippage")
				opts.SlippageBps = &v
			}
			if c.IsSet("priority-fee") {
				v := c.Float64("priority-fee")
				opts.PriorityFee = &v
			}

			result, err := rt.launcher.Launch(ctx, rt.agent,
				c.String("name"), c.String("ticker"), c.String("description"), c.String("image"),
				cfg.ApplyDefaults(opts))
			if err != nil {
				var subErr *submit.SubmissionError
				if errors.As(err, &subErr) {
					for _, line := range subErr.Logs {
						fmt.Fprintln(os.Stderr, line)
					}
				}
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the launch API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.IsSet("addr") {
				cfg.API.Addr = c.String("addr")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			gin.SetMode(gin.ReleaseMode)
			server := api.NewServer(api.Options{
				Addr:          cfg.API.Addr,
				Launcher:      rt.launcher,
				Agent:         rt.agent,
				ApplyDefaults: cfg.ApplyDefaults,
				Logger:        logging.WithComponent("api"),
			})

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			logging.Logger.Info().
				Str("addr", cfg.API.Addr).
				Str("wallet", rt.agent.Wallet.PublicKey().String()).
				Msg("launch API ready")

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logging.Logger.Info().Msg("shutdown signal received")
				return server.Shutdown()
			}
		},
	}
}

func keygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "generate a wallet keypair",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "outfile", Aliases: []string{"o"}, Usage: "write the keypair as a solana-keygen JSON file"},
			&cli.BoolFlag{Name: "mnemonic", Usage: "derive the key from a new 24-word mnemonic and print it"},
			&cli.BoolFlag{Name: "force", Usage: "overwrite an existing outfile"},
		},
		Action: func(c *cli.Context) error {
			var (
				key solanago.PrivateKey
				err error
			)
			if c.Bool("mnemonic") {
				phrase, err := keys.GenerateMnemonic()
				if err != nil {
					return err
				}
				key, err = keys.FromMnemonic(phrase, "", 0)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "mnemonic (store it offline): %s\n", phrase)
			} else {
				key, err = keys.Generate()
				if err != nil {
					return err
				}
			}

			data, err := keys.MarshalKeypairJSON(key)
			if err != nil {
				return err
			}

			if out := c.String("outfile"); out != "" {
				flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
				if c.Bool("force") {
					flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
				}
				f, err := os.OpenFile(out, flags, 0o600)
				if err != nil {
					return fmt.Errorf("write keypair: %w", err)
				}
				if _, err := f.Write(data); err != nil {
					f.Close()
					return fmt.Errorf("write keypair: %w", err)
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("write keypair: %w", err)
				}
			} else {
				fmt.Println(string(data))
			}

			fmt.Fprintf(os.Stderr, "pubkey: %s\n", key.PublicKey())
			return nil
		},
	}
}

func addressCommand() *cli.Command {
	return &cli.Command{
		Name:  "address",
		Usage: "print the configured wallet address",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			wallet, err := cfg.LoadWallet()
			if err != nil {
				return err
			}
			fmt.Println(wallet.PublicKey())
			return nil
		},
	}
}
