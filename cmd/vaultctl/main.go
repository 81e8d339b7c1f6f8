package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"autoyield-vault/internal/config"
	"autoyield-vault/internal/observability"
	"autoyield-vault/internal/session"
	"autoyield-vault/internal/solana"
	"autoyield-vault/internal/vault"
	"autoyield-vault/internal/wallet"
)

func main() {
	app := cli.NewApp()

	app.Name = "vaultctl"
	app.Usage = "Command line interface for the AutoYield USDC vault"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "optional dotenv file",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  "keypair",
			Usage: "solana-keygen keypair file, overrides AUTOYIELD_KEYPAIR_PATH",
		},
	}
	app.Commands = append(
		app.Commands,
		&addresses,
		&status,
		&initialize,
		&fixAuthorities,
		&deposit,
		&withdraw,
		&ratesCmd,
		&txCmd,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx.String("env-file"))
	if err != nil {
		return nil, err
	}
	if kp := ctx.String("keypair"); kp != "" {
		cfg.KeypairPath = kp
	}
	cfg.ConfigureLogging()
	return cfg, nil
}

// connectedSession builds a controller for the configured keypair and
// applies the connection so the first refresh has run on return.
func connectedSession(ctx context.Context, cfg *config.Config) (*session.Controller, error) {
	if cfg.KeypairPath == "" {
		return nil, errors.New("no keypair: set --keypair or AUTOYIELD_KEYPAIR_PATH")
	}

	rpcOpts := []solana.ClientOption{solana.WithObserver(observability.RecordRPCCall)}
	if cfg.RPCRateLimit > 0 {
		rpcOpts = append(rpcOpts, solana.WithRateLimit(cfg.RPCRateLimit))
	}
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint, rpcOpts...)

	builder, err := vault.NewBuilder(cfg.ProgramID, cfg.Authority, cfg.USDCMint)
	if err != nil {
		return nil, err
	}
	kp, err := wallet.LoadKeypair(cfg.KeypairPath, rpc)
	if err != nil {
		return nil, err
	}

	ws := wallet.NewSession(2)
	ctrl, err := session.New(session.Config{
		Ledger:      vault.NewProgram(rpc, builder),
		Wallet:      ws,
		SettleDelay: cfg.SettleDelay,
		Logger:      log.WithField("component", "vaultctl"),
	})
	if err != nil {
		return nil, err
	}

	if err := ws.Connect(ctx, kp); err != nil {
		return nil, err
	}
	for i := 0; i < 2; i++ {
		ctrl.HandleEvent(ctx, <-ws.Events())
	}
	return ctrl, nil
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(out))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[vaultctl] %v\n", err)
	os.Exit(1)
}
