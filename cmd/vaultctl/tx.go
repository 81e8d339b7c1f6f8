package main

import (
	"errors"

	"github.com/urfave/cli/v2"

	"autoyield-vault/internal/solana"
)

var txCmd = cli.Command{
	Name:  "tx",
	Usage: "show the confirmation status and program logs of a submitted transaction",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "signature",
			Usage:    "the transaction signature",
			Required: true,
		},
	},
	Action: txAction,
}

func txAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)
	sig := ctx.String("signature")

	statuses, err := rpc.GetSignatureStatuses(ctx.Context, sig)
	if err != nil {
		return err
	}
	if len(statuses) == 0 || statuses[0] == nil {
		return errors.New("signature not found")
	}

	res := map[string]interface{}{
		"signature":          sig,
		"slot":               statuses[0].Slot,
		"confirmationStatus": statuses[0].ConfirmationStatus,
		"err":                statuses[0].Err,
		"explorer":           solana.ExplorerURL(sig, cfg.Cluster),
	}

	tx, err := rpc.GetTransaction(ctx.Context, sig)
	if err != nil {
		return err
	}
	if tx != nil {
		res["blockTime"] = tx.BlockTime
		res["logs"] = tx.Logs
	}

	printJSON(res)
	return nil
}
