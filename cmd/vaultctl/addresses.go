package main

import (
	"github.com/urfave/cli/v2"

	"autoyield-vault/internal/solana"
	"autoyield-vault/internal/vault"
)

var addresses = cli.Command{
	Name:  "addresses",
	Usage: "print the derived vault accounts, and the wallet's token accounts with --wallet",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "wallet",
			Usage: "base58 wallet address",
		},
	},
	Action: addressesAction,
}

func addressesAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	builder, err := vault.NewBuilder(cfg.ProgramID, cfg.Authority, cfg.USDCMint)
	if err != nil {
		return err
	}

	res := map[string]string{
		"program":     cfg.ProgramID.String(),
		"authority":   cfg.Authority.String(),
		"usdcMint":    cfg.USDCMint.String(),
		"metadata":    builder.Addresses.Metadata.String(),
		"custody":     builder.Addresses.Custody.String(),
		"receiptMint": builder.Addresses.ReceiptMint.String(),
	}

	if w := ctx.String("wallet"); w != "" {
		user, err := solana.ParsePublicKey(w)
		if err != nil {
			return err
		}
		ua, err := builder.UserAccounts(user)
		if err != nil {
			return err
		}
		res["userUsdc"] = ua.USDC.String()
		res["userReceipt"] = ua.Receipt.String()
	}

	printJSON(res)
	return nil
}
