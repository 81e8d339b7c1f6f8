package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v2"

	"autoyield-vault/internal/session"
	"autoyield-vault/internal/solana"
)

var amountFlag = &cli.StringFlag{
	Name:     "amount",
	Usage:    "the amount in USDC, up to 6 decimals",
	Required: true,
}

var initialize = cli.Command{
	Name:  "initialize",
	Usage: "create the vault accounts (vault owner only)",
	Action: operationAction(func(ctx context.Context, c *session.Controller, _ *cli.Context) session.Outcome {
		return c.Initialize(ctx)
	}),
}

var fixAuthorities = cli.Command{
	Name:  "fix-authorities",
	Usage: "reassign custody and mint authorities to the vault (vault owner only)",
	Action: operationAction(func(ctx context.Context, c *session.Controller, _ *cli.Context) session.Outcome {
		return c.FixAuthorities(ctx)
	}),
}

var deposit = cli.Command{
	Name:  "deposit",
	Usage: "deposit USDC into the vault in exchange for yUSDC",
	Flags: []cli.Flag{amountFlag},
	Action: operationAction(func(ctx context.Context, c *session.Controller, cctx *cli.Context) session.Outcome {
		return c.Deposit(ctx, cctx.String("amount"))
	}),
}

var withdraw = cli.Command{
	Name:  "withdraw",
	Usage: "redeem yUSDC for USDC",
	Flags: []cli.Flag{amountFlag},
	Action: operationAction(func(ctx context.Context, c *session.Controller, cctx *cli.Context) session.Outcome {
		return c.Withdraw(ctx, cctx.String("amount"))
	}),
}

type operation func(ctx context.Context, c *session.Controller, cctx *cli.Context) session.Outcome

func operationAction(op operation) cli.ActionFunc {
	return func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		ctrl, err := connectedSession(cctx.Context, cfg)
		if err != nil {
			return err
		}

		out := op(cctx.Context, ctrl, cctx)
		switch {
		case out.Err != nil:
			return out.Err
		case out.Skipped:
			return errors.New("nothing to do: the vault does not exist yet or no wallet is connected")
		}

		st := ctrl.State()
		printJSON(map[string]interface{}{
			"signature": out.Signature,
			"explorer":  solana.ExplorerURL(out.Signature, cfg.Cluster),
			"balances":  st.Balances,
		})
		return nil
	}
}
