package main

import (
	"github.com/urfave/cli/v2"

	"autoyield-vault/internal/vault"
)

var status = cli.Command{
	Name:   "status",
	Usage:  "returns the vault snapshot and the wallet balances",
	Action: statusAction,
}

func statusAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	ctrl, err := connectedSession(ctx.Context, cfg)
	if err != nil {
		return err
	}

	st := ctrl.State()
	printJSON(map[string]interface{}{
		"state":        st,
		"exchangeRate": st.Snapshot.ExchangeRate().StringFixed(vault.Decimals),
		"receiptValue": vault.FormatAmount(st.Balances.ReceiptValue(st.Snapshot)),
	})
	return nil
}
