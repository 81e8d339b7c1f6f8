package main

import (
	"github.com/urfave/cli/v2"

	"autoyield-vault/internal/rates"
)

var ratesCmd = cli.Command{
	Name:  "rates",
	Usage: "list protocol yields, and the best route for --amount",
	Flags: []cli.Flag{
		&cli.Float64Flag{
			Name:  "amount",
			Usage: "a deposit amount in USDC to route",
		},
	},
	Action: ratesAction,
}

func ratesAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	list := rates.NewClient(cfg.RatesURL).Rates(ctx.Context)
	res := map[string]interface{}{
		"rates": rates.SortByAPY(list),
		"best":  rates.BestRate(list),
	}

	if amount := ctx.Float64("amount"); amount > 0 {
		router := rates.DefaultRouter().WithRates(list)
		res["route"] = router.RoutingInstructions(amount)
		res["recommendations"] = router.Recommendations(amount)
	}

	printJSON(res)
	return nil
}
