package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/lightlink-network/ll-withdrawer/api"
	"github.com/lightlink-network/ll-withdrawer/withdrawal"
)

var ServeCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Serves the withdrawal API and drives the account's unfinished withdrawal",
	Flags:  []cli.Flag{APIPortFlag},
	Action: Serve,
}

func Serve(c *cli.Context) error {
	e, err := setup(c, withdrawal.TabWithdraw)
	if err != nil {
		return err
	}
	defer e.close()

	explorers := withdrawal.Explorers{
		L1: e.provider.L1().ExplorerURL,
		L2: e.provider.L2().ExplorerURL,
	}
	server := api.NewServer(api.ServerOpts{
		Logger:    e.logger.With("component", "api-server"),
		Store:     e.store,
		Metrics:   e.metrics,
		Explorers: explorers,
		Port:      c.String(APIPortFlag.Name),
	})

	g, ctx := errgroup.WithContext(c.Context)
	g.Go(func() error {
		return server.StartServer(ctx)
	})
	g.Go(func() error {
		if e.session.Active() == nil {
			e.logger.Info("no unfinished withdrawal to drive", "address", e.account.Hex())
			return nil
		}
		// A failed step is left for the next start, the API keeps serving.
		if _, err := e.session.Continue(ctx); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Error("failed to drive withdrawal", "error", err)
		}
		return nil
	})

	return g.Wait()
}
