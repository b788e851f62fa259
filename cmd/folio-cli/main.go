// Command folio-cli inspects and edits the portfolio from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"folio/internal/backend"
	"folio/internal/cli"
	"folio/internal/config"
	flog "folio/internal/log"
	"folio/internal/services"
)

// app carries what every subcommand needs. The store is opened on first use.
type app struct {
	cfg    *config.Config
	logger *flog.Logger
	store  *backend.Result
}

func (a *app) portfolio(ctx context.Context) (*services.Portfolio, error) {
	if a.store == nil {
		store, err := cli.OpenStore(ctx, a.logger, a.cfg)
		if err != nil {
			return nil, err
		}
		a.store = store
	}
	return services.NewPortfolio(a.store.Store,
		services.WithCacheTTL(0),
		services.WithLogger(a.logger.Logger),
	), nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to close record store", flog.FieldError, err)
	}
}

func fromArgs(args []interface{}) *app {
	return args[0].(*app)
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

func main() {
	cli.LoadEnvFile()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&summaryCmd{}, "dashboard")
	commander.Register(&chartCmd{}, "dashboard")

	commander.Register(&accountsCmd{}, "records")
	commander.Register(&transactionsCmd{}, "records")
	commander.Register(&addAccountCmd{}, "records")
	commander.Register(&addTransactionCmd{}, "records")
	commander.Register(&addValuationCmd{}, "records")
	commander.Register(&setConfigCmd{}, "records")

	commander.Register(&syncCmd{}, "storage")

	flag.Parse()

	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(int(subcommands.ExitUsageError))
	}
	a := &app{cfg: cfg, logger: cli.SetupLogger(cfg, flog.ComponentCLI, os.Stderr)}

	ctx, cancel := cli.SignalContext(a.logger)
	status := commander.Execute(ctx, a)
	cancel()
	a.close()
	os.Exit(int(status))
}
