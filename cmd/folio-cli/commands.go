package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"folio/internal/backend"
	"folio/internal/charts"
	"folio/internal/core"
	"folio/internal/report"
	"folio/internal/worker"
)

type summaryCmd struct {
	plain bool
	width int
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the portfolio dashboard" }
func (*summaryCmd) Usage() string {
	return `folio-cli summary [-plain] [-width n]

  Displays totals, accounts, allocation and the 12-month history.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.plain, "plain", false, "print raw markdown")
	f.IntVar(&c.width, "width", 100, "word wrap width")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	p, err := fromArgs(args).portfolio(ctx)
	if err != nil {
		return fail(err)
	}
	summary, err := p.Summary(ctx)
	if err != nil {
		return fail(err)
	}
	currency, err := p.Currency(ctx)
	if err != nil {
		return fail(err)
	}
	md := report.Markdown(summary, currency)
	if c.plain {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}
	out, err := report.Render(md, c.width)
	if err != nil {
		return fail(err)
	}
	fmt.Print(out)
	return subcommands.ExitSuccess
}

type chartCmd struct {
	kind   string
	output string
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "write a dashboard chart as PNG" }
func (*chartCmd) Usage() string {
	return `folio-cli chart [-kind history|allocation] -o <file.png>
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "history", "chart to draw: history or allocation")
	f.StringVar(&c.output, "o", "", "output PNG file")
}

func (c *chartCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.output == "" {
		fmt.Fprintln(os.Stderr, "Error: -o is required")
		return subcommands.ExitUsageError
	}
	if c.kind != "history" && c.kind != "allocation" {
		fmt.Fprintf(os.Stderr, "Error: unknown chart kind %q\n", c.kind)
		return subcommands.ExitUsageError
	}
	p, err := fromArgs(args).portfolio(ctx)
	if err != nil {
		return fail(err)
	}
	summary, err := p.Summary(ctx)
	if err != nil {
		return fail(err)
	}
	currency, err := p.Currency(ctx)
	if err != nil {
		return fail(err)
	}

	f, err := os.Create(c.output)
	if err != nil {
		return fail(err)
	}
	if c.kind == "allocation" {
		err = charts.Allocation(f, summary.Allocation)
	} else {
		err = charts.History(f, summary.History, currency)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Chart written to %s\n", c.output)
	return subcommands.ExitSuccess
}

type accountsCmd struct{}

func (*accountsCmd) Name() string             { return "accounts" }
func (*accountsCmd) Synopsis() string         { return "list accounts" }
func (*accountsCmd) Usage() string            { return "folio-cli accounts\n" }
func (*accountsCmd) SetFlags(_ *flag.FlagSet) {}

func (*accountsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	p, err := fromArgs(args).portfolio(ctx)
	if err != nil {
		return fail(err)
	}
	accounts, err := p.Accounts(ctx)
	if err != nil {
		return fail(err)
	}
	report.AccountsTable(os.Stdout, accounts)
	return subcommands.ExitSuccess
}

type transactionsCmd struct {
	account string
}

func (*transactionsCmd) Name() string     { return "transactions" }
func (*transactionsCmd) Synopsis() string { return "list transactions" }
func (*transactionsCmd) Usage() string {
	return "folio-cli transactions [-account <id>]\n"
}

func (c *transactionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "only list transactions of this account")
}

func (c *transactionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	p, err := fromArgs(args).portfolio(ctx)
	if err != nil {
		return fail(err)
	}
	txs, err := p.Transactions(ctx, core.Filter{AccountID: c.account})
	if err != nil {
		return fail(err)
	}
	currency, err := p.Currency(ctx)
	if err != nil {
		return fail(err)
	}
	report.TransactionsTable(os.Stdout, txs, currency)
	return subcommands.ExitSuccess
}

type addAccountCmd struct {
	accountType string
	platform    string
	name        string
	opened      string
	notes       string
}

func (*addAccountCmd) Name() string     { return "add-account" }
func (*addAccountCmd) Synopsis() string { return "create an account" }
func (*addAccountCmd) Usage() string {
	return `folio-cli add-account -type <type> -platform <platform> [-name <name>] [-opened <date>] [-notes <text>]

  Types: ` + optionIDs(core.AccountTypes) + `
`
}

func (c *addAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.accountType, "type", "", "account type")
	f.StringVar(&c.platform, "platform", "", "platform id")
	f.StringVar(&c.name, "name", "", "display name (derived from type and platform when empty)")
	f.StringVar(&c.opened, "opened", "", "opening date (defaults to today)")
	f.StringVar(&c.notes, "notes", "", "free text")
}

func (c *addAccountCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	opened, err := core.ParseDate(c.opened)
	if err != nil {
		return fail(err)
	}
	p, err := fromArgs(args).portfolio(ctx)
	if err != nil {
		return fail(err)
	}
	a, err := p.AddAccount(ctx, core.Account{
		Type:       core.AccountType(c.accountType),
		Platform:   c.platform,
		Name:       c.name,
		OpenedDate: opened,
		Notes:      c.notes,
	})
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Created account %s (%s)\n", a.ID, a.Name)
	return subcommands.ExitSuccess
}

type addTransactionCmd struct {
	account     string
	kind        string
	amount      string
	date        string
	recurrence  string
	description string
}

func (*addTransactionCmd) Name() string     { return "add-tx" }
func (*addTransactionCmd) Synopsis() string { return "record a deposit or withdrawal" }
func (*addTransactionCmd) Usage() string {
	return `folio-cli add-tx -account <id> -amount <amount> [-kind deposit|withdrawal] [-date <date>] [-recurrence <r>] [-description <text>]
`
}

func (c *addTransactionCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account id")
	f.StringVar(&c.kind, "kind", string(core.Deposit), "deposit or withdrawal")
	f.StringVar(&c.amount, "amount", "", "amount, comma or dot decimals")
	f.StringVar(&c.date, "date", "", "transaction date (defaults to today)")
	f.StringVar(&c.recurrence, "recurrence", string(core.OneTime), "one-time, weekly, monthly, quarterly or yearly")
	f.StringVar(&c.description, "description", "", "free text")
}

func (c *addTransactionCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	date, err := core.ParseDate(c.date)
	if err != nil {
		return fail(err)
	}
	p, err := fromArgs(args).portfolio(ctx)
	if err != nil {
		return fail(err)
	}
	t, err := p.AddTransaction(ctx, core.Transaction{
		AccountID:   c.account,
		Date:        date,
		Kind:        core.TransactionKind(c.kind),
		Amount:      core.CoerceAmount(c.amount),
		Recurrence:  core.Recurrence(c.recurrence),
		Description: c.description,
	})
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Recorded %s of %s on %s (%s)\n", t.Kind, t.Amount.String(), t.Date, t.ID)
	return subcommands.ExitSuccess
}

type addValuationCmd struct {
	account string
	value   string
	date    string
	notes   string
}

func (*addValuationCmd) Name() string     { return "add-valuation" }
func (*addValuationCmd) Synopsis() string { return "record an account valuation" }
func (*addValuationCmd) Usage() string {
	return "folio-cli add-valuation -account <id> -value <amount> [-date <date>] [-notes <text>]\n"
}

func (c *addValuationCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account id")
	f.StringVar(&c.value, "value", "", "total account value")
	f.StringVar(&c.date, "date", "", "valuation date (defaults to today)")
	f.StringVar(&c.notes, "notes", "", "free text")
}

func (c *addValuationCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	date, err := core.ParseDate(c.date)
	if err != nil {
		return fail(err)
	}
	p, err := fromArgs(args).portfolio(ctx)
	if err != nil {
		return fail(err)
	}
	v, err := p.AddValuation(ctx, core.Valuation{
		AccountID: c.account,
		Date:      date,
		Value:     core.CoerceAmount(c.value),
		Notes:     c.notes,
	})
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Recorded valuation of %s on %s (%s)\n", v.Value.String(), v.Date, v.ID)
	return subcommands.ExitSuccess
}

type setConfigCmd struct{}

func (*setConfigCmd) Name() string             { return "set-config" }
func (*setConfigCmd) Synopsis() string         { return "set a configuration key" }
func (*setConfigCmd) Usage() string            { return "folio-cli set-config <key> <value>\n" }
func (*setConfigCmd) SetFlags(_ *flag.FlagSet) {}

func (*setConfigCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Error: expected <key> <value>")
		return subcommands.ExitUsageError
	}
	p, err := fromArgs(args).portfolio(ctx)
	if err != nil {
		return fail(err)
	}
	entry, err := p.SetConfig(ctx, f.Arg(0), f.Arg(1))
	if err != nil {
		return fail(err)
	}
	fmt.Printf("%s = %s\n", entry.Key, entry.Value)
	return subcommands.ExitSuccess
}

type syncCmd struct{}

func (*syncCmd) Name() string             { return "sync" }
func (*syncCmd) Synopsis() string         { return "copy every record into the mirror once" }
func (*syncCmd) Usage() string            { return "folio-cli sync\n" }
func (*syncCmd) SetFlags(_ *flag.FlagSet) {}

func (*syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := fromArgs(args)
	if _, err := a.portfolio(ctx); err != nil {
		return fail(err)
	}
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return fail(err)
	}
	mirror, err := backend.NewFactory(a.logger.Logger).CreateMirror(ctx, bcfg)
	if err != nil {
		return fail(err)
	}
	defer mirror.Close()

	if err := worker.NewMirrorWorker(a.store.Store, mirror.Store, a.cfg.SyncInterval).Sync(ctx); err != nil {
		return fail(err)
	}
	info, err := mirror.Describe(ctx)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Mirror updated: %s (%s)\n", info.Location, info.Backend)
	return subcommands.ExitSuccess
}

func optionIDs(options []core.Option) string {
	ids := make([]string, 0, len(options))
	for _, o := range options {
		ids = append(ids, o.ID)
	}
	return strings.Join(ids, ", ")
}
