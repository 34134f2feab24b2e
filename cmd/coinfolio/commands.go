package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/bobmcallan/coinfolio/internal/models"
	"github.com/bobmcallan/coinfolio/internal/services/portfolio"
)

// priceCmd implements "coinfolio price".
type priceCmd struct {
	vs  string
	env *env
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "prints live prices for one or more assets" }
func (*priceCmd) Usage() string {
	return `coinfolio price [-vs usd,eur] <asset-id>...

  Prints the live price of each asset in each requested currency.
  Assets that cannot be priced are reported as unavailable.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.vs, "vs", "usd", "comma-separated quote currencies")
}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one asset id is required.")
		return subcommands.ExitUsageError
	}
	e, err := resolveEnv(c.env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	currencies := strings.Split(c.vs, ",")
	prices, err := e.prices.ResolvePrices(ctx, f.Args(), currencies)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	for _, asset := range f.Args() {
		for _, raw := range currencies {
			cur, _ := models.ParseCurrency(raw)
			p, ok := prices.Get(asset, raw)
			if !ok {
				fmt.Fprintf(w, "%s\t%s\tunavailable\n", models.AssetKey(asset), cur)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", models.AssetKey(asset), cur, cur.Format(p))
		}
	}
	w.Flush()
	return subcommands.ExitSuccess
}

// searchCmd implements "coinfolio search".
type searchCmd struct {
	env *env
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "searches coins by name or symbol" }
func (*searchCmd) Usage() string {
	return `coinfolio search <query>

  Lists up to ten matching coins with the id to use with other commands.
`
}

func (*searchCmd) SetFlags(*flag.FlagSet) {}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: a search term is required.")
		return subcommands.ExitUsageError
	}
	e, err := resolveEnv(c.env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	query := strings.Join(f.Args(), " ")
	coins, err := e.prices.Search(ctx, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error searching coins: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(coins) == 0 {
		fmt.Fprintf(e.out, "No results found for '%s'.\n", query)
		return subcommands.ExitSuccess
	}

	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYMBOL\tNAME")
	for _, coin := range coins {
		fmt.Fprintf(w, "%s\t%s\t%s\n", coin.ID, strings.ToUpper(coin.Symbol), coin.Name)
	}
	w.Flush()
	return subcommands.ExitSuccess
}

// detailCmd implements "coinfolio detail".
type detailCmd struct {
	vs  string
	env *env
}

func (*detailCmd) Name() string     { return "detail" }
func (*detailCmd) Synopsis() string { return "prints market detail for one asset" }
func (*detailCmd) Usage() string {
	return `coinfolio detail [-vs usd] <asset-id>

  Prints price, market cap, rank and 24h change for the asset.
`
}

func (c *detailCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.vs, "vs", "usd", "quote currency")
}

func (c *detailCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one asset id is required.")
		return subcommands.ExitUsageError
	}
	e, err := resolveEnv(c.env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	detail, err := e.prices.AssetDetail(ctx, f.Arg(0), c.vs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if detail == nil {
		fmt.Fprintf(os.Stderr, "No market data for '%s'.\n", f.Arg(0))
		return subcommands.ExitFailure
	}

	cur, _ := models.ParseCurrency(c.vs)
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Name\t%s (%s)\n", detail.Name, strings.ToUpper(detail.Symbol))
	fmt.Fprintf(w, "Price\t%s\n", cur.Format(detail.CurrentPrice))
	fmt.Fprintf(w, "Market cap\t%s\n", cur.Format(detail.MarketCap))
	if detail.MarketCapRank > 0 {
		fmt.Fprintf(w, "Rank\t#%d\n", detail.MarketCapRank)
	}
	fmt.Fprintf(w, "24h change\t%s%%\n", detail.PriceChangePercentage24h.StringFixed(2))
	w.Flush()
	return subcommands.ExitSuccess
}

// valuateCmd implements "coinfolio valuate".
type valuateCmd struct {
	file string
	env  *env
}

func (*valuateCmd) Name() string     { return "valuate" }
func (*valuateCmd) Synopsis() string { return "values a JSON file of investment records" }
func (*valuateCmd) Usage() string {
	return `coinfolio valuate -f records.json

  Reads a JSON array of investment records and prints each position and
  the portfolio totals against live prices. Records whose price cannot be
  resolved are valued at their buy price.
`
}

func (c *valuateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", "", "path to a JSON array of investment records")
}

func (c *valuateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "Error: -f is required.")
		return subcommands.ExitUsageError
	}
	data, err := os.ReadFile(c.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading records: %v\n", err)
		return subcommands.ExitFailure
	}
	var records []models.InvestmentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing records: %v\n", err)
		return subcommands.ExitFailure
	}

	e, err := resolveEnv(c.env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	p, err := e.portfolios.Valuate(ctx, records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printPortfolio(e, p)
	return subcommands.ExitSuccess
}

func printPortfolio(e *env, p *models.Portfolio) {
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "ASSET\tINVESTED\tVALUE\tPROFIT\t%\t")
	for _, pos := range p.Positions {
		marker := ""
		if !pos.PriceAvailable {
			marker = " *"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\t\n",
			pos.AssetSymbol, marker,
			pos.Currency.Format(pos.Invested),
			pos.Currency.Format(pos.CurrentValue),
			pos.Currency.Format(pos.Profit.Absolute),
			pos.Profit.Percentage.StringFixed(2))
	}
	w.Flush()

	fmt.Fprintln(e.out)
	if p.MixedCurrencies || len(p.Currencies) != 1 {
		// totals mix units; print them bare
		fmt.Fprintf(e.out, "Invested %s  Value %s  Profit %s (%s%%)\n",
			p.TotalInvested.StringFixed(2), p.TotalValue.StringFixed(2),
			p.TotalProfit.StringFixed(2), p.TotalProfitPercentage.StringFixed(2))
		if p.MixedCurrencies {
			fmt.Fprintf(e.out, "Warning: totals add %d currencies without conversion.\n", len(p.Currencies))
		}
	} else {
		cur := p.Currencies[0]
		fmt.Fprintf(e.out, "Invested %s  Value %s  Profit %s (%s%%)\n",
			cur.Format(p.TotalInvested), cur.Format(p.TotalValue),
			cur.Format(p.TotalProfit), p.TotalProfitPercentage.StringFixed(2))
	}
	fmt.Fprintf(e.out, "%d records, %d unique assets\n", len(p.Investments), p.UniqueAssets)
}

// shareCodeCmd implements "coinfolio sharecode".
type shareCodeCmd struct {
	n   int
	env *env
}

func (*shareCodeCmd) Name() string     { return "sharecode" }
func (*shareCodeCmd) Synopsis() string { return "generates portfolio share codes" }
func (*shareCodeCmd) Usage() string {
	return `coinfolio sharecode [-n 1]

  Prints n fresh 8-character share codes.
`
}

func (c *shareCodeCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.n, "n", 1, "number of codes to generate")
}

func (c *shareCodeCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	if c.n < 1 {
		fmt.Fprintln(os.Stderr, "Error: -n must be at least 1.")
		return subcommands.ExitUsageError
	}
	out := c.output()
	for i := 0; i < c.n; i++ {
		fmt.Fprintln(out, portfolio.GenerateShareCode())
	}
	return subcommands.ExitSuccess
}

func (c *shareCodeCmd) output() io.Writer {
	if c.env != nil {
		return c.env.out
	}
	return os.Stdout
}
