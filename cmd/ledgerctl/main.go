package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cicconee/cbledger/internal/ledger/client"
)

const usage = `usage: ledgerctl [-addr URL] <command> [flags]

commands:
  withdraw -account ID -amount 40.00 [-trace ID]
  balance  -account ID
  seed     -account ID -balance 100.00   (dev ledger only)
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	addr := global.String("addr", envOr("CBLEDGER_URL", "http://localhost:8080"), "ledger HTTP base URL")
	timeout := global.Duration("timeout", 10*time.Second, "request timeout")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := global.Parse(args); err != nil {
		return 2
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return 2
	}

	c := client.New(*addr, *timeout)
	ctx := context.Background()

	switch rest[0] {
	case "withdraw":
		fs := flag.NewFlagSet("withdraw", flag.ContinueOnError)
		account := fs.Int64("account", 0, "account id")
		amount := fs.String("amount", "", "amount, e.g. 40.00")
		trace := fs.String("trace", "", "trace id")
		if err := fs.Parse(rest[1:]); err != nil {
			return 2
		}
		res, err := c.Withdraw(ctx, *account, *amount, *trace)
		return report(res, res.HTTPStatus, err)

	case "balance":
		fs := flag.NewFlagSet("balance", flag.ContinueOnError)
		account := fs.Int64("account", 0, "account id")
		if err := fs.Parse(rest[1:]); err != nil {
			return 2
		}
		res, err := c.Balance(ctx, *account)
		return report(res, res.HTTPStatus, err)

	case "seed":
		fs := flag.NewFlagSet("seed", flag.ContinueOnError)
		account := fs.Int64("account", 0, "account id")
		balance := fs.String("balance", "0", "opening balance")
		if err := fs.Parse(rest[1:]); err != nil {
			return 2
		}
		res, err := c.Seed(ctx, *account, *balance)
		return report(res, res.HTTPStatus, err)

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", rest[0])
		global.Usage()
		return 2
	}
}

func report(v any, httpStatus int, err error) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)

	if httpStatus >= 400 {
		return 1
	}
	return 0
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
