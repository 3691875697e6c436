// Command contracts logs in and lists the account's contracts so one can be
// selected with -repsol-contract-id.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/raterudder/luzygas/pkg/log"
	"github.com/raterudder/luzygas/pkg/repsol"
)

func main() {
	client := repsol.Configured()
	lflag.Configure()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := client.Login(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to login", "error", err)
		os.Exit(1)
	}
	contracts, err := client.ListContracts(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list contracts", "error", err)
		os.Exit(1)
	}
	if len(contracts) == 0 {
		log.Ctx(ctx).WarnContext(ctx, "no contracts found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTRACT\tHOUSE\tLABEL\tACTIVE")
	for _, c := range contracts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", c.ContractID, c.HouseID, c.Label(), c.Active)
	}
	if err := w.Flush(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to write contracts", "error", err)
		os.Exit(1)
	}
}
