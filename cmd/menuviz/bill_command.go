package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"menuviz/internal/api"
	"menuviz/internal/ipc"
)

func newBillCommand(ctx *commandContext) *cobra.Command {
	var (
		people  []string
		assigns []string
		prices  []string
		tax     float64
		tip     float64
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "bill",
		Short: "Split the bill for the current dishes",
		Long: `Split the bill for the current dishes.

People are named with --person; the first one replaces the default diner.
Assign dishes with --assign DISH=NAME[,NAME...], where DISH is a list number,
id or name. Shared dishes are split evenly. Override a price with
--price DISH=AMOUNT. Tax and tip are percentages of each person's subtotal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *ipc.Client) error {
				items, err := client.Items(c)
				if err != nil {
					return err
				}
				req, err := buildBillRequest(items, people, assigns, prices, tax)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("tip") {
					req.TipPercent = &tip
				}
				resp, err := client.Bill(c, req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				renderBill(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&people, "person", nil, "Person at the table (repeatable)")
	cmd.Flags().StringArrayVar(&assigns, "assign", nil, "DISH=NAME[,NAME...] assignment (repeatable)")
	cmd.Flags().StringArrayVar(&prices, "price", nil, "DISH=AMOUNT price override (repeatable)")
	cmd.Flags().Float64Var(&tax, "tax", 0, "Tax percent")
	cmd.Flags().Float64Var(&tip, "tip", 15, "Tip percent")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func personID(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func buildBillRequest(items *api.ItemsResponse, people, assigns, prices []string, tax float64) (api.BillRequest, error) {
	req := api.BillRequest{TaxPercent: tax}
	for _, name := range people {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		req.People = append(req.People, api.BillPerson{ID: personID(name), Name: name})
	}

	if len(assigns) > 0 {
		req.Assignments = make(map[string][]string, len(assigns))
	}
	for _, a := range assigns {
		ref, names, ok := strings.Cut(a, "=")
		if !ok {
			return req, fmt.Errorf("invalid --assign %q (want DISH=NAME[,NAME...])", a)
		}
		dish, err := resolveDish(items, ref)
		if err != nil {
			return req, err
		}
		ids := []string{}
		for _, n := range strings.Split(names, ",") {
			if id := personID(n); id != "" {
				ids = append(ids, id)
			}
		}
		req.Assignments[dish.ID] = ids
	}

	if len(prices) > 0 {
		req.Prices = make(map[string]float64, len(prices))
	}
	for _, p := range prices {
		ref, amount, ok := strings.Cut(p, "=")
		if !ok {
			return req, fmt.Errorf("invalid --price %q (want DISH=AMOUNT)", p)
		}
		dish, err := resolveDish(items, ref)
		if err != nil {
			return req, err
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
		if err != nil {
			return req, fmt.Errorf("invalid price %q: %w", amount, err)
		}
		req.Prices[dish.ID] = value
	}
	return req, nil
}

func renderBill(out io.Writer, bill *api.BillResponse) {
	rows := make([][]string, 0, len(bill.People))
	for _, p := range bill.People {
		rows = append(rows, []string{p.Name, money(p.Subtotal), money(p.Tax), money(p.Tip), money(p.Total)})
	}
	footer := []string{"Total", "", fmt.Sprintf("%g%%", bill.TaxPercent), fmt.Sprintf("%g%%", bill.TipPercent), money(bill.GrandTotal)}
	fmt.Fprintln(out, renderTableWithFooter(
		[]string{"Person", "Subtotal", "Tax", "Tip", "Total"},
		rows,
		footer,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
