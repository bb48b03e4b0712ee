package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/kosarica/purchase-optimizer/internal/optimizer"
	"github.com/kosarica/purchase-optimizer/internal/parsers/xlsx"
)

// printResult writes the solve report: status, variable values, total cost,
// then the quantity and bill tables and any surplus.
func printResult(w io.Writer, res *optimizer.Result) {
	fmt.Fprintf(w, "Status: %s\n", res.Status)
	if !res.IsOptimal() {
		fmt.Fprintf(w, "No purchase plan (solver %s, %d nodes)\n", res.SolverID, res.Nodes)
		return
	}

	names := make([]string, 0, len(res.Variables))
	for name := range res.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s = %s\n", name, formatNumber(res.Variables[name]))
	}
	fmt.Fprintf(w, "Total purchase cost = %.2f\n\n", res.Objective)

	printQuantities(w, res.Plan)
	fmt.Fprintln(w)
	printBills(w, res.Billing)

	if len(res.Surplus) > 0 {
		fmt.Fprintln(w)
		for _, item := range res.Plan.Items {
			if extra, ok := res.Surplus[item]; ok {
				fmt.Fprintf(w, "For lure %s, ordered %s additional units (more than desired)\n", item, formatNumber(extra))
			}
		}
	}
}

func printQuantities(w io.Writer, plan *optimizer.PurchasePlan) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "item\t")
	for _, r := range plan.Retailers {
		fmt.Fprintf(tw, "%s\t", r)
	}
	fmt.Fprintf(tw, "%s\t\n", xlsx.TotalNumberColumn)
	for _, item := range plan.Items {
		fmt.Fprintf(tw, "%s\t", item)
		for _, r := range plan.Retailers {
			fmt.Fprintf(tw, "%s\t", formatNumber(plan.Quantity(item, r)))
		}
		fmt.Fprintf(tw, "%s\t\n", formatNumber(plan.Totals[item]))
	}
	tw.Flush()
}

func printBills(w io.Writer, billing *optimizer.BillingSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "bill\t")
	for _, rb := range billing.Retailers {
		fmt.Fprintf(tw, "%s\t", rb.Retailer)
	}
	fmt.Fprintf(tw, "%s\t\n", xlsx.TotalColumn)

	rows := []struct {
		label string
		value func(optimizer.RetailerBill) float64
		total float64
	}{
		{xlsx.TotalBillRow, func(rb optimizer.RetailerBill) float64 { return rb.TotalBill }, billing.GrandTotal},
		{xlsx.ShippingBillRow, func(rb optimizer.RetailerBill) float64 { return rb.ShippingBill }, billing.ShippingTotal},
		{xlsx.ItemBillRow, func(rb optimizer.RetailerBill) float64 { return rb.ItemBill }, billing.ItemTotal},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t", row.label)
		for _, rb := range billing.Retailers {
			fmt.Fprintf(tw, "%.2f\t", row.value(rb))
		}
		fmt.Fprintf(tw, "%.2f\t\n", row.total)
	}
	tw.Flush()
}

// formatNumber prints whole numbers without a fraction and drops solver noise
// below 1e-6.
func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6+0, 'f', -1, 64)
}
