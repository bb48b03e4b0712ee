package xlsx

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kosarica/purchase-optimizer/internal/optimizer"
)

// ErrNoPlan is returned when asked to write a result without a plan.
var ErrNoPlan = errors.New("no purchase plan to write")

// WriteResult builds the result workbook: the quantity of every item to order
// from each retailer with a total_number column, then the bill per retailer
// with a total column.
func WriteResult(plan *optimizer.PurchasePlan, billing *optimizer.BillingSummary) (*excelize.File, error) {
	if plan == nil || billing == nil {
		return nil, ErrNoPlan
	}

	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, QuantitiesSheetName); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeQuantities(f, plan); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(BillsSheetName); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeBills(f, plan, billing); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// SaveResult writes the result workbook to path.
func SaveResult(path string, plan *optimizer.PurchasePlan, billing *optimizer.BillingSummary) error {
	f, err := WriteResult(plan, billing)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save result workbook: %w", err)
	}
	return nil
}

// ResultBytes renders the result workbook in memory.
func ResultBytes(plan *optimizer.PurchasePlan, billing *optimizer.BillingSummary) ([]byte, error) {
	f, err := WriteResult(plan, billing)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeQuantities(f *excelize.File, plan *optimizer.PurchasePlan) error {
	header := make([]interface{}, 0, len(plan.Retailers)+2)
	header = append(header, "")
	for _, r := range plan.Retailers {
		header = append(header, r)
	}
	header = append(header, TotalNumberColumn)
	if err := f.SetSheetRow(QuantitiesSheetName, "A1", &header); err != nil {
		return err
	}

	for i, item := range plan.Items {
		row := make([]interface{}, 0, len(header))
		row = append(row, item)
		for _, r := range plan.Retailers {
			row = append(row, cellQuantity(plan, plan.Quantity(item, r)))
		}
		row = append(row, cellQuantity(plan, plan.Totals[item]))

		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(QuantitiesSheetName, addr, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeBills(f *excelize.File, plan *optimizer.PurchasePlan, billing *optimizer.BillingSummary) error {
	header := make([]interface{}, 0, len(plan.Retailers)+2)
	header = append(header, "")
	for _, r := range plan.Retailers {
		header = append(header, r)
	}
	header = append(header, TotalColumn)
	if err := f.SetSheetRow(BillsSheetName, "A1", &header); err != nil {
		return err
	}

	rows := []struct {
		label string
		value func(optimizer.RetailerBill) float64
		total float64
	}{
		{TotalBillRow, func(b optimizer.RetailerBill) float64 { return b.TotalBill }, billing.GrandTotal},
		{ShippingBillRow, func(b optimizer.RetailerBill) float64 { return b.ShippingBill }, billing.ShippingTotal},
		{ItemBillRow, func(b optimizer.RetailerBill) float64 { return b.ItemBill }, billing.ItemTotal},
	}
	for k, line := range rows {
		row := make([]interface{}, 0, len(header))
		row = append(row, line.label)
		for _, r := range plan.Retailers {
			bill, _ := billing.Retailer(r)
			row = append(row, line.value(bill))
		}
		row = append(row, line.total)

		addr, err := excelize.CoordinatesToCellName(1, k+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(BillsSheetName, addr, &row); err != nil {
			return err
		}
	}
	return nil
}

func cellQuantity(plan *optimizer.PurchasePlan, q float64) interface{} {
	if plan.Integer {
		return int(q)
	}
	return q
}
