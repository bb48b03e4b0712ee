package xlsx

import (
	"fmt"

	"github.com/kosarica/purchase-optimizer/internal/optimizer"
)

// Sheet positions in a problem workbook.
const (
	ItemsSheet = iota
	PricesSheet
	InventorySheet
	ShippingSheet
	problemSheetCount
)

// Result workbook sheet names and labels.
const (
	QuantitiesSheetName = "number_of_lures_to_order"
	BillsSheetName      = "bill_info"
	TotalNumberColumn   = "total_number"
	TotalColumn         = "total"
	TotalBillRow        = "total_bill"
	ShippingBillRow     = "shipping_bill"
	ItemBillRow         = "item_bill"
)

var sheetRoles = [problemSheetCount]string{"items", "prices", "inventory", "shipping"}

// ParserOptions controls how a problem workbook is read.
type ParserOptions struct {
	// HeaderRow is the 0-based row holding column headers. Rows above it are
	// titles and are ignored (default: 1).
	HeaderRow int `json:"headerRow,omitempty"`
	// SkipEmptyRows drops rows whose cells are all blank.
	SkipEmptyRows bool `json:"skipEmptyRows,omitempty"`
}

// DefaultOptions returns default workbook parser options.
func DefaultOptions() ParserOptions {
	return ParserOptions{
		HeaderRow:     1,
		SkipEmptyRows: true,
	}
}

// ParseWarning is a non-fatal observation made while reading a workbook.
type ParseWarning struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row,omitempty"`
	Message string `json:"message"`
}

// ParseError locates a malformed cell or sheet. Row is 1-based as shown in
// spreadsheet software, 0 when the error concerns the whole sheet.
type ParseError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row,omitempty"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (e *ParseError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("sheet %s, cell %s%d: %s", e.Sheet, e.Column, e.Row, e.Message)
	case e.Row > 0:
		return fmt.Sprintf("sheet %s, row %d: %s", e.Sheet, e.Row, e.Message)
	default:
		return fmt.Sprintf("sheet %s: %s", e.Sheet, e.Message)
	}
}

// ParseResult is a loaded problem plus anything worth reporting about it.
type ParseResult struct {
	Input    optimizer.ProblemInput `json:"input"`
	Warnings []ParseWarning         `json:"warnings,omitempty"`
}
