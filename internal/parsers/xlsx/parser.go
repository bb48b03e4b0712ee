// Package xlsx reads purchase problems from spreadsheet workbooks and writes
// optimized purchase plans back out.
package xlsx

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/kosarica/purchase-optimizer/internal/matching"
	"github.com/kosarica/purchase-optimizer/internal/optimizer"
)

var currencyRe = regexp.MustCompile(`[€$£\s]`)

// Digit groups of exactly three after a leading group of one to three. A
// single dot group stays a decimal point for amounts, since raw numeric cells
// always use one.
var (
	commaGroupedRe = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	dotGroupedRe   = regexp.MustCompile(`^\d{1,3}(\.\d{3}){2,}$`)
	countGroupedRe = regexp.MustCompile(`^\d{1,3}([.,]\d{3})+$`)
)

// Parser loads the four-sheet problem workbook:
//
//	sheet 1  items      title row, header row, one row per item: name, desired quantity
//	sheet 2  prices     title row, header row of retailer names, one row per item
//	sheet 3  inventory  same layout as prices
//	sheet 4  shipping   title row, header row of retailers, a shipping fee row
//	                    and a free-shipping threshold row
//
// Blank price and inventory cells read as 0.
type Parser struct {
	options ParserOptions
}

// NewParser creates a new workbook parser.
func NewParser(options ParserOptions) *Parser {
	opts := DefaultOptions()
	if options.HeaderRow > 0 {
		opts.HeaderRow = options.HeaderRow
	}
	opts.SkipEmptyRows = options.SkipEmptyRows
	return &Parser{options: opts}
}

// ParseFile reads the workbook at path.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	return p.Parse(content, path)
}

// Parse reads a workbook from content. filename is used only for logging.
func (p *Parser) Parse(content []byte, filename string) (*ParseResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, &ParseError{Sheet: filename, Message: fmt.Sprintf("failed to parse Excel file: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) < problemSheetCount {
		return nil, &ParseError{
			Sheet:   filename,
			Message: fmt.Sprintf("expected %d sheets (items, prices, inventory, shipping), found %d", problemSheetCount, len(sheets)),
		}
	}

	w := &workbook{parser: p, file: f, sheets: sheets, result: &ParseResult{}}
	if err := w.load(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("file", filename).
		Int("items", len(w.result.Input.Items)).
		Int("retailers", len(w.result.Input.Retailers)).
		Int("warnings", len(w.result.Warnings)).
		Msg("Loaded problem workbook")

	return w.result, nil
}

type workbook struct {
	parser *Parser
	file   *excelize.File
	sheets []string
	result *ParseResult

	itemIndex map[string]int // normalized item name -> position
}

func (w *workbook) load() error {
	if err := w.loadItems(); err != nil {
		return err
	}
	if err := w.loadPrices(); err != nil {
		return err
	}
	if err := w.loadInventory(); err != nil {
		return err
	}
	return w.loadShipping()
}

// table is a sheet split into its header and data rows.
type table struct {
	sheet   string
	header  []string
	rows    [][]string
	rowNums []int // 1-based row number of each data row
}

func (w *workbook) readTable(role int) (*table, error) {
	name := w.sheets[role]
	rows, err := w.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Sheet: name, Message: fmt.Sprintf("failed to read worksheet: %v", err)}
	}

	headerRow := w.parser.options.HeaderRow
	if len(rows) <= headerRow {
		return nil, &ParseError{Sheet: name, Message: fmt.Sprintf("%s sheet has no header row", sheetRoles[role])}
	}

	t := &table{sheet: name, header: trimCells(rows[headerRow])}
	for i := headerRow + 1; i < len(rows); i++ {
		if w.parser.options.SkipEmptyRows && isEmptyRow(rows[i]) {
			continue
		}
		t.rows = append(t.rows, trimCells(rows[i]))
		t.rowNums = append(t.rowNums, i+1)
	}
	return t, nil
}

func (w *workbook) loadItems() error {
	t, err := w.readTable(ItemsSheet)
	if err != nil {
		return err
	}

	in := &w.result.Input
	w.itemIndex = make(map[string]int, len(t.rows))
	for k, row := range t.rows {
		name := cell(row, 0)
		if name == "" {
			return &ParseError{Sheet: t.sheet, Row: t.rowNums[k], Column: "A", Message: "missing item name"}
		}
		key := matching.NormalizeName(name)
		if prev, dup := w.itemIndex[key]; dup {
			return &ParseError{Sheet: t.sheet, Row: t.rowNums[k], Column: "A",
				Message: fmt.Sprintf("item %q duplicates %q", name, in.Items[prev])}
		}

		raw := cell(row, 1)
		if raw == "" {
			w.warn(t.sheet, t.rowNums[k], fmt.Sprintf("no quantity for item %q, assuming 0", name))
		}
		qty, err := parseCount(raw)
		if err != nil {
			return &ParseError{Sheet: t.sheet, Row: t.rowNums[k], Column: "B", Message: err.Error()}
		}

		w.itemIndex[key] = len(in.Items)
		in.Items = append(in.Items, name)
		in.Desired = append(in.Desired, qty)
	}

	if len(in.Items) == 0 {
		w.warn(t.sheet, 0, "no items listed")
	}
	return nil
}

func (w *workbook) loadPrices() error {
	t, err := w.readTable(PricesSheet)
	if err != nil {
		return err
	}

	in := &w.result.Input
	for c := 1; c < len(t.header); c++ {
		if t.header[c] == "" {
			break
		}
		in.Retailers = append(in.Retailers, t.header[c])
	}
	if len(in.Retailers) == 0 {
		return &ParseError{Sheet: t.sheet, Row: w.parser.options.HeaderRow + 1, Message: "no retailers in header row"}
	}

	in.Prices = make([][]float64, len(in.Items))
	return w.fillMatrix(t, func(i, r int, raw string) error {
		v, err := parseAmount(raw)
		if err != nil {
			return err
		}
		if in.Prices[i] == nil {
			in.Prices[i] = make([]float64, len(in.Retailers))
		}
		in.Prices[i][r] = v
		return nil
	}, func(i int) { in.Prices[i] = make([]float64, len(in.Retailers)) })
}

func (w *workbook) loadInventory() error {
	t, err := w.readTable(InventorySheet)
	if err != nil {
		return err
	}

	in := &w.result.Input
	in.Inventory = make([][]int, len(in.Items))
	return w.fillMatrix(t, func(i, r int, raw string) error {
		v, err := parseCount(raw)
		if err != nil {
			return err
		}
		if in.Inventory[i] == nil {
			in.Inventory[i] = make([]int, len(in.Retailers))
		}
		in.Inventory[i][r] = v
		return nil
	}, func(i int) { in.Inventory[i] = make([]int, len(in.Retailers)) })
}

// fillMatrix walks an item-by-retailer sheet. Rows are matched to items by
// name and columns to retailers by header. Items without a row get zeros
// through missing.
func (w *workbook) fillMatrix(t *table, set func(i, r int, raw string) error, missing func(i int)) error {
	columns, err := w.retailerColumns(t)
	if err != nil {
		return err
	}

	seen := make([]bool, len(w.result.Input.Items))
	for k, row := range t.rows {
		name := cell(row, 0)
		i, ok := w.itemIndex[matching.NormalizeName(name)]
		if !ok {
			return &ParseError{Sheet: t.sheet, Row: t.rowNums[k], Column: "A",
				Message: fmt.Sprintf("unknown item %q", name)}
		}
		if seen[i] {
			return &ParseError{Sheet: t.sheet, Row: t.rowNums[k], Column: "A",
				Message: fmt.Sprintf("item %q listed twice", name)}
		}
		seen[i] = true

		for r, c := range columns {
			if err := set(i, r, cell(row, c)); err != nil {
				return &ParseError{Sheet: t.sheet, Row: t.rowNums[k], Column: columnName(c), Message: err.Error()}
			}
		}
	}

	for i, ok := range seen {
		if !ok {
			w.warn(t.sheet, 0, fmt.Sprintf("no row for item %q, assuming 0", w.result.Input.Items[i]))
			missing(i)
		}
	}
	return nil
}

// retailerColumns maps each known retailer to its column in t.
func (w *workbook) retailerColumns(t *table) ([]int, error) {
	byName := make(map[string]int, len(t.header))
	for c := 1; c < len(t.header); c++ {
		if t.header[c] != "" {
			byName[matching.NormalizeName(t.header[c])] = c
		}
	}

	retailers := w.result.Input.Retailers
	columns := make([]int, len(retailers))
	for r, name := range retailers {
		c, ok := byName[matching.NormalizeName(name)]
		if !ok {
			return nil, &ParseError{Sheet: t.sheet, Row: w.parser.options.HeaderRow + 1,
				Message: fmt.Sprintf("missing column for retailer %q", name)}
		}
		columns[r] = c
	}
	return columns, nil
}

func (w *workbook) loadShipping() error {
	t, err := w.readTable(ShippingSheet)
	if err != nil {
		return err
	}
	if len(t.rows) < 2 {
		return &ParseError{Sheet: t.sheet, Message: "expected a shipping row and a free shipping threshold row"}
	}
	columns, err := w.retailerColumns(t)
	if err != nil {
		return err
	}

	in := &w.result.Input
	in.Shipping = make([]float64, len(in.Retailers))
	in.Thresholds = make([]float64, len(in.Retailers))
	targets := [2][]float64{in.Shipping, in.Thresholds}
	for k := 0; k < 2; k++ {
		for r, c := range columns {
			v, err := parseAmount(cell(t.rows[k], c))
			if err != nil {
				return &ParseError{Sheet: t.sheet, Row: t.rowNums[k], Column: columnName(c), Message: err.Error()}
			}
			targets[k][r] = v
		}
	}
	return nil
}

func (w *workbook) warn(sheet string, row int, msg string) {
	w.result.Warnings = append(w.result.Warnings, ParseWarning{Sheet: sheet, Row: row, Message: msg})
}

func cell(row []string, c int) string {
	if c < len(row) {
		return row[c]
	}
	return ""
}

func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func columnName(c int) string {
	name, err := excelize.ColumnNumberToName(c + 1)
	if err != nil {
		return strconv.Itoa(c + 1)
	}
	return name
}

// parseAmount parses a money or fee value. Blank reads as 0. Both 1,234.56
// and 1.234,56 are accepted.
func parseAmount(value string) (float64, error) {
	cleaned := currencyRe.ReplaceAllString(value, "")
	if cleaned == "" {
		return 0, nil
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	if commaGroupedRe.MatchString(cleaned) || dotGroupedRe.MatchString(cleaned) {
		cleaned = strings.NewReplacer(",", "", ".", "").Replace(cleaned)
	} else if lastComma > lastDot {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	} else if lastDot > lastComma {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", value)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %q", value)
	}
	return v, nil
}

// parseCount parses a whole, non-negative count. Blank reads as 0. Any dot or
// comma followed by exactly three digits groups thousands.
func parseCount(value string) (int, error) {
	if cleaned := currencyRe.ReplaceAllString(value, ""); countGroupedRe.MatchString(cleaned) {
		value = strings.NewReplacer(",", "", ".", "").Replace(cleaned)
	}
	v, err := parseAmount(value)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("expected a whole number, got %q", value)
	}
	if v > math.MaxInt32 {
		return 0, fmt.Errorf("count %q out of range", value)
	}
	return int(v), nil
}

// Load reads a problem workbook with default options.
func Load(path string) (*optimizer.ProblemInput, []ParseWarning, error) {
	res, err := NewParser(DefaultOptions()).ParseFile(path)
	if err != nil {
		return nil, nil, err
	}
	return &res.Input, res.Warnings, nil
}
