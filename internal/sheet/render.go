package sheet

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"github.com/zombor/rema-xlsx/internal/invoice"
)

// Sheet names in the generated workbook
const (
	DetailSheet  = "Fakturadetaljer"
	ReceiptSheet = "Kvitteringer"
	IssueSheet   = "Avvik"
)

// ContentType is the MIME type of the rendered workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrEmptyResult is returned when there is nothing to render
var ErrEmptyResult = invoice.ErrEmptyResult

// Columns is the fixed column contract of the detail sheet
var Columns = []string{
	"Dato",
	"Kvitteringsnr",
	"Ansvarlig",
	"EAN",
	"Varetekst",
	"Antall",
	"Nettopris",
	"Mva",
	"Beløp i NOK",
	"Sum 25%",
	"Sum 15%",
	"Sum 0%",
}

const (
	colDate = iota
	colReceipt
	colResponsible
	colEAN
	colDescription
	colQuantity
	colUnitPrice
	colVat
	colAmount
	colSum25
	colSum15
	colSum0
)

var receiptColumns = []string{
	"Dato",
	"Kvitteringsnr",
	"Ansvarlig",
	"Antall varer",
	"Beregnet sum",
	"Oppgitt grunnlag",
	"Oppgitt sum",
	"Avstemt",
}

var issueColumns = []string{"Rad", "Kvitteringsnr", "Varetekst", "Avvik", "Kilde"}

const (
	minColumnWidth = 8
	maxColumnWidth = 60
)

// Render writes the conversion result as an XLSX workbook
func Render(result *invoice.ConversionResult) ([]byte, error) {
	if result == nil || len(result.Items) == 0 {
		return nil, ErrEmptyResult
	}

	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("creating styles: %w", err)
	}

	if err := f.SetSheetName("Sheet1", DetailSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	if err := writeTable(f, DetailSheet, detailTable(result, st)); err != nil {
		return nil, fmt.Errorf("writing %s: %w", DetailSheet, err)
	}

	if len(result.Receipts) > 0 {
		if err := addSheet(f, ReceiptSheet, receiptTable(result, st)); err != nil {
			return nil, err
		}
	}
	if result.FlaggedCount() > 0 {
		if err := addSheet(f, IssueSheet, issueTable(result, st)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func addSheet(f *excelize.File, name string, t *table) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("creating sheet %s: %w", name, err)
	}
	if err := writeTable(f, name, t); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func detailTable(result *invoice.ConversionResult, st *styles) *table {
	t := newTable(Columns, st.header)

	for _, item := range result.Items {
		rs := st.plain
		if !item.Valid() {
			rs = st.flagged
		}

		row := make([]excelize.Cell, len(Columns))
		for i := range row {
			row[i] = excelize.Cell{StyleID: rs.text}
		}
		if item.HasDate() {
			row[colDate] = excelize.Cell{StyleID: rs.date, Value: item.Date}
		} else {
			row[colDate].Value = item.DateText
		}
		row[colReceipt].Value = item.ReceiptNumber
		row[colResponsible].Value = item.Responsible
		row[colEAN].Value = item.EAN
		row[colDescription].Value = item.Description
		row[colQuantity] = excelize.Cell{StyleID: rs.number, Value: number(item.Quantity)}
		row[colUnitPrice] = excelize.Cell{StyleID: rs.money, Value: number(item.UnitPrice)}
		row[colVat].Value = item.VatRate.String()
		row[colAmount] = excelize.Cell{StyleID: rs.money, Value: number(item.Amount)}
		row[colSum25].StyleID = rs.money
		row[colSum15].StyleID = rs.money
		row[colSum0].StyleID = rs.money
		t.add(row)
	}

	// One summary row per rate, each filling only its own column
	for _, rate := range invoice.VatRates {
		row := make([]excelize.Cell, len(Columns))
		row[colDescription] = excelize.Cell{StyleID: st.totalText, Value: "Sum " + rate.String()}
		row[sumColumn(rate)] = excelize.Cell{StyleID: st.totalMoney, Value: result.Summary.SumFor(rate).InexactFloat64()}
		t.add(row)
	}
	return t
}

func sumColumn(rate invoice.VatRate) int {
	switch rate {
	case invoice.Vat25:
		return colSum25
	case invoice.Vat15:
		return colSum15
	}
	return colSum0
}

func receiptTable(result *invoice.ConversionResult, st *styles) *table {
	t := newTable(receiptColumns, st.header)

	items := 0
	computed := decimal.Zero
	for _, rt := range result.Receipts {
		rs := st.plain
		reconciled := "Ja"
		if !rt.Reconciled() {
			rs = st.flagged
			reconciled = "Nei"
		}
		date := excelize.Cell{StyleID: rs.text, Value: rt.DateText}
		if !rt.Date.IsZero() {
			date = excelize.Cell{StyleID: rs.date, Value: rt.Date}
		}
		t.add([]excelize.Cell{
			date,
			{StyleID: rs.text, Value: rt.ReceiptNumber},
			{StyleID: rs.text, Value: rt.Responsible},
			{StyleID: rs.number, Value: rt.ItemCount},
			{StyleID: rs.money, Value: rt.ComputedTotal.InexactFloat64()},
			{StyleID: rs.money, Value: number(rt.DeclaredBase)},
			{StyleID: rs.money, Value: number(rt.DeclaredTotal)},
			{StyleID: rs.text, Value: reconciled},
		})
		items += rt.ItemCount
		computed = computed.Add(rt.ComputedTotal)
	}

	t.add([]excelize.Cell{
		{StyleID: st.totalText, Value: "Totalt"},
		{StyleID: st.totalText},
		{StyleID: st.totalText},
		{StyleID: st.totalText, Value: items},
		{StyleID: st.totalMoney, Value: computed.InexactFloat64()},
		{StyleID: st.totalText},
		{StyleID: st.totalMoney, Value: result.ReceiptsTotal().InexactFloat64()},
		{StyleID: st.totalText},
	})
	return t
}

func issueTable(result *invoice.ConversionResult, st *styles) *table {
	t := newTable(issueColumns, st.header)

	for i, item := range result.Items {
		if item.Valid() {
			continue
		}
		flags := make([]string, len(item.Flags))
		for j, fl := range item.Flags {
			flags[j] = string(fl)
		}
		t.add([]excelize.Cell{
			// data rows start below the header
			{StyleID: st.plain.number, Value: i + 2},
			{StyleID: st.plain.text, Value: item.ReceiptNumber},
			{StyleID: st.plain.text, Value: item.Description},
			{StyleID: st.plain.text, Value: strings.Join(flags, ", ")},
			{StyleID: st.plain.text, Value: fmt.Sprintf("side %d, linje %d: %s", item.Source.Page, item.Source.Index+1, item.Source.Text)},
		})
	}
	return t
}

// number converts a nullable decimal into a cell value, leaving the cell empty when null
func number(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

// table buffers rows so column widths can be sized before streaming
type table struct {
	widths []int
	rows   [][]excelize.Cell
}

func newTable(header []string, style int) *table {
	t := &table{widths: make([]int, len(header))}
	row := make([]excelize.Cell, len(header))
	for i, h := range header {
		row[i] = excelize.Cell{StyleID: style, Value: h}
	}
	t.add(row)
	return t
}

func (t *table) add(row []excelize.Cell) {
	for i, c := range row {
		if i < len(t.widths) {
			t.widths[i] = max(t.widths[i], displayWidth(c.Value))
		}
	}
	t.rows = append(t.rows, row)
}

func writeTable(f *excelize.File, sheet string, t *table) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("creating stream writer: %w", err)
	}

	for i, w := range t.widths {
		width := float64(min(max(w+2, minColumnWidth), maxColumnWidth))
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}

	for r, row := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for i, c := range row {
			values[i] = c
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("writing row %d: %w", r+1, err)
		}
	}

	return sw.Flush()
}

// displayWidth approximates the rendered width of a cell value in characters
func displayWidth(v interface{}) int {
	switch val := v.(type) {
	case nil:
		return 0
	case string:
		return utf8.RuneCountInString(val)
	case time.Time:
		return len("dd.mm.yyyy")
	case float64:
		s := decimal.NewFromFloat(val).StringFixed(2)
		digits := len(strings.TrimPrefix(strings.Split(s, ".")[0], "-"))
		return len(s) + (digits-1)/3
	default:
		return len(fmt.Sprint(val))
	}
}
