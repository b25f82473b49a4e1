package sheet

import "github.com/xuri/excelize/v2"

const (
	headerFill  = "#D9E1F2"
	flaggedFill = "#FFF2CC"
	dateFormat  = "dd.mm.yyyy"
	moneyFormat = 4 // built-in "#,##0.00"
)

type rowStyles struct {
	text   int
	date   int
	money  int
	number int
}

type styles struct {
	header     int
	totalText  int
	totalMoney int
	plain      rowStyles
	flagged    rowStyles
}

// styleBuilder registers styles on a workbook and keeps the first error
type styleBuilder struct {
	f   *excelize.File
	err error
}

func (b *styleBuilder) add(s *excelize.Style) int {
	if b.err != nil {
		return 0
	}
	id, err := b.f.NewStyle(s)
	if err != nil {
		b.err = err
	}
	return id
}

func (b *styleBuilder) rowStyles(fill excelize.Fill) rowStyles {
	dateFmt := dateFormat
	return rowStyles{
		text:   b.add(&excelize.Style{Fill: fill}),
		date:   b.add(&excelize.Style{Fill: fill, CustomNumFmt: &dateFmt}),
		money:  b.add(&excelize.Style{Fill: fill, NumFmt: moneyFormat}),
		number: b.add(&excelize.Style{Fill: fill}),
	}
}

func newStyles(f *excelize.File) (*styles, error) {
	b := &styleBuilder{f: f}
	bold := &excelize.Font{Bold: true}

	st := &styles{
		header: b.add(&excelize.Style{
			Font:      bold,
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
			Alignment: &excelize.Alignment{Vertical: "center"},
		}),
		totalText:  b.add(&excelize.Style{Font: bold}),
		totalMoney: b.add(&excelize.Style{Font: bold, NumFmt: moneyFormat}),
		plain:      b.rowStyles(excelize.Fill{}),
		flagged:    b.rowStyles(excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{flaggedFill}}),
	}
	if b.err != nil {
		return nil, b.err
	}
	return st, nil
}
