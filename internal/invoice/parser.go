package invoice

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// parseState is the scanner position within a receipt
type parseState int

const (
	seekHeader parseState = iota
	seekItem
	seekTerminator
)

func (s parseState) String() string {
	switch s {
	case seekHeader:
		return "seek_header"
	case seekItem:
		return "seek_item"
	case seekTerminator:
		return "seek_terminator"
	}
	return "unknown"
}

// Number fragments. groupedNumber accepts space-grouped thousands ("1 234,50") and falls back to any
// token starting with a digit, so that a damaged number still yields a flagged item instead of a
// skipped line. gutterNumber is used where columns are separated by two or more spaces and may
// therefore contain single spaces.
const (
	groupedNumber = `-?\d{1,3}(?:[ \x{a0}\x{202f}]\d{3})+(?:[,.]\d+)?|-?\d\S*`
	gutterNumber  = `-?\d\S*(?:[ \x{a0}\x{202f}]\d\S*)*`
	plainNumber   = `-?\d+(?:[,.]\d+)?`
	vatToken      = `\d+(?:[,.]\d+)?\s*%?`
)

// itemLine builds a product-line pattern with the given column separator and number fragment.
// With withQuantity false the VAT token must carry a percent sign.
func itemLine(sep, number string, withQuantity bool) *regexp.Regexp {
	vat := vatToken
	quantity := ""
	if withQuantity {
		quantity = `(?P<quantity>` + plainNumber + `)` + sep
	} else {
		vat = `\d+(?:[,.]\d+)?\s*%`
	}
	return regexp.MustCompile(`^(?P<ean>\d[0-9A-Za-z]*)` + sep + `(?P<description>.+?)` + sep + quantity +
		`(?P<net>` + number + `)` + sep + `(?P<vat>` + vat + `)` + sep + `(?P<amount>` + number + `)$`)
}

var (
	// "12.03.2024  Kvittering 00123  Ansvarlig: Ola"
	headerPattern = regexp.MustCompile(`(?i)^(?P<date>\d[\d./-]*)\s+kvittering(?:snr|snummer)?\.?:?\s*(?P<receipt>\d+)\s+ansvarlig:?\s*(?P<responsible>.+)$`)

	// Requisition section: "12.03.2024 kvitteringsnr: 123 Ola Nordmann 100,00 25,00 125,00"
	requisitionPattern = regexp.MustCompile(`(?i)^(?P<date>\d{2}\.\d{2}\.\d{4})\s+kvitteringsnr:\s+(?P<receipt>\d+)\s+(?P<responsible>.+?)\s+(?P<base>` + groupedNumber + `)\s+(?P<vat>` + groupedNumber + `)\s+(?P<total>` + groupedNumber + `)$`)

	// "7038010021145  Melk 1L  1  20.00  25%  25.00", tried in order: two-space gutters first, then
	// any whitespace; with and without a quantity column.
	itemPatterns = []*regexp.Regexp{
		itemLine(`\s{2,}`, gutterNumber, true),
		itemLine(`\s{2,}`, gutterNumber, false),
		itemLine(`\s+`, groupedNumber, true),
		itemLine(`\s+`, groupedNumber, false),
	}

	// "12.03.2024 Sum kvitteringsnr: 123 100,00 125,00"
	sumLinePattern = regexp.MustCompile(`(?i)^(?:(?P<date>\d[\d./-]*)\s+)?sum\s+kvitteringsnr:?\s*(?P<receipt>\d+)\s+(?P<base>` + groupedNumber + `)\s+(?P<total>` + groupedNumber + `)$`)

	// "SLUTT", "Totalt 125,00", "Sum 1 234,50"
	terminatorPattern = regexp.MustCompile(`(?i)^(?:slutt|totalt?|sum)\b`)
	trailingAmount    = regexp.MustCompile(`\s(?P<total>-?\d{1,3}(?:[ \x{a0}\x{202f}.]\d{3})+,\d{2}|-?\d+,\d{2}|-?\d+\.\d{2})\s*$`)

	totalsSectionPattern = regexp.MustCompile(`(?i)^(?:delsum|grunnlag|mva-?grunnlag|herav\s+mva|betalt|bankkort)\b`)
)

// matchNamed returns the named groups of a match, or nil
func matchNamed(re *regexp.Regexp, text string) map[string]string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	groups := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" {
			groups[name] = m[i]
		}
	}
	return groups
}

type receiptKey struct {
	date   string
	number string
}

// openReceipt collects the items of one receipt until its terminator
type openReceipt struct {
	dateText      string
	number        string
	responsible   string
	items         []LineItem
	declaredBase  decimal.NullDecimal
	declaredTotal decimal.NullDecimal
}

// ParseResult is the parser output in document order
type ParseResult struct {
	Items    []LineItem
	Receipts []ReceiptTotal
}

// parser walks an immutable line sequence with an explicit cursor
type parser struct {
	lines        []RawTextLine
	cursor       int
	state        parseState
	current      *openReceipt
	responsibles map[receiptKey]string
	result       ParseResult
}

// Parse scans the extracted lines and returns the line items in order of appearance.
// It returns ErrNoInvoiceData when no item line is found.
func Parse(lines []RawTextLine) (*ParseResult, error) {
	p := &parser{
		lines:        lines,
		state:        seekHeader,
		responsibles: collectResponsibles(lines),
	}
	for p.cursor = 0; p.cursor < len(p.lines); p.cursor++ {
		p.step(p.lines[p.cursor])
	}
	p.closeReceipt(nil)

	if len(p.result.Items) == 0 {
		return nil, ErrNoInvoiceData
	}
	return &p.result, nil
}

// collectResponsibles indexes the requisition section by (date, receipt number)
func collectResponsibles(lines []RawTextLine) map[receiptKey]string {
	out := make(map[receiptKey]string)
	for _, line := range lines {
		m := matchNamed(requisitionPattern, line.Text)
		if m == nil {
			continue
		}
		out[receiptKey{date: m["date"], number: m["receipt"]}] = strings.TrimSpace(m["responsible"])
	}
	return out
}

func (p *parser) step(line RawTextLine) {
	text := line.Text

	switch p.state {
	case seekHeader:
		if m := matchNamed(headerPattern, text); m != nil {
			p.open(m)
			p.state = seekItem
			return
		}
		if item, ok := matchItem(line); ok {
			// Products listed before their sum line: start a receipt without a header.
			p.open(nil)
			p.current.items = append(p.current.items, item)
			p.state = seekItem
		}

	case seekItem:
		if item, ok := matchItem(line); ok {
			p.current.items = append(p.current.items, item)
			return
		}
		if p.terminate(text) {
			p.state = seekHeader
			return
		}
		if totalsSectionPattern.MatchString(text) {
			p.state = seekTerminator
			return
		}
		if m := matchNamed(headerPattern, text); m != nil {
			p.closeReceipt(nil)
			p.open(m)
		}

	case seekTerminator:
		if p.terminate(text) {
			p.state = seekHeader
			return
		}
		if m := matchNamed(headerPattern, text); m != nil {
			p.closeReceipt(nil)
			p.open(m)
			p.state = seekItem
		}
	}
}

func (p *parser) open(header map[string]string) {
	p.current = &openReceipt{}
	if header != nil {
		p.current.dateText = header["date"]
		p.current.number = header["receipt"]
		p.current.responsible = strings.TrimSpace(header["responsible"])
	}
}

// terminate closes the open receipt if text is a terminator line
func (p *parser) terminate(text string) bool {
	if m := matchNamed(sumLinePattern, text); m != nil {
		p.closeReceipt(m)
		return true
	}
	if terminatorPattern.MatchString(text) {
		fields := map[string]string{}
		if m := matchNamed(trailingAmount, text); m != nil {
			fields["total"] = m["total"]
		}
		p.closeReceipt(fields)
		return true
	}
	return false
}

// closeReceipt backfills shared fields from the terminator and emits the receipt's items
func (p *parser) closeReceipt(terminator map[string]string) {
	r := p.current
	p.current = nil
	if r == nil || len(r.items) == 0 {
		return
	}

	if terminator != nil {
		if r.dateText == "" {
			r.dateText = terminator["date"]
		}
		if r.number == "" {
			r.number = terminator["receipt"]
		}
		if v, err := ParseDecimal(terminator["base"]); err == nil {
			r.declaredBase = decimal.NewNullDecimal(v)
		}
		if v, err := ParseDecimal(terminator["total"]); err == nil {
			r.declaredTotal = decimal.NewNullDecimal(v)
		}
	}
	if r.responsible == "" {
		r.responsible = p.responsibles[receiptKey{date: r.dateText, number: r.number}]
	}

	total := ReceiptTotal{
		DateText:      r.dateText,
		ReceiptNumber: r.number,
		Responsible:   r.responsible,
		ItemCount:     len(r.items),
		ComputedTotal: decimal.Zero,
		DeclaredBase:  r.declaredBase,
		DeclaredTotal: r.declaredTotal,
	}

	date, dateErr := ParseDate(r.dateText)
	if dateErr == nil {
		total.Date = date
	}

	for _, item := range r.items {
		item.DateText = r.dateText
		item.ReceiptNumber = r.number
		item.Responsible = r.responsible
		switch {
		case r.dateText == "":
			item.flag(FlagMissingDate)
		case dateErr != nil:
			item.flag(FlagInvalidDate)
		default:
			item.Date = date
		}
		if r.number == "" {
			item.flag(FlagMissingReceipt)
		}
		if item.Amount.Valid {
			total.ComputedTotal = total.ComputedTotal.Add(item.Amount.Decimal)
		}
		p.result.Items = append(p.result.Items, item)
	}
	p.result.Receipts = append(p.result.Receipts, total)
}

// matchItem recognizes a product line and normalizes its fields
func matchItem(line RawTextLine) (LineItem, bool) {
	var m map[string]string
	for _, re := range itemPatterns {
		if m = matchNamed(re, line.Text); m != nil {
			break
		}
	}
	if m == nil {
		return LineItem{}, false
	}

	item := LineItem{
		EAN:         m["ean"],
		Description: strings.TrimSpace(m["description"]),
		Source:      line,
	}
	for _, f := range ValidateEAN(item.EAN) {
		item.flag(f)
	}

	if q, ok := m["quantity"]; ok {
		item.Quantity = parseField(&item, q, FlagInvalidQuantity)
		if item.Quantity.Valid && !item.Quantity.Decimal.IsPositive() {
			item.flag(FlagInvalidQuantity)
		}
	} else {
		item.Quantity = decimal.NewNullDecimal(decimal.NewFromInt(1))
	}
	item.UnitPrice = parseField(&item, m["net"], FlagInvalidUnitPrice)
	item.Amount = parseField(&item, m["amount"], FlagInvalidAmount)

	rate, err := ParseVatRate(m["vat"])
	item.VatRate = rate
	if err != nil || !rate.Recognized() {
		item.flag(FlagUnknownVatRate)
	}

	item.checkAmount()
	return item, true
}

func parseField(item *LineItem, token string, onError Flag) decimal.NullDecimal {
	v, err := ParseDecimal(token)
	if err != nil {
		item.flag(onError)
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v)
}
