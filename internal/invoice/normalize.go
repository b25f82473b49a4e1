package invoice

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// eanLength is the nominal EAN-13 length
const eanLength = 13

// dateLayouts are tried in order; Norwegian day-first layouts come first
var dateLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"02.01.06",
	"2.1.06",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
}

var canonicalDecimal = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// ParseDate converts a receipt date token into a calendar date
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, &DateFormatError{Value: s}
}

// ParseDecimal converts a locale-formatted number such as "1 234,50" or "20.00" into a decimal.
// A comma is the decimal separator; periods and spaces act as thousands separators when a comma
// is present. A lone period is read as a decimal point.
func ParseDecimal(s string) (decimal.Decimal, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\t':
			return -1
		}
		return r
	}, s)
	if clean == "" {
		return decimal.Zero, fmt.Errorf("empty number")
	}

	commas := strings.Count(clean, ",")
	dots := strings.Count(clean, ".")
	switch {
	case commas > 1:
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	case commas == 1 && dots > 0:
		if strings.LastIndex(clean, ",") < strings.LastIndex(clean, ".") {
			return decimal.Zero, fmt.Errorf("invalid number %q", s)
		}
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case commas == 1:
		clean = strings.Replace(clean, ",", ".", 1)
	case dots > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	}

	if !canonicalDecimal.MatchString(clean) {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing number %q: %w", s, err)
	}
	return d, nil
}

var maxVatRate = decimal.NewFromInt(100)

// ParseVatRate reads tokens like "25%", "15", "0 %" or "25,00%".
// Numeric rates outside 25/15/0 are returned as-is; unreadable tokens and rates above 100 return
// VatUnknown and an error.
func ParseVatRate(s string) (VatRate, error) {
	token := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	d, err := ParseDecimal(token)
	if err != nil {
		return VatUnknown, fmt.Errorf("parsing vat rate: %w", err)
	}
	if !d.Equal(d.Truncate(0)) || d.IsNegative() || d.GreaterThan(maxVatRate) {
		return VatUnknown, fmt.Errorf("invalid vat rate %q", s)
	}
	return VatRate(d.IntPart()), nil
}

// ValidateEAN returns the flags for an EAN code. Empty codes are allowed.
func ValidateEAN(ean string) []Flag {
	if ean == "" {
		return nil
	}
	for _, r := range ean {
		if r < '0' || r > '9' {
			return []Flag{FlagInvalidEAN}
		}
	}
	switch {
	case len(ean) < eanLength:
		return []Flag{FlagShortEAN}
	case len(ean) > eanLength:
		return []Flag{FlagInvalidEAN}
	case !eanChecksumValid(ean):
		return []Flag{FlagEANChecksum}
	}
	return nil
}

// eanChecksumValid checks the EAN-13 check digit
func eanChecksumValid(ean string) bool {
	sum := 0
	for i, r := range ean[:eanLength-1] {
		digit := int(r - '0')
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	check := (10 - sum%10) % 10
	return check == int(ean[eanLength-1]-'0')
}
