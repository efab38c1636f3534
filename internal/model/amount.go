package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrEmptyAmount is returned by ParseAmount for blank input.
var ErrEmptyAmount = errors.New("empty amount")

// ErrInvalidAmount is returned by ParseAmount for text that is not a number.
var ErrInvalidAmount = errors.New("not a number")

var amountNoise = strings.NewReplacer(
	"$", "",
	"€", "",
	"£", "",
	" ", "",
	"\u00a0", "",
)

// groupedAmount matches an amount using comma thousands separators.
var groupedAmount = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+(\.\d*)?$`)

// ParseAmount parses an amount as printed on a statement.
//
// Currency symbols, comma thousands separators and spaces are ignored.
// Negative amounts may be written "-12.00", "(12.00)" or "12.00-". A trailing
// "CR" makes the amount positive and "DR" makes it negative, whatever other
// sign the text carries. Commas must group the integer part in threes, so
// European-style "1.234,56" is rejected rather than misread.
func ParseAmount(s string) (decimal.Decimal, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	invalid := fmt.Errorf("parsing amount %q: %w", s, ErrInvalidAmount)

	// 1 forces a credit, -1 a debit, 0 leaves the sign to the text.
	force := 0
	switch upper := strings.ToUpper(t); {
	case strings.HasSuffix(upper, "CR"):
		t = strings.TrimSpace(t[:len(t)-2])
		force = 1
	case strings.HasSuffix(upper, "DR"):
		t = strings.TrimSpace(t[:len(t)-2])
		force = -1
	}

	neg := false
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		t = t[1 : len(t)-1]
		neg = !neg
	}
	if strings.HasSuffix(t, "-") {
		t = t[:len(t)-1]
		neg = !neg
	}

	t = amountNoise.Replace(t)
	if strings.Contains(t, ",") {
		if !groupedAmount.MatchString(t) {
			return decimal.Zero, invalid
		}
		t = strings.ReplaceAll(t, ",", "")
	}
	t = strings.TrimPrefix(t, "+")
	if t == "" || t == "-" {
		return decimal.Zero, invalid
	}

	d, err := decimal.NewFromString(t)
	if err != nil {
		return decimal.Zero, invalid
	}
	if neg {
		d = d.Neg()
	}
	switch force {
	case 1:
		d = d.Abs()
	case -1:
		d = d.Abs().Neg()
	}
	return d, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"02 Jan 2006",
	"2 Jan 2006",
}

// ParseDate tries the date layouts commonly printed on statements.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
