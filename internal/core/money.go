// Package core provides money parsing and handling utilities.
//
// Money and Quantity are fixed-point values stored as scaled integers so
// that sums never drift. Conversion to float happens only for display.
package core

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	// MoneyScale is the divisor between Money.Cents and the decimal amount.
	MoneyScale = 100
	// QuantityScale is the divisor between Quantity.Milli and the decimal quantity.
	QuantityScale = 1000

	moneyDigits    = 2
	quantityDigits = 3
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

type (
	Money struct {
		Cents int64
	}

	Quantity struct {
		Milli int64
	}
)

// Units is a quantity of exactly one.
var Units = Quantity{Milli: QuantityScale}

// ParseMoney converts a decimal string to Money.
//
// Both dot (12.34) and comma (12,34) separators are accepted. At most two
// fractional digits are allowed; anything else, including signs and
// exponents, is rejected. Zero is a valid amount.
//
// Examples:
//
//	ParseMoney("12.34") -> 1234 cents
//	ParseMoney("0")     -> 0 cents
//	ParseMoney("13.e7") -> ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	v, err := parseFixed(s, moneyDigits)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: v}, nil
}

// ParseQuantity converts a decimal string with up to three fractional
// digits to a Quantity. The result must be positive.
func ParseQuantity(s string) (Quantity, error) {
	v, err := parseFixed(s, quantityDigits)
	if err != nil || v <= 0 {
		return Quantity{}, ErrInvalidQuantity
	}
	return Quantity{Milli: v}, nil
}

// parseFixed parses a non-negative decimal into an integer scaled by
// 10^digits, rejecting inputs with more fractional digits than allowed.
func parseFixed(s string, digits int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	s = strings.ReplaceAll(s, ",", ".")

	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if hasDot && fracPart == "" {
		return 0, strconv.ErrSyntax
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > digits || !allDigits(intPart) || !allDigits(fracPart) {
		return 0, strconv.ErrSyntax
	}

	scale := int64(1)
	for i := 0; i < digits; i++ {
		scale *= 10
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, err
	}
	if iv > (1<<63-1)/scale {
		return 0, strconv.ErrRange
	}

	var fv int64
	for i := 0; i < digits; i++ {
		fv *= 10
		if i < len(fracPart) {
			fv += int64(fracPart[i] - '0')
		}
	}
	return iv*scale + fv, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Float returns the decimal value for display purposes.
// Use Cents for calculations to avoid floating-point drift.
func (m Money) Float() float64 {
	return float64(m.Cents) / MoneyScale
}

// String renders the amount with exactly two decimals, e.g. "12.30".
func (m Money) String() string {
	return formatScaled(m.Cents, MoneyScale, moneyDigits)
}

// Format renders the amount with thousands separators, e.g. "1,234.50".
func (m Money) Format() string {
	return humanize.FormatFloat("#,###.##", m.Float())
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// PerUnit divides the amount by q, rounding half away from zero.
// A non-positive quantity is treated as one unit.
func (m Money) PerUnit(q Quantity) Money {
	if q.Milli <= 0 {
		return m
	}
	return Money{Cents: divRound(m.Cents*QuantityScale, q.Milli)}
}

// MulQuantity multiplies a unit price by q, rounding half away from zero.
func (m Money) MulQuantity(q Quantity) Money {
	return Money{Cents: divRound(m.Cents*q.Milli, QuantityScale)}
}

func (q Quantity) Float() float64 {
	return float64(q.Milli) / QuantityScale
}

// String renders the quantity with three decimals, e.g. "1.500".
func (q Quantity) String() string {
	return formatScaled(q.Milli, QuantityScale, quantityDigits)
}

func (q Quantity) Format() string {
	return humanize.FormatFloat("#,###.###", q.Float())
}

// divRound divides a by b (b > 0) rounding half away from zero.
func divRound(a, b int64) int64 {
	if a < 0 {
		return -divRound(-a, b)
	}
	return (a*2 + b) / (b * 2)
}

func formatScaled(v, scale int64, digits int) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	frac := strconv.FormatInt(v%scale, 10)
	for len(frac) < digits {
		frac = "0" + frac
	}
	return sign + strconv.FormatInt(v/scale, 10) + "." + frac
}
