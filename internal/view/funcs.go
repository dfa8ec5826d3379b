package view

import (
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// Funcs returns the template helpers shared by every page.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate": formatDate,
		"money":      Money,
		"liters":     Liters,
		"percent":    Percent,
		"signed":     Signed,
		"isNeg":      func(d decimal.Decimal) bool { return d.IsNegative() },
		"isZero":     func(d decimal.Decimal) bool { return d.IsZero() },
		"upper":      strings.ToUpper,
		"title": func(s string) string {
			s = strings.ReplaceAll(s, "_", " ")
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
		"add": func(a, b int) int { return a + b },
	}
}

// Money formats an amount with thousands separators and two decimals.
func Money(d decimal.Decimal) string {
	return printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

// Liters formats a volume with thousands separators and two decimals.
func Liters(d decimal.Decimal) string {
	return printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2))) + " L"
}

// Percent formats a percentage with two decimals.
func Percent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

// Signed prefixes positive amounts with "+" so variances read naturally.
func Signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + Money(d)
	}
	return Money(d)
}
