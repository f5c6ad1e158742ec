package main

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// display formatting for document values

var (
	englishPrinter = message.NewPrinter(language.MustParse("en-CA"))
	frenchPrinter  = message.NewPrinter(language.CanadianFrench)
)

func printerFor(lang string) *message.Printer {
	if lang == "fr" {
		return frenchPrinter
	}

	return englishPrinter
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}

	return 0, false
}

// formatMoney renders a dollar amount the way each official language writes
// it: "$1,234.50" and "1 234,50 $"
func formatMoney(v interface{}, lang string) string {
	amount, ok := toFloat(v)
	if ok == false {
		if lang == "fr" {
			return "-,-- $"
		}
		return "$-.--"
	}

	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	num := printerFor(lang).Sprintf("%.2f", amount)

	if lang == "fr" {
		return sign + num + " $"
	}

	return sign + "$" + num
}

// formatDate trims Solr timestamps to their date part
func formatDate(v interface{}) string {
	s, ok := v.(string)
	if ok == false {
		return ""
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02")
	}

	return s
}

// bilingualValue picks one side of an "English | Français" value
func bilingualValue(s, lang string) string {
	pieces := strings.Split(s, "|")

	if len(pieces) < 2 {
		return strings.TrimSpace(s)
	}

	if lang == "fr" {
		return strings.TrimSpace(pieces[1])
	}

	return strings.TrimSpace(pieces[0])
}
