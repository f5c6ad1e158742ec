package main

import (
	"strings"
	"testing"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{float64(1234.5), "$1,234.50"},
		{"99", "$99.00"},
		{float64(-12), "-$12.00"},
		{nil, "$-.--"},
	}

	for _, tt := range tests {
		if got := formatMoney(tt.in, "en"); got != tt.want {
			t.Errorf("formatMoney(%v, en) = %q, want %q", tt.in, got, tt.want)
		}
	}

	fr := formatMoney(float64(1234.5), "fr")
	if strings.HasSuffix(fr, " $") == false || strings.Contains(fr, ",50") == false {
		t.Errorf("unexpected french amount %q", fr)
	}

	if got := formatMoney("n/a", "fr"); got != "-,-- $" {
		t.Errorf("unexpected french placeholder %q", got)
	}
}

func TestFormatDate(t *testing.T) {
	if got := formatDate("2021-03-04T10:00:00Z"); got != "2021-03-04" {
		t.Errorf("got %q", got)
	}

	if got := formatDate("2021-03"); got != "2021-03" {
		t.Errorf("non timestamp values pass through, got %q", got)
	}

	if got := formatDate(12); got != "" {
		t.Errorf("non strings format as empty, got %q", got)
	}
}

func TestBilingualValue(t *testing.T) {
	if got := bilingualValue("Health Canada | Santé Canada", "fr"); got != "Santé Canada" {
		t.Errorf("got %q", got)
	}

	if got := bilingualValue("Health Canada | Santé Canada", "en"); got != "Health Canada" {
		t.Errorf("got %q", got)
	}

	if got := bilingualValue(" Canada ", "fr"); got != "Canada" {
		t.Errorf("got %q", got)
	}
}

func TestPrinterForNumbers(t *testing.T) {
	if got := printerFor("en").Sprintf("%d", 1234567); got != "1,234,567" {
		t.Errorf("got %q", got)
	}
}
