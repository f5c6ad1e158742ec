package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTemplateFuncs(t *testing.T) {
	p := newTestPortal(t, newFakeSolr(t))
	funcs := templateFuncs(p)

	tr := funcs["t"].(func(string, string) string)
	tcount := funcs["tcount"].(func(string, string, int) string)
	number := funcs["number"].(func(string, int) string)

	if got := tr("fr", "OtherLanguage"); got != "English" {
		t.Errorf("got %q", got)
	}

	if got := tr("en", "NoSuchMessage"); got != "NoSuchMessage" {
		t.Errorf("unknown ids should come back as is, got %q", got)
	}

	if got := tcount("en", "ResultsFound", 1); got != "1 record found" {
		t.Errorf("got %q", got)
	}

	if got := tcount("en", "ResultsFound", 1234); got != "1,234 records found" {
		t.Errorf("got %q", got)
	}

	if got := tcount("fr", "ResultsFound", 1); got != "1 enregistrement trouvé" {
		t.Errorf("got %q", got)
	}

	if got := number("en", 25000); got != "25,000" {
		t.Errorf("got %q", got)
	}
}

func TestLoadTemplatesFromDirectory(t *testing.T) {
	p := newTestPortal(t, newFakeSolr(t))

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "search.html"), []byte(`{{ t "en" "OtherLanguage" }}`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := loadTemplates(dir, p); err == nil || strings.Contains(err.Error(), "record.html") == false {
		t.Errorf("expected missing template error, got %v", err)
	}

	for _, name := range []string{"record.html", "error.html"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(`{{ .Name }}`), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tmpl, err := loadTemplates(dir, p)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	out, err := tmpl.render("search.html", nil)
	if err != nil || string(out) != "Français" {
		t.Errorf("got %q (%v)", out, err)
	}

	if _, err := tmpl.render("error.html", struct{}{}); err == nil {
		t.Errorf("expected render failure for a missing field")
	}
}
