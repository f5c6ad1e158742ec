package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/nicksnyder/go-i18n/v2/i18n"
)

//go:embed templates/*.html
var templateFiles embed.FS

type portalTemplates struct {
	set *template.Template
}

func templateFuncs(p *portalContext) template.FuncMap {
	return template.FuncMap{
		// t localizes a message id into the page language
		"t": func(lang, id string) string {
			localizer := i18n.NewLocalizer(p.translations.bundle, lang)

			s, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: id})
			if err != nil {
				return id
			}

			return s
		},
		"tcount": func(lang, id string, count int) string {
			localizer := i18n.NewLocalizer(p.translations.bundle, lang)

			s, err := localizer.Localize(&i18n.LocalizeConfig{
				MessageID:    id,
				PluralCount:  count,
				TemplateData: map[string]interface{}{"Count": printerFor(lang).Sprintf("%d", count)},
			})
			if err != nil {
				return id
			}

			return s
		},
		"number": func(lang string, n int) string {
			return printerFor(lang).Sprintf("%d", n)
		},
	}
}

func loadTemplates(dir string, p *portalContext) (*portalTemplates, error) {
	var set *template.Template
	var err error

	base := template.New("portal").Funcs(templateFuncs(p))

	if dir != "" {
		set, err = base.ParseGlob(filepath.Join(dir, "*.html"))
	} else {
		set, err = base.ParseFS(templateFiles, "templates/*.html")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	for _, name := range []string{"search.html", "record.html", "error.html"} {
		if set.Lookup(name) == nil {
			return nil, fmt.Errorf("missing template %s", name)
		}
	}

	return &portalTemplates{set: set}, nil
}

func (t *portalTemplates) render(name string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer

	if err := t.set.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}

	return buf.Bytes(), nil
}
