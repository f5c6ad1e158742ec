package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// git commit used for this build; supplied at compile time
var gitCommit string

//go:embed i18n/*.toml
var translationFiles embed.FS

// message ids used by templates and handlers, validated at startup
var interfaceMessageIDs = []string{
	"PortalName",
	"SearchLabel",
	"SearchButton",
	"SortLabel",
	"ResultsFound",
	"NoResults",
	"ExportLabel",
	"PreviousPage",
	"NextPage",
	"ClearFilters",
	"RecordNotFound",
	"PageNotFound",
	"OtherLanguage",
	"SearchError",
}

type portalVersion struct {
	BuildVersion string `json:"build,omitempty"`
	GoVersion    string `json:"go_version,omitempty"`
	GitCommit    string `json:"git_commit,omitempty"`
}

type portalTranslations struct {
	bundle *i18n.Bundle
}

type portalContext struct {
	randomLock   sync.Mutex
	randomSource *rand.Rand
	config       *portalConfig
	logger       *zap.SugaredLogger
	translations portalTranslations
	version      portalVersion
	datasets     *datasetRegistry
	cores        map[string]*solrCore // by dataset slug
	exports      *exportCache
	pages        *pageCache
	templates    *portalTemplates
}

func (p *portalContext) initVersion() {
	buildVersion := "unknown"
	files, _ := filepath.Glob("buildtag.*")
	if len(files) == 1 {
		buildVersion = strings.Replace(files[0], "buildtag.", "", 1)
	}

	p.version = portalVersion{
		BuildVersion: buildVersion,
		GoVersion:    fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
		GitCommit:    gitCommit,
	}

	p.logger.Infof("[PORTAL] version.BuildVersion = [%s]", p.version.BuildVersion)
	p.logger.Infof("[PORTAL] version.GoVersion    = [%s]", p.version.GoVersion)
	p.logger.Infof("[PORTAL] version.GitCommit    = [%s]", p.version.GitCommit)
}

func (p *portalContext) initTranslations() error {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := translationFiles.ReadDir("i18n")
	if err != nil {
		return err
	}

	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(translationFiles, "i18n/"+f.Name()); err != nil {
			return fmt.Errorf("failed to load translations %s: %w", f.Name(), err)
		}
	}

	p.translations = portalTranslations{
		bundle: bundle,
	}

	return nil
}

func (p *portalContext) initDatasets() error {
	defs, err := loadDatasetDefinitions(p.config.Datasets.Dir, p.config.Datasets.Enabled)
	if err != nil {
		return err
	}

	if len(defs) == 0 {
		return fmt.Errorf("no datasets enabled in %s", p.config.Datasets.Dir)
	}

	p.datasets = newDatasetRegistry(defs, p.config.Service.Languages)

	// one shared client; every core lives on the same solr host
	client := newSolrClient(p.config.Solr.ConnTimeout, p.config.Solr.ReadTimeout)

	p.cores = make(map[string]*solrCore)

	for _, d := range defs {
		p.cores[d.Slug] = newSolrCore(p.config.Solr.Host, d.Solr.Core, client)
		p.logger.Infof("[PORTAL] dataset [%s] => solr core [%s]", d.Slug, p.cores[d.Slug].base)
	}

	return nil
}

func (p *portalContext) initTemplates() error {
	t, err := loadTemplates(p.config.Service.TemplateDir, p)
	if err != nil {
		return err
	}

	p.templates = t

	return nil
}

func (p *portalContext) initCaches() error {
	p.exports = newExportCache(p.config.Export, p.logger)
	p.exports.timeout = time.Duration(timeoutWithMinimum(p.config.Solr.ReadTimeout, 5)) * time.Second

	pages, err := newPageCache(p.config.Redis, p.logger)
	if err != nil {
		return err
	}

	p.pages = pages

	return nil
}

// validateConfig ensures the existence of required values, translations for
// every message id in every language, and optionally that every referenced
// Solr field exists in the live schema
func (p *portalContext) validateConfig(ctx context.Context) error {
	messageIDs := newStringValidator(p.logger)
	miscValues := newStringValidator(p.logger)

	for _, id := range interfaceMessageIDs {
		messageIDs.addValue(id)
	}

	miscValues.requireCondition(p.datasets.get(p.config.Service.DefaultDataset) != nil,
		fmt.Sprintf("default dataset [%s] is not enabled", p.config.Service.DefaultDataset))

	for _, slug := range p.datasets.slugs() {
		p.datasets.get(slug).validate(messageIDs, miscValues)
	}

	// validate xids can actually be translated

	for _, lang := range p.config.Service.Languages {
		localizer := i18n.NewLocalizer(p.translations.bundle, lang)
		for _, id := range messageIDs.Values() {
			_, tag, err := localizer.LocalizeWithTag(&i18n.LocalizeConfig{MessageID: id})
			if err != nil || tag.String() != lang {
				miscValues.fail("[%s] missing translation for message ID: [%s]", lang, id)
			}
		}
	}

	if p.config.Solr.ValidateSchema == true && miscValues.Invalid() == false {
		p.validateSchemas(ctx, miscValues)
	}

	if messageIDs.Invalid() || miscValues.Invalid() {
		p.logger.Errorf("[VALIDATE] exiting due to missing/incorrect field value(s) above")
		return errors.New("invalid configuration")
	}

	p.logger.Infof("[PORTAL] supported languages = [%s]", strings.Join(p.config.Service.Languages, ", "))
	p.logger.Infof("[PORTAL] enabled datasets    = [%s]", strings.Join(p.datasets.slugs(), ", "))

	return nil
}

func (p *portalContext) validateSchemas(ctx context.Context, v *stringValidator) {
	for _, slug := range p.datasets.slugs() {
		core := p.cores[slug]

		schema, err := core.fetchSchema(ctx)
		if err != nil {
			v.fail("dataset [%s]: %s", slug, err.Error())
			continue
		}

		for _, lang := range p.config.Service.Languages {
			for _, field := range schema.missing(p.datasets.view(slug, lang).allFields()) {
				v.fail("dataset [%s] (%s): field not found in Solr schema: [%s]", slug, lang, field)
			}
		}
	}
}

func initializePortal(ctx context.Context, cfg *portalConfig, logger *zap.SugaredLogger) (*portalContext, error) {
	p := portalContext{}

	p.config = cfg
	p.logger = logger
	p.randomSource = rand.New(rand.NewSource(time.Now().UnixNano()))

	p.initVersion()

	for _, step := range []func() error{p.initTranslations, p.initDatasets, p.initTemplates, p.initCaches} {
		if err := step(); err != nil {
			return nil, err
		}
	}

	if err := p.validateConfig(ctx); err != nil {
		return nil, err
	}

	return &p, nil
}

func (p *portalContext) newRequestID() string {
	p.randomLock.Lock()
	defer p.randomLock.Unlock()

	return fmt.Sprintf("%08x", p.randomSource.Uint32())
}
