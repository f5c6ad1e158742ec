package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type portalConfigService struct {
	Port           string   `yaml:"port" json:"port,omitempty"`
	JWTKey         string   `yaml:"jwt_key" json:"-"`
	DefaultDataset string   `yaml:"default_dataset" json:"default_dataset,omitempty"`
	Languages      []string `yaml:"languages" json:"languages,omitempty"`
	TemplateDir    string   `yaml:"template_dir" json:"template_dir,omitempty"`
	AssetDir       string   `yaml:"asset_dir" json:"asset_dir,omitempty"`
	Pprof          bool     `yaml:"pprof" json:"pprof,omitempty"`
}

type portalConfigLogging struct {
	Level string `yaml:"level" json:"level,omitempty"`
}

type portalConfigSolr struct {
	Host           string `yaml:"host" json:"host,omitempty"`
	ConnTimeout    string `yaml:"conn_timeout" json:"conn_timeout,omitempty"`
	ReadTimeout    string `yaml:"read_timeout" json:"read_timeout,omitempty"`
	ValidateSchema bool   `yaml:"validate_schema" json:"validate_schema,omitempty"`
}

type portalConfigDatasets struct {
	Dir     string   `yaml:"dir" json:"dir,omitempty"`
	Enabled []string `yaml:"enabled" json:"enabled,omitempty"`
}

type portalConfigExport struct {
	CacheDir        string        `yaml:"cache_dir" json:"cache_dir,omitempty"`
	CacheURL        string        `yaml:"cache_url" json:"cache_url,omitempty"`
	MaxAge          time.Duration `yaml:"max_age" json:"max_age,omitempty"`
	JanitorInterval time.Duration `yaml:"janitor_interval" json:"janitor_interval,omitempty"`
	JanitorAge      time.Duration `yaml:"janitor_age" json:"janitor_age,omitempty"`
}

type portalConfigRedis struct {
	URL       string `yaml:"url" json:"-"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix,omitempty"`
}

type portalConfigMail struct {
	Host     string `yaml:"host" json:"host,omitempty"`
	Port     int    `yaml:"port" json:"port,omitempty"`
	Username string `yaml:"username" json:"username,omitempty"`
	Password string `yaml:"password" json:"-"`
	From     string `yaml:"from" json:"from,omitempty"`
	FromName string `yaml:"from_name" json:"from_name,omitempty"`
}

type portalConfigStatusChange struct {
	Dataset     string `yaml:"dataset" json:"dataset,omitempty"`
	StatusField string `yaml:"status_field" json:"status_field,omitempty"`
}

type portalConfig struct {
	Service      portalConfigService      `yaml:"service" json:"service"`
	Logging      portalConfigLogging      `yaml:"logging" json:"logging"`
	Solr         portalConfigSolr         `yaml:"solr" json:"solr"`
	Datasets     portalConfigDatasets     `yaml:"datasets" json:"datasets"`
	Export       portalConfigExport       `yaml:"export" json:"export"`
	Redis        portalConfigRedis        `yaml:"redis" json:"redis"`
	Mail         portalConfigMail         `yaml:"mail" json:"mail"`
	StatusChange portalConfigStatusChange `yaml:"status_change" json:"status_change"`
}

// replaces ${VAR} and ${VAR:-default} with environment variable values
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

func currentEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}

	return "local"
}

func defaultConfigPath(env string) string {
	return filepath.Join("config", fmt.Sprintf("%s.yaml", env))
}

func (c *portalConfig) applyDefaults() {
	if c.Service.Port == "" {
		c.Service.Port = "8080"
	}

	if len(c.Service.Languages) == 0 {
		c.Service.Languages = []string{"en", "fr"}
	}

	if c.Service.DefaultDataset == "" {
		c.Service.DefaultDataset = "od"
	}

	if c.Service.AssetDir == "" {
		c.Service.AssetDir = "./assets"
	}

	if c.Datasets.Dir == "" {
		c.Datasets.Dir = "datasets"
	}

	if c.Export.CacheDir == "" {
		c.Export.CacheDir = filepath.Join(os.TempDir(), "ogc-search-export")
	}

	if c.Export.MaxAge <= 0 {
		c.Export.MaxAge = 600 * time.Second
	}

	if c.Export.JanitorInterval <= 0 {
		c.Export.JanitorInterval = 5 * time.Minute
	}

	if c.Export.JanitorAge <= 0 {
		c.Export.JanitorAge = 30 * time.Minute
	}

	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "ogc-search:page:"
	}

	if c.Mail.Host == "" {
		c.Mail.Host = "localhost"
	}

	if c.Mail.Port <= 0 {
		c.Mail.Port = 25
	}

	if c.StatusChange.Dataset == "" {
		c.StatusChange.Dataset = "sd"
	}

	if c.StatusChange.StatusField == "" {
		c.StatusChange.StatusField = "status_s"
	}
}

func (c *portalConfig) validate() error {
	if c.Solr.Host == "" {
		return fmt.Errorf("solr.host is required")
	}

	if isValidURL(c.Solr.Host) == false {
		return fmt.Errorf("solr.host is not a valid url: %q", c.Solr.Host)
	}

	if c.Export.CacheURL != "" && isValidURL(c.Export.CacheURL) == false {
		return fmt.Errorf("export.cache_url is not a valid url: %q", c.Export.CacheURL)
	}

	for _, lang := range c.Service.Languages {
		if lang != "en" && lang != "fr" {
			return fmt.Errorf("service.languages: unsupported language %q", lang)
		}
	}

	return nil
}

func parseConfig(data []byte) (*portalConfig, error) {
	var cfg portalConfig

	dec := yaml.NewDecoder(strings.NewReader(string(expandEnvVars(data))))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// optional convenience override
	if host := os.Getenv("OGC_SEARCH_WS_SOLR_HOST"); host != "" {
		cfg.Solr.Host = host
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func loadConfig(path string, logger *zap.SugaredLogger) (*portalConfig, error) {
	if path == "" {
		path = defaultConfigPath(currentEnv())
	}

	logger.Infof("[CONFIG] loading %s ...", path)

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return nil, err
	}

	if bytes, err := json.Marshal(cfg); err == nil {
		logger.Infof("[CONFIG] composite json: %s", string(bytes))
	}

	return cfg, nil
}
