package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/contrib/static"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

// newRouter wires every enabled dataset, in every supported language, to
// its search, api, export and (optionally) record routes
func (p *portalContext) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedExtensions([]string{".csv"})))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowCredentials = true
	corsCfg.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsCfg))

	prom := ginprometheus.NewPrometheus("gin")

	// roundabout setup of /metrics endpoint to avoid double-gzip of response
	router.Use(prom.HandlerFunc())
	h := promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{DisableCompression: true}))

	router.GET(prom.MetricsPath, func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	})

	if p.config.Service.Pprof == true {
		pprof.Register(router)
	}

	router.GET("/favicon.ico", p.ignoreHandler)

	router.GET("/", p.rootHandler)
	router.GET("/version", p.versionHandler)
	router.GET("/identify", p.identifyHandler)
	router.GET("/healthcheck", p.healthCheckHandler)

	if admin := router.Group("/admin"); admin != nil {
		admin.DELETE("/export-cache", p.authenticateHandler, p.adminHandler, p.purgeExportCacheHandler)
	}

	for _, lang := range p.config.Service.Languages {
		for _, slug := range p.datasets.slugs() {
			p.addDatasetRoutes(router, lang, slug)
		}
	}

	router.Use(static.Serve("/static", static.LocalFile(p.config.Service.AssetDir, false)))

	router.NoRoute(p.notFoundHandler)

	return router
}

func (p *portalContext) addDatasetRoutes(router *gin.Engine, lang, slug string) {
	d := p.datasets.get(slug)

	var middleware []gin.HandlerFunc
	if d.LogQueries == true {
		middleware = append(middleware, p.queryLogger(slug))
	}

	pages := router.Group("/"+lang+"/"+slug, middleware...)

	pages.GET("/", p.searchPageHandler(lang, slug))

	if d.exportEnabled() == true {
		pages.GET("/export/", p.exportHandler(lang, slug))
	}

	if d.RecordView == true {
		pages.GET("/record/:id", p.recordHandler(lang, slug))
	}

	api := router.Group("/api/" + lang + "/" + slug)
	api.GET("/", p.searchAPIHandler(lang, slug))

	p.logger.Infof("[PORTAL] routes registered for /%s/%s/ (export = %v, record view = %v, query log = %v)",
		lang, slug, d.exportEnabled(), d.RecordView, d.LogQueries)
}
