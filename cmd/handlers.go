package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uvalib/virgo4-jwt/v4jwt"
)

const htmlContentType = "text/html; charset=utf-8"

func (p *portalContext) searchPageHandler(lang, slug string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl := clientContext{}
		cl.init(p, c, lang)

		s := searchContext{}
		s.init(p, &cl, slug)

		cl.logRequest()

		ttl := time.Duration(s.dataset.def.PageCache) * time.Second
		key := p.pages.key(slug, lang, "html", s.query)

		resp := searchResponse{status: http.StatusOK}

		status, body, err := p.pages.fetch(cl.ginCtxContext(), slug, key, ttl, func() (int, []byte, error) {
			resp = s.handleSearchRequest()
			if resp.err != nil {
				return resp.status, nil, resp.err
			}

			page, err := p.templates.render("search.html", resp.data)
			if err != nil {
				resp = searchResponse{status: http.StatusInternalServerError, err: err}
				return resp.status, nil, err
			}

			return resp.status, page, nil
		})

		cl.logResponse(resp)

		if err != nil {
			p.renderError(c, &cl, status, "SearchError", datasetPath(cl.otherLanguage(), slug))
			return
		}

		c.Data(status, htmlContentType, body)
	}
}

func (p *portalContext) searchAPIHandler(lang, slug string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl := clientContext{}
		cl.init(p, c, lang)

		s := searchContext{}
		s.init(p, &cl, slug)

		cl.logRequest()
		resp := s.handleSearchRequest()
		cl.logResponse(resp)

		if resp.err != nil {
			c.JSON(resp.status, gin.H{"error": cl.localize("SearchError")})
			return
		}

		c.JSON(resp.status, resp.data)
	}
}

func (p *portalContext) exportHandler(lang, slug string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl := clientContext{}
		cl.init(p, c, lang)

		s := searchContext{}
		s.init(p, &cl, slug)

		cl.logRequest()
		resp := s.handleExportRequest()
		cl.logResponse(resp)

		if resp.err != nil {
			messageID := "SearchError"
			if resp.status == http.StatusNotFound {
				messageID = "PageNotFound"
			}
			p.renderError(c, &cl, resp.status, messageID, "")
			return
		}

		f := resp.data.(exportFile)

		if target := p.exports.redirectURL(f); target != "" {
			c.Redirect(http.StatusFound, target)
			return
		}

		c.FileAttachment(f.Path, fmt.Sprintf("%s_%s", slug, f.Name))
	}
}

func (p *portalContext) recordHandler(lang, slug string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl := clientContext{}
		cl.init(p, c, lang)

		s := searchContext{}
		s.init(p, &cl, slug)

		id := c.Param("id")

		cl.logRequest()
		resp := s.handleRecordRequest(id)
		cl.logResponse(resp)

		if resp.err != nil {
			messageID := "SearchError"
			if resp.status == http.StatusNotFound {
				messageID = "RecordNotFound"
			}
			p.renderError(c, &cl, resp.status, messageID, recordPath(cl.otherLanguage(), slug, id))
			return
		}

		p.renderPage(c, &cl, resp.status, "record.html", resp.data)
	}
}

func (p *portalContext) notFoundHandler(c *gin.Context) {
	lang := "en"
	if strings.HasPrefix(c.Request.URL.Path, "/fr/") || c.Request.URL.Path == "/fr" {
		lang = "fr"
	}

	cl := clientContext{}
	cl.init(p, c, lang)

	cl.logRequest()
	cl.logResponse(searchResponse{status: http.StatusNotFound, err: errors.New("no such route")})

	p.renderError(c, &cl, http.StatusNotFound, "PageNotFound", "")
}

func (p *portalContext) rootHandler(c *gin.Context) {
	c.Redirect(http.StatusFound, datasetPath(p.config.Service.Languages[0], p.config.Service.DefaultDataset))
}

func (p *portalContext) ignoreHandler(c *gin.Context) {
}

func (p *portalContext) versionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, p.version)
}

func (p *portalContext) identifyHandler(c *gin.Context) {
	lang := c.DefaultQuery("lang", p.config.Service.Languages[0])
	if sliceContainsString(p.config.Service.Languages, lang, false) == false {
		lang = p.config.Service.Languages[0]
	}

	cl := clientContext{}
	cl.init(p, c, lang)

	var identities []DatasetIdentity

	for _, slug := range p.datasets.slugs() {
		s := searchContext{}
		s.init(p, &cl, slug)

		identities = append(identities, s.identity())
	}

	c.JSON(http.StatusOK, identities)
}

func (p *portalContext) healthCheckHandler(c *gin.Context) {
	cl := clientContext{}
	cl.init(p, c, "")

	// build response

	internalServiceError := false

	type hcResp struct {
		Healthy bool   `json:"healthy"`
		Message string `json:"message,omitempty"`
	}

	hcMap := make(map[string]hcResp)

	for _, slug := range p.datasets.slugs() {
		hc := hcResp{Healthy: true}

		if err := p.cores[slug].ping(cl.ginCtxContext(), cl.logger); err != nil {
			internalServiceError = true
			hc = hcResp{Healthy: false, Message: err.Error()}
		}

		hcMap["solr:"+slug] = hc
	}

	if p.pages.enabled() == true {
		hc := hcResp{Healthy: true}

		if err := p.pages.client.Ping(cl.ginCtxContext()).Err(); err != nil {
			internalServiceError = true
			hc = hcResp{Healthy: false, Message: err.Error()}
		}

		hcMap["redis"] = hc
	}

	hcStatus := http.StatusOK
	if internalServiceError == true {
		hcStatus = http.StatusInternalServerError
	}

	c.JSON(hcStatus, hcMap)
}

func (p *portalContext) purgeExportCacheHandler(c *gin.Context) {
	cl := clientContext{}
	cl.init(p, c, "")

	cl.logRequest()

	removed, err := p.exports.purge()
	if err != nil {
		resp := searchResponse{status: http.StatusInternalServerError, err: err}
		cl.logResponse(resp)
		c.JSON(resp.status, gin.H{"removed": removed, "error": err.Error()})
		return
	}

	cl.logResponse(searchResponse{status: http.StatusOK})

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (p *portalContext) renderPage(c *gin.Context, cl *clientContext, status int, name string, data interface{}) {
	page, err := p.templates.render(name, data)
	if err != nil {
		cl.err("[RENDER] %s", err.Error())
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	c.Data(status, htmlContentType, page)
}

func (p *portalContext) renderError(c *gin.Context, cl *clientContext, status int, messageID, otherLanguageURL string) {
	page := ErrorPage{
		Language:         cl.lang,
		Status:           status,
		Title:            cl.localize(messageID),
		OtherLanguageURL: otherLanguageURL,
	}

	p.renderPage(c, cl, status, "error.html", page)
}

func getBearerToken(authorization string) (string, error) {
	components := strings.Split(strings.Join(strings.Fields(authorization), " "), " ")

	// must have two components, the first of which is "Bearer", and the second a non-empty token
	if len(components) != 2 || components[0] != "Bearer" || components[1] == "" {
		return "", fmt.Errorf("invalid Authorization header: [%s]", authorization)
	}

	token := components[1]

	if token == "undefined" {
		return "", errors.New("bearer token is undefined")
	}

	return token, nil
}

func (p *portalContext) authenticateHandler(c *gin.Context) {
	token, err := getBearerToken(c.GetHeader("Authorization"))
	if err != nil {
		p.logger.Warnf("[AUTH] authentication failed: [%s]", err.Error())
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := v4jwt.Validate(token, p.config.Service.JWTKey)
	if err != nil {
		p.logger.Warnf("[AUTH] JWT signature is invalid: %s", err.Error())
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	c.Set("token", token)
	c.Set("claims", claims)
}

func (p *portalContext) adminHandler(c *gin.Context) {
	val, ok := c.Get("claims")
	if ok == false {
		p.logger.Warnf("[AUTH] no claims")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims := val.(*v4jwt.V4Claims)

	if claims.Role.String() != "admin" {
		p.logger.Warnf("[AUTH] insufficient permissions for %s", claims.UserID)
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
}
