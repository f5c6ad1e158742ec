package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/uvalib/virgo4-jwt/v4jwt"
	"go.uber.org/zap"
)

type clientContext struct {
	reqID     string             // internally generated
	start     time.Time          // internally set
	lang      string             // language from the route prefix
	claims    *v4jwt.V4Claims    // information about an admin user, if any
	localizer *i18n.Localizer    // per-request localization
	logger    *zap.SugaredLogger // tagged with the request id
	ginCtx    *gin.Context       // gin context
}

func (c *clientContext) init(p *portalContext, ctx *gin.Context, lang string) {
	c.ginCtx = ctx

	c.start = time.Now()
	c.reqID = p.newRequestID()
	c.logger = p.logger.With("req_id", c.reqID)

	// get claims, if any
	if ctx != nil {
		if val, ok := ctx.Get("claims"); ok == true {
			c.claims = val.(*v4jwt.V4Claims)
		}
	}

	c.lang = lang
	if c.lang == "" {
		c.lang = "en"
	}

	c.localizer = i18n.NewLocalizer(p.translations.bundle, c.lang)

	if ctx != nil {
		ctx.Header("Content-Language", c.lang)
	}
}

func (c *clientContext) logRequest() {
	c.log("------------------------------[ NEW REQUEST ]------------------------------")

	query := ""
	if c.ginCtx.Request.URL.RawQuery != "" {
		query = fmt.Sprintf("?%s", c.ginCtx.Request.URL.RawQuery)
	}

	claimsStr := ""
	if c.claims != nil {
		claimsStr = fmt.Sprintf("  [%s; %s]", c.claims.UserID, c.claims.Role)
	}

	c.log("[REQUEST] %s %s%s  (%s)%s", c.ginCtx.Request.Method, c.ginCtx.Request.URL.Path, query, c.lang, claimsStr)
}

func (c *clientContext) logResponse(resp searchResponse) {
	msg := fmt.Sprintf("[RESPONSE] status: %d, elapsed: %d (ms)", resp.status, int64(time.Since(c.start)/time.Millisecond))

	if resp.err != nil {
		msg = msg + fmt.Sprintf(", error: %s", resp.err.Error())
	}

	c.log("%s", msg)
}

func (c *clientContext) log(format string, args ...interface{}) {
	c.logger.Infof(format, args...)
}

func (c *clientContext) err(format string, args ...interface{}) {
	c.logger.Errorf(format, args...)
}

func (c *clientContext) debug(format string, args ...interface{}) {
	c.logger.Debugf(format, args...)
}

func (c *clientContext) localize(id string) string {
	if id == "" {
		return ""
	}

	s, err := c.localizer.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil {
		return id
	}

	return s
}

func (c *clientContext) ginCtxContext() context.Context {
	if c.ginCtx == nil || c.ginCtx.Request == nil {
		return context.Background()
	}

	return c.ginCtx.Request.Context()
}

func (c *clientContext) otherLanguage() string {
	if c.lang == "fr" {
		return "en"
	}

	return "fr"
}
