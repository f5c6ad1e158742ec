package main

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
)

type queryLogEntry struct {
	Path      string              `json:"path"`
	Timestamp string              `json:"timestamp"`
	Status    int                 `json:"status"`
	Params    map[string][]string `json:"params"`
}

// queryLogger records the search parameters of each request to a dataset,
// for usage reporting
func (p *portalContext) queryLogger(slug string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		entry := queryLogEntry{
			Path:      c.Request.URL.Path,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Status:    c.Writer.Status(),
			Params:    c.Request.URL.Query(),
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return
		}

		p.logger.Infow("[QUERY] "+string(data), "dataset", slug)
	}
}
