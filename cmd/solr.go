package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// solrCore talks to the handlers of a single Solr core
type solrCore struct {
	name   string
	base   string // host/core
	client *http.Client
}

// solrStatusError carries the http status a failed Solr call should map to
type solrStatusError struct {
	status int
	msg    string
}

func (e *solrStatusError) Error() string {
	return e.msg
}

func solrErrorStatus(err error) int {
	var se *solrStatusError
	if errors.As(err, &se) {
		return se.status
	}

	return http.StatusInternalServerError
}

func newSolrClient(connTimeoutStr, readTimeoutStr string) *http.Client {
	connTimeout := timeoutWithMinimum(connTimeoutStr, 5)
	readTimeout := timeoutWithMinimum(readTimeoutStr, 5)

	return &http.Client{
		Timeout: time.Duration(readTimeout) * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   time.Duration(connTimeout) * time.Second,
				KeepAlive: 60 * time.Second,
			}).DialContext,
			MaxIdleConns:        100, // we are hitting one solr host, so
			MaxIdleConnsPerHost: 100, // these two values can be the same
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func newSolrCore(host, core string, client *http.Client) *solrCore {
	return &solrCore{
		name:   core,
		base:   fmt.Sprintf("%s/%s", strings.TrimRight(host, "/"), core),
		client: client,
	}
}

func (c *solrCore) url(handler string) string {
	return fmt.Sprintf("%s/%s", c.base, strings.TrimLeft(handler, "/"))
}

func convertFacets(res *solrResponse) error {
	// facet_counts holds facet_queries, facet_ranges, etc. alongside the
	// facet_fields block we care about; decode just that part.

	var facets solrFacetCounts

	cfg := &mapstructure.DecoderConfig{
		Metadata:   nil,
		Result:     &facets,
		TagName:    "json",
		ZeroFields: true,
	}

	dec, _ := mapstructure.NewDecoder(cfg)

	if err := dec.Decode(res.FacetsRaw); err != nil {
		return fmt.Errorf("failed to decode Solr facet map: %w", err)
	}

	res.Facets = facets

	return nil
}

func (c *solrCore) query(ctx context.Context, log *zap.SugaredLogger, req *solrRequest) (*solrResponse, error) {
	jsonBytes, jsonErr := json.Marshal(req.json)
	if jsonErr != nil {
		log.Errorf("Marshal() failed: %s", jsonErr.Error())
		return nil, fmt.Errorf("failed to marshal Solr JSON: %w", jsonErr)
	}

	url := c.url(req.handler)

	httpReq, reqErr := http.NewRequestWithContext(ctx, "GET", url, bytes.NewBuffer(jsonBytes))
	if reqErr != nil {
		log.Errorf("NewRequest() failed: %s", reqErr.Error())
		return nil, fmt.Errorf("failed to create Solr request: %w", reqErr)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	log.Debugf("[SOLR] req: [%s]", string(jsonBytes))
	log.Infof("[SOLR] req: [%s] q = [%s]", url, req.json.Params.Q)

	start := time.Now()
	res, resErr := c.client.Do(httpReq)
	elapsed := time.Since(start)
	elapsedMS := int64(elapsed / time.Millisecond)

	// external service failure logging (scenario 1)

	if resErr != nil {
		status := http.StatusBadGateway
		errMsg := resErr.Error()
		if strings.Contains(errMsg, "Timeout") || errors.Is(resErr, context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
			errMsg = fmt.Sprintf("%s timed out", url)
		} else if strings.Contains(errMsg, "connection refused") {
			status = http.StatusServiceUnavailable
			errMsg = fmt.Sprintf("%s refused connection", url)
		}

		observeSolrRequest(c.name, req.handler, "error", elapsed)

		log.Errorf("client.Do() failed: %s", resErr.Error())
		log.Errorf("Failed response from GET %s - %d:%s. Elapsed Time: %d (ms)", url, status, errMsg, elapsedMS)
		return nil, &solrStatusError{status: status, msg: "failed to receive Solr response"}
	}

	defer res.Body.Close()

	var solrRes solrResponse

	decoder := json.NewDecoder(res.Body)

	// external service failure logging (scenario 2)

	if decErr := decoder.Decode(&solrRes); decErr != nil {
		observeSolrRequest(c.name, req.handler, "error", elapsed)

		log.Errorf("Decode() failed: %s", decErr.Error())
		log.Errorf("Failed response from GET %s - %d:%s. Elapsed Time: %d (ms)", url, http.StatusInternalServerError, decErr.Error(), elapsedMS)
		return nil, &solrStatusError{status: http.StatusBadGateway, msg: "failed to decode Solr response"}
	}

	// external service success logging

	log.Infof("Successful Solr response from GET %s. Elapsed Time: %d (ms)", url, elapsedMS)

	logHeader := fmt.Sprintf("[SOLR] res: header: { status = %d, QTime = %d }", solrRes.ResponseHeader.Status, solrRes.ResponseHeader.QTime)

	// quick validation
	if solrRes.ResponseHeader.Status != 0 || res.StatusCode != http.StatusOK {
		observeSolrRequest(c.name, req.handler, "error", elapsed)

		log.Errorf("%s, error: { code = %d, msg = %s }", logHeader, solrRes.Error.Code, solrRes.Error.Msg)
		return nil, &solrStatusError{status: http.StatusBadGateway, msg: fmt.Sprintf("%d - %s", solrRes.Error.Code, solrRes.Error.Msg)}
	}

	observeSolrRequest(c.name, req.handler, "ok", elapsed)

	if solrRes.FacetsRaw != nil {
		if err := convertFacets(&solrRes); err != nil {
			log.Errorf("%s", err.Error())
			return nil, err
		}
	}

	log.Infof("%s, body: { start = %d, rows = %d, total = %d }", logHeader, solrRes.Response.Start, len(solrRes.Response.Docs), solrRes.Response.NumFound)

	return &solrRes, nil
}

func (c *solrCore) ping(ctx context.Context, log *zap.SugaredLogger) error {
	req := solrRequest{handler: "select"}

	req.json.Params.Q = "*:*"
	req.json.Params.Rows = 0
	req.json.Params.Wt = "json"

	_, err := c.query(ctx, log, &req)

	return err
}

func (c *solrCore) getJSON(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url(path), nil)
	if err != nil {
		return err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", c.url(path), res.StatusCode)
	}

	return json.NewDecoder(res.Body).Decode(v)
}
