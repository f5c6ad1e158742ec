package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// fakeSolr answers Solr JSON requests with canned bodies keyed by url path,
// and remembers the params of every request it saw
type fakeSolr struct {
	server    *httptest.Server
	mu        sync.Mutex
	responses map[string]string
	statuses  map[string]int
	requests  map[string][]map[string]interface{}
}

func newFakeSolr(t *testing.T) *fakeSolr {
	t.Helper()

	f := &fakeSolr{
		responses: make(map[string]string),
		statuses:  make(map[string]int),
		requests:  make(map[string][]map[string]interface{}),
	}

	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeSolr) respond(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.responses[path] = body
	f.statuses[path] = status
}

func (f *fakeSolr) serve(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)

	var req struct {
		Params map[string]interface{} `json:"params"`
	}

	_ = json.Unmarshal(data, &req)

	f.mu.Lock()
	f.requests[r.URL.Path] = append(f.requests[r.URL.Path], req.Params)
	body, ok := f.responses[r.URL.Path]
	status := f.statuses[r.URL.Path]
	f.mu.Unlock()

	if ok == false {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

// lastParams returns the params of the most recent request to path
func (f *fakeSolr) lastParams(t *testing.T, path string) map[string]interface{} {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	reqs := f.requests[path]
	if len(reqs) == 0 {
		t.Fatalf("no solr request seen for %s", path)
	}

	return reqs[len(reqs)-1]
}

func (f *fakeSolr) requestCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.requests[path])
}

const odSearchResponse = `{
  "responseHeader": {"status": 0, "QTime": 3},
  "response": {
    "numFound": 25,
    "start": 0,
    "docs": [
      {
        "id": "0007a010-556d-4f83-bb8a-2b9c3a1f3ff4",
        "title_txt_en": "Water quality monitoring",
        "owner_org_title_txt_en": "Environment and Climate Change Canada",
        "keywords_txt_en": ["water", "lakes"],
        "last_modified_tdt": "2023-04-05T12:00:00Z"
      }
    ]
  },
  "facet_counts": {
    "facet_queries": {},
    "facet_fields": {
      "owner_org_title_en_s": ["Environment and Climate Change Canada", 20, "Health Canada", 5],
      "keywords_en_s": ["water", 25]
    }
  },
  "highlighting": {
    "0007a010-556d-4f83-bb8a-2b9c3a1f3ff4": {
      "title_txt_en": ["<mark class=\"highlight\">Water</mark> quality monitoring"]
    }
  }
}`

const odExportResponse = `{
  "responseHeader": {"status": 0},
  "response": {
    "numFound": 2,
    "docs": [
      {"id_s": "a1", "org_s": "ec", "title_en_s": "Water", "title_fr_s": "Eau"},
      {"id_s": "a2", "org_s": "hc", "title_en_s": "Health, safety", "title_fr_s": "Santé"}
    ]
  }
}`

const solrFailureResponse = `{
  "responseHeader": {"status": 400},
  "error": {"msg": "undefined field bogus", "code": 400}
}`

// newTestPortal starts a portal over the shipped od dataset definition,
// backed by a fake Solr
func newTestPortal(t *testing.T, solr *fakeSolr) *portalContext {
	t.Helper()

	cfg := &portalConfig{}
	cfg.Solr.Host = solr.server.URL
	cfg.Datasets.Dir = "../datasets"
	cfg.Datasets.Enabled = []string{"od"}
	cfg.Export.CacheDir = t.TempDir()
	cfg.Service.JWTKey = "test-key"
	cfg.applyDefaults()

	p, err := initializePortal(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("initializePortal failed: %v", err)
	}

	return p
}

func doRequest(router http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func containsAll(s string, subs ...string) string {
	for _, sub := range subs {
		if strings.Contains(s, sub) == false {
			return sub
		}
	}

	return ""
}
