package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExportCacheMetrics(t *testing.T) {
	solr := newFakeSolr(t)
	solr.respond("/core_od_search/export", http.StatusOK, odExportResponse)

	router := newTestPortal(t, solr).newRouter()

	misses := testutil.ToFloat64(exportCacheTotal.WithLabelValues("od", "miss"))
	hits := testutil.ToFloat64(exportCacheTotal.WithLabelValues("od", "hit"))

	doRequest(router, "GET", "/en/od/export/?search_text=metrics")
	doRequest(router, "GET", "/en/od/export/?search_text=metrics")

	if got := testutil.ToFloat64(exportCacheTotal.WithLabelValues("od", "miss")) - misses; got != 1 {
		t.Errorf("expected one miss, got %v", got)
	}

	if got := testutil.ToFloat64(exportCacheTotal.WithLabelValues("od", "hit")) - hits; got != 1 {
		t.Errorf("expected one hit, got %v", got)
	}
}

func TestObserveSolrRequest(t *testing.T) {
	before := testutil.CollectAndCount(solrRequestDuration)

	observeSolrRequest("core_metrics_test", "select", "ok", 20*time.Millisecond)

	if got := testutil.CollectAndCount(solrRequestDuration); got != before+1 {
		t.Errorf("expected a new series, got %d after %d", got, before)
	}
}
