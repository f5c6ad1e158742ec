package main

import (
	"context"
	"crypto/sha1"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	exportFileSuffix   = ".csv"
	exportValueJoiner  = "|"
	utf8ByteOrderMark  = "\ufeff"
	exportTempFilePref = ".export-"

	// upper bound on a shared generation, overridden by the solr read timeout
	defaultExportTimeout = 60 * time.Second
)

// exportCache stores generated CSV files on disk, one per distinct query,
// expiring them after maxAge.  generation of a given file is shared by
// concurrent identical requests.
type exportCache struct {
	dir      string
	cacheURL string
	maxAge   time.Duration
	timeout  time.Duration
	logger   *zap.SugaredLogger
	group    singleflight.Group
	now      func() time.Time
}

// exportFile describes a cached export ready to serve
type exportFile struct {
	Path     string
	Name     string
	Relative string // path below the cache dir, for redirects
	Hit      bool
}

// exportGenerator writes the export contents, returning rows written and skipped
type exportGenerator func(ctx context.Context, w io.Writer) (int, int, error)

func newExportCache(cfg portalConfigExport, logger *zap.SugaredLogger) *exportCache {
	return &exportCache{
		dir:      cfg.CacheDir,
		cacheURL: strings.TrimRight(cfg.CacheURL, "/"),
		maxAge:   cfg.MaxAge,
		timeout:  defaultExportTimeout,
		logger:   logger,
		now:      time.Now,
	}
}

// exportCacheKey is the hex sha1 digest of the canonical query string
func exportCacheKey(query url.Values) string {
	sum := sha1.Sum([]byte(query.Encode()))
	return hex.EncodeToString(sum[:])
}

func (e *exportCache) locate(slug, lang, key string) exportFile {
	name := fmt.Sprintf("%s_%s%s", key, lang, exportFileSuffix)

	return exportFile{
		Path:     filepath.Join(e.dir, slug, name),
		Name:     name,
		Relative: slug + "/" + name,
	}
}

// redirectURL is where a cached file can be downloaded directly, if
// the cache directory is published
func (e *exportCache) redirectURL(f exportFile) string {
	if e.cacheURL == "" {
		return ""
	}

	return e.cacheURL + "/" + f.Relative
}

// fresh reports whether a usable cached file exists, removing a stale one
func (e *exportCache) fresh(slug string, f exportFile) bool {
	info, err := os.Stat(f.Path)
	if err != nil {
		return false
	}

	if e.now().Sub(info.ModTime()) < e.maxAge {
		return true
	}

	exportCacheTotal.WithLabelValues(slug, "expired").Inc()

	if err := os.Remove(f.Path); err != nil && errors.Is(err, os.ErrNotExist) == false {
		e.logger.Warnf("[EXPORT] unable to remove stale export %s: %s", f.Path, err.Error())
	}

	return false
}

// fetch returns the cached export for key, generating it if needed.  the
// shared generation does not inherit cancellation from the caller that
// started it; each caller stops waiting when its own context is done.
func (e *exportCache) fetch(ctx context.Context, slug, lang, key string, generate exportGenerator) (exportFile, error) {
	f := e.locate(slug, lang, key)

	ch := e.group.DoChan(f.Path, func() (interface{}, error) {
		if e.fresh(slug, f) == true {
			hit := f
			hit.Hit = true
			return hit, nil
		}

		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
		defer cancel()

		if err := e.generate(genCtx, slug, f, generate); err != nil {
			return exportFile{}, err
		}

		return f, nil
	})

	var result singleflight.Result

	select {
	case result = <-ch:
	case <-ctx.Done():
		return exportFile{}, ctx.Err()
	}

	if result.Err != nil {
		return exportFile{}, result.Err
	}

	res := result.Val.(exportFile)

	switch {
	case result.Shared == true:
		exportCacheTotal.WithLabelValues(slug, "shared").Inc()
	case res.Hit == true:
		exportCacheTotal.WithLabelValues(slug, "hit").Inc()
	default:
		exportCacheTotal.WithLabelValues(slug, "miss").Inc()
	}

	return res, nil
}

// generate writes to a temp file in the same directory and renames it
// into place, so readers never observe a partial export
func (e *exportCache) generate(ctx context.Context, slug string, f exportFile, generate exportGenerator) error {
	dir := filepath.Dir(f.Path)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, exportTempFilePref+"*")
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	defer os.Remove(tmp.Name())

	start := time.Now()

	rows, skipped, genErr := generate(ctx, tmp)

	if closeErr := tmp.Close(); genErr == nil {
		genErr = closeErr
	}

	if genErr != nil {
		return genErr
	}

	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("failed to store export file: %w", err)
	}

	if skipped > 0 {
		exportSkippedRows.WithLabelValues(slug).Add(float64(skipped))
	}

	e.logger.Infof("[EXPORT] wrote %s: %d row(s), %d skipped, %d (ms)", f.Path, rows, skipped, int64(time.Since(start)/time.Millisecond))

	return nil
}

// writeExportCSV writes a header row (BOM prefixed) followed by one row per
// document.  documents with values that are not valid UTF-8 are skipped.
// encoding/json already replaces invalid bytes in solr responses, so this
// only guards documents that did not come through the JSON decoder.
func writeExportCSV(w io.Writer, fields []string, docs []solrDocument) (int, int, error) {
	cw := csv.NewWriter(w)

	header := make([]string, len(fields))
	copy(header, fields)

	if len(header) > 0 {
		header[0] = utf8ByteOrderMark + header[0]
	}

	if err := cw.Write(header); err != nil {
		return 0, 0, err
	}

	rows := 0
	skipped := 0

	for _, doc := range docs {
		row, ok := exportRow(doc, fields)
		if ok == false {
			skipped++
			continue
		}

		if err := cw.Write(row); err != nil {
			return rows, skipped, err
		}

		rows++
	}

	cw.Flush()

	return rows, skipped, cw.Error()
}

func exportRow(doc solrDocument, fields []string) ([]string, bool) {
	row := make([]string, len(fields))

	for i, field := range fields {
		val := strings.Join(documentStrings(doc, field), exportValueJoiner)

		if utf8.ValidString(val) == false {
			return nil, false
		}

		row[i] = val
	}

	return row, true
}

// export search handling

func (s *searchContext) handleExportRequest() searchResponse {
	if s.dataset.def.exportEnabled() == false {
		return searchResponse{status: http.StatusNotFound, err: errors.New("export not available")}
	}

	s.parseParams()

	exports := s.portal.exports
	key := exportCacheKey(s.query)

	f, err := exports.fetch(s.client.ginCtxContext(), s.dataset.def.Slug, s.client.lang, key, s.generateExport)
	if err != nil {
		s.err("[EXPORT] export failed: %s", err.Error())
		return searchResponse{status: solrErrorStatus(err), err: err}
	}

	s.log("[EXPORT] %s (hit = %v)", f.Path, f.Hit)

	return searchResponse{status: http.StatusOK, data: f}
}

func (s *searchContext) generateExport(ctx context.Context, w io.Writer) (int, int, error) {
	if resp := s.performQuery(ctx, s.solrExportRequest()); resp.err != nil {
		return 0, 0, resp.err
	}

	return writeExportCSV(w, s.dataset.exportFields, s.solrRes.Response.Docs)
}
