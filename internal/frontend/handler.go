package frontend

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/vorot93/otterscan/internal/assets"
	"github.com/vorot93/otterscan/internal/httpx"
	"github.com/vorot93/otterscan/internal/routing"
	"github.com/vorot93/otterscan/internal/runtimeconfig"
)

// NotFoundBody is written for every 404 response.
const NotFoundBody = "<h1>404</h1><p>Not Found</p>"

// GzipETagSuffix is appended inside the quotes of an entry's ETag when the
// response is gzip encoded. Validators carrying it still match the entry.
const GzipETagSuffix = "-gzip"

const (
	cacheRevalidate = "no-cache"
	cacheAssets     = "public, max-age=3600"
	allowedMethods  = "GET, HEAD"
)

// Handler serves the embedded explorer and its runtime configuration.
type Handler struct {
	app    *assets.Store
	chains *assets.Store
	config []byte
	logger *slog.Logger
}

func NewHandler(app, chains *assets.Store, doc runtimeconfig.Document, logger *slog.Logger) (*Handler, error) {
	if app == nil || chains == nil {
		return nil, fmt.Errorf("both asset stores are required")
	}
	config, err := doc.JSON()
	if err != nil {
		return nil, fmt.Errorf("encode runtime config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		app:    app,
		chains: chains,
		config: config,
		logger: logger,
	}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", allowedMethods)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	route, ok := routing.Match(r.URL.Path)
	if !ok {
		h.notFound(w, r)
		return
	}

	switch route.Kind {
	case routing.KindConfig:
		h.write(w, r, "application/json", h.config)
	case routing.KindMainDocument, routing.KindAsset:
		entry, found := assets.Resolve(h.store(route.Target), route.Key)
		if !found {
			h.notFound(w, r)
			return
		}
		h.serveEntry(w, r, entry, cacheControl(route.Kind))
	default:
		h.notFound(w, r)
	}
}

func (h *Handler) store(target routing.Target) *assets.Store {
	switch target {
	case routing.TargetApp:
		return h.app
	case routing.TargetChains:
		return h.chains
	default:
		return nil
	}
}

func cacheControl(kind routing.Kind) string {
	if kind == routing.KindMainDocument {
		return cacheRevalidate
	}
	return cacheAssets
}

func (h *Handler) serveEntry(w http.ResponseWriter, r *http.Request, entry assets.Entry, cache string) {
	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Cache-Control", cache)
	header.Set("ETag", entry.ETag)

	if validator, ok := etagMatches(r.Header.Get("If-None-Match"), entry.ETag); ok {
		header.Set("ETag", validator)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	header.Set("Content-Type", entry.ContentType)
	header.Set("Content-Length", strconv.Itoa(len(entry.Body)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(entry.Body)
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	header := w.Header()
	header.Set("Content-Type", contentType)
	header.Set("Cache-Control", cacheRevalidate)
	header.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "no content for path", "path", r.URL.Path, "request_id", httpx.RequestID(r.Context()))

	header := w.Header()
	header.Set("Content-Type", "text/html; charset=utf-8")
	header.Set("Content-Length", strconv.Itoa(len(NotFoundBody)))
	w.WriteHeader(http.StatusNotFound)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write([]byte(NotFoundBody))
}

// etagMatches implements the weak comparison used for If-None-Match and
// returns the validator to echo on a 304, keeping the encoding suffix the
// client cached.
func etagMatches(header, etag string) (string, bool) {
	if header == "" {
		return "", false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return etag, true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag || stripEncodingSuffix(candidate) == etag {
			return candidate, true
		}
	}
	return "", false
}

func stripEncodingSuffix(tag string) string {
	if quoted := GzipETagSuffix + `"`; strings.HasSuffix(tag, quoted) {
		return strings.TrimSuffix(tag, quoted) + `"`
	}
	return strings.TrimSuffix(tag, GzipETagSuffix)
}
