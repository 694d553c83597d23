// Package handler exposes a persiston store over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stevemurr/persiston/record"
	"github.com/stevemurr/persiston/store"
)

// RequestIDHeader carries the per-request ID on every response.
const RequestIDHeader = "X-Request-Id"

// Handler holds the server dependencies and registers routes.
type Handler struct {
	store *store.Store
	log   *slog.Logger
	mux   *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// New creates a Handler and wires up all routes.
func New(s *store.Store, opts ...Option) *Handler {
	h := &Handler{store: s, log: slog.Default(), mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(h)
	}
	h.routes()
	return h
}

// ServeHTTP tags the request with an ID, dispatches it and logs the outcome.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)
	h.log.InfoContext(r.Context(), "http request",
		"id", id,
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start),
	)
}

func (h *Handler) routes() {
	// Health / status
	h.mux.HandleFunc("GET /", h.root)
	h.mux.HandleFunc("GET /health", h.health)

	h.mux.HandleFunc("GET /dataset", h.dataset)
	h.mux.HandleFunc("GET /collections", h.listCollections)
	h.mux.HandleFunc("GET /collections/{collection}/items", h.find)
	h.mux.HandleFunc("GET /collections/{collection}/items/one", h.findOne)
	h.mux.HandleFunc("GET /collections/{collection}/count", h.count)
	h.mux.HandleFunc("POST /collections/{collection}/items", h.insert)
	h.mux.HandleFunc("PATCH /collections/{collection}/items", h.update)
	h.mux.HandleFunc("DELETE /collections/{collection}/items", h.remove)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// writeStoreError maps a store failure to a status code. Bad query values are
// the caller's fault; everything else is an adapter failure.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, record.ErrUnsupported) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// Reserved query parameters. Every other parameter is a condition.
const (
	paramFields = "_fields"
	paramOne    = "_one"
)

// parseQuery turns URL parameters into conditions. A value that parses as a
// JSON literal is used as such, so ?age=18 matches the number and
// ?age="18" the string. Anything else is taken as a plain string.
func parseQuery(values url.Values) record.Query {
	q := record.Query{}
	for key, vals := range values {
		if strings.HasPrefix(key, "_") || len(vals) == 0 {
			continue
		}
		raw := vals[0]
		var v record.Value
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = record.String(raw)
		}
		q[key] = v
	}
	return q
}

func parseFields(values url.Values) []string {
	raw := values.Get(paramFields)
	if raw == "" {
		return nil
	}
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// queryOf converts a decoded JSON object into conditions.
func queryOf(o *record.Object) record.Query {
	q := record.Query{}
	o.Range(func(k string, v record.Value) bool {
		q[k] = v
		return true
	})
	return q
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	// Only match exact root path
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "persiston",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ---------- dataset ----------

func (h *Handler) dataset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot().Value())
}

func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request) {
	names := h.store.Names()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// ---------- reads ----------

func (h *Handler) find(w http.ResponseWriter, r *http.Request) {
	c := h.store.Collection(r.PathValue("collection"))
	params := r.URL.Query()
	recs, err := c.Find(parseQuery(params), parseFields(params)...)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) findOne(w http.ResponseWriter, r *http.Request) {
	c := h.store.Collection(r.PathValue("collection"))
	params := r.URL.Query()
	rec, err := c.FindOne(parseQuery(params), parseFields(params)...)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	c := h.store.Collection(r.PathValue("collection"))
	n, err := c.Count(parseQuery(r.URL.Query()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

// ---------- writes ----------

func (h *Handler) insert(w http.ResponseWriter, r *http.Request) {
	var body record.Value
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	var recs []*record.Object
	switch body.Kind() {
	case record.KindObject:
		o, _ := body.AsObject()
		recs = []*record.Object{o}
	case record.KindArray:
		var err error
		if recs, err = record.RecordsFrom(body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "body must be an object or an array of objects")
		return
	}

	c := h.store.Collection(r.PathValue("collection"))
	n, err := c.Insert(r.Context(), recs...)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"inserted": n})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query   *record.Object `json:"query"`
		Changes *record.Object `json:"changes"`
		One     bool           `json:"one"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Changes == nil || req.Changes.Len() == 0 {
		writeError(w, http.StatusBadRequest, "changes must be a non-empty object")
		return
	}

	c := h.store.Collection(r.PathValue("collection"))
	q := queryOf(req.Query)
	var (
		n   int
		err error
	)
	if req.One {
		n, err = c.UpdateOne(r.Context(), q, req.Changes)
	} else {
		n, err = c.Update(r.Context(), q, req.Changes)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	c := h.store.Collection(r.PathValue("collection"))
	params := r.URL.Query()
	q := parseQuery(params)
	var (
		n   int
		err error
	)
	if params.Get(paramOne) == "true" {
		n, err = c.RemoveOne(r.Context(), q)
	} else {
		n, err = c.Remove(r.Context(), q)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}
