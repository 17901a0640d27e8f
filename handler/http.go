package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/pat"

	"github.com/mwantia/carupload/data"
	"github.com/mwantia/carupload/log"
	"github.com/mwantia/carupload/service"
)

const (
	// HeaderRequestID carries the request id in both directions.
	HeaderRequestID = "X-Request-Id"

	maxBodyBytes = 1 << 20
)

type requestIDKey struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type httpHandler struct {
	svc     *service.Service
	logger  *log.Logger
	metrics *Metrics
}

// NewRouter returns the HTTP routes served by carupload. pat matches routes
// by prefix in registration order.
func NewRouter(svc *service.Service, logger *log.Logger, metrics *Metrics) http.Handler {
	if logger == nil {
		logger = log.Discard()
	}
	h := &httpHandler{
		svc:     svc,
		logger:  logger,
		metrics: metrics,
	}

	r := pat.New()
	r.Add("GET", "/healthz", http.HandlerFunc(handleHealth))
	r.Add("GET", "/metrics", metrics.Handler())

	// GET /api/upload?type=&name=&car=&branch=&size=
	r.Add("GET", "/api/upload", h.wrap("upload", h.handleUpload))
	// PUT /api/meta/$name
	r.Add("PUT", "/api/meta/{name}", h.wrap("put_meta", h.handlePutMeta))
	// GET /api/meta/$name
	r.Add("GET", "/api/meta/{name}", h.wrap("list_meta", h.handleListMeta))
	// PUT /api/connections/$id?name=
	r.Add("PUT", "/api/connections/{id}", h.wrap("connect", h.handleConnect))
	// DELETE /api/connections/$id
	r.Add("DELETE", "/api/connections/{id}", h.wrap("disconnect", h.handleDisconnect))

	return r
}

// wrap assigns a request id, then logs and measures the request.
func (h *httpHandler) wrap(op string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			start = time.Now()
			rc    = &responseRecorder{ResponseWriter: w}
			id    = r.Header.Get(HeaderRequestID)
		)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		next.ServeHTTP(rc, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))

		d := time.Since(start)
		h.metrics.observe(op, rc.status, d)
		h.logger.Info("[%s] %s %s -> %d (%s)", id, r.Method, r.URL.Path, rc.status, d)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *httpHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := service.UploadRequest{
		Kind:   data.Kind(query.Get("type")),
		Name:   query.Get("name"),
		CID:    query.Get("car"),
		Branch: query.Get("branch"),
	}
	if value := query.Get("size"); value != "" {
		size, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			respondError(w, data.InvalidParameter("size"))
			return
		}
		req.Size = size
	}

	resp, err := h.svc.UploadURL(r.Context(), req)
	if err != nil {
		h.logError(r, err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *httpHandler) handlePutMeta(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get(":name")
	defer r.Body.Close()

	var doc service.MetaDocument
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&doc); err != nil {
		respondError(w, data.InvalidParameter("body"))
		return
	}

	result, err := h.svc.PutMeta(r.Context(), name, &doc)
	if err != nil {
		h.logError(r, err)
	}
	code, payload := metaResponse(result, err)
	respondJSON(w, code, payload)
}

func (h *httpHandler) handleListMeta(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.ListMeta(r.Context(), r.URL.Query().Get(":name"))
	if err != nil {
		h.logError(r, err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ResponseItems{Items: records})
}

func (h *httpHandler) handleConnect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if err := h.svc.Connect(r.Context(), query.Get(":id"), query.Get("name")); err != nil {
		h.logError(r, err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ResponseMessage{Message: "Connected."})
}

func (h *httpHandler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Disconnect(r.Context(), r.URL.Query().Get(":id")); err != nil {
		h.logError(r, err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ResponseMessage{Message: "Disconnected."})
}

func (h *httpHandler) logError(r *http.Request, err error) {
	if data.IsCallerError(err) {
		h.logger.Debug("[%s] Rejected request: %v", RequestID(r.Context()), err)
		return
	}
	h.logger.Error("[%s] Request failed: %v", RequestID(r.Context()), err)
}
