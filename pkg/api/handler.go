package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/hazyhaar/canon/pkg/canon"
	"github.com/hazyhaar/canon/pkg/kit"
)

const (
	maxBatchBody  = 64 << 10
	maxEnrichBody = 8 << 20
)

// NewRouter returns an http.Handler with all canon API routes.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()
	h := &handler{eps: newEndpoints(d), reg: d.Registry}

	mux.HandleFunc("POST /v1/canonicalize/batch", h.handleBatch)
	mux.HandleFunc("GET /v1/canonicalize/{domain}/{raw...}", h.handleCanonicalize)
	mux.HandleFunc("POST /v1/enrich", h.handleEnrich)
	mux.HandleFunc("GET /v1/domains", h.handleListDomains)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(kit.HTTPRequestID(mux))
}

type handler struct {
	eps endpoints
	reg *canon.Registry
}

// --- canonicalize single value ---

func (h *handler) handleCanonicalize(w http.ResponseWriter, r *http.Request) {
	domain := r.PathValue("domain")
	raw := r.PathValue("raw")

	resp, err := h.eps.canonicalize(kit.WithDomain(r.Context(), domain), &canonicalizeReq{
		Domain:  domain,
		Value:   raw,
		Explain: r.URL.Query().Get("explain") != "false",
	})
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- canonicalize batch ---

func (h *handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBatchBody)
	var req batchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.eps.batch(kit.WithDomain(r.Context(), req.Domain), &req)
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- enrich records ---

func (h *handler) handleEnrich(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEnrichBody)
	var req enrichReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.eps.enrich(r.Context(), &req)
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- list domains ---

func (h *handler) handleListDomains(w http.ResponseWriter, r *http.Request) {
	resp, err := h.eps.listDomains(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status  string `json:"status"`
	Domains int    `json:"domains"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Domains: h.reg.DomainCount(),
	})
}

// --- helpers ---

func writeEndpointError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, canon.ErrUnknownDomain):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmptyBatch), errors.Is(err, ErrBatchTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+kit.RequestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", kit.RequestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
