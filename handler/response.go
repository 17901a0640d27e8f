package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mwantia/carupload/data"
)

// ResponseError is the body of every failed request.
type ResponseError struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	// Pending lists superseded records that still need pruning.
	Pending []string `json:"pending,omitempty"`
}

// ResponseMessage is returned by requests without a payload of their own.
type ResponseMessage struct {
	Message string `json:"message"`
}

// ResponseMeta is returned after a metadata document was stored.
type ResponseMeta struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	*data.MutationResult
}

// ResponseItems lists the metadata records of a namespace.
type ResponseItems struct {
	Items []*data.MetadataRecord `json:"items"`
}

func errorStatusCode(err error) int {
	switch {
	case data.IsCallerError(err):
		return http.StatusBadRequest
	case errors.Is(err, data.ErrPartialPrune):
		return http.StatusAccepted
	case errors.Is(err, data.ErrBackendUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) (int, ResponseError) {
	code := errorStatusCode(err)
	resp := ResponseError{
		Message: http.StatusText(code),
		Error:   err.Error(),
	}

	var pruneErr *data.PruneError
	if errors.As(err, &pruneErr) {
		resp.Pending = pruneErr.Failed
	}
	return code, resp
}

// metaResponse maps the outcome of a metadata write. A partial prune still
// stored the document, so the result is reported together with the error.
func metaResponse(result *data.MutationResult, err error) (int, any) {
	if err != nil && !errors.Is(err, data.ErrPartialPrune) {
		return errorResponse(err)
	}

	resp := ResponseMeta{
		Message:        "Metadata has been added",
		MutationResult: result,
	}
	if err != nil {
		resp.Message = "Metadata has been added; superseded records are pending"
		resp.Error = err.Error()
		return http.StatusAccepted, resp
	}
	return http.StatusCreated, resp
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, err error) {
	code, resp := errorResponse(err)
	respondJSON(w, code, resp)
}
