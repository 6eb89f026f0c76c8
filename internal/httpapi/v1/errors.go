package v1

import (
    "errors"
    "log/slog"
    "net/http"

    "github.com/tinoosan/cashflow/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
    Error string `json:"error"`
    Code  string `json:"code,omitempty"`
    Field string `json:"field,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
    toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "bad_request") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }

// writeServiceErr maps domain errors onto HTTP statuses. Anything unknown is
// logged and reported as 500.
func writeServiceErr(w http.ResponseWriter, log *slog.Logger, err error) {
    var ve *errs.ValidationError
    var oe *errs.OriginNotFoundError
    var fe *errs.FetchError
    switch {
    case errors.As(err, &ve):
        toJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: ve.Error(), Code: "validation_error", Field: ve.Field})
    case errors.As(err, &oe):
        writeErr(w, http.StatusNotFound, oe.Error(), "origin_not_found")
    case errors.As(err, &fe):
        log.Warn("store read failed", "op", fe.Op, "err", fe.Err)
        writeErr(w, http.StatusBadGateway, "failed to load data", "fetch_error")
    case errors.Is(err, errs.ErrNotFound):
        notFound(w)
    case errors.Is(err, errs.ErrInvalid):
        badRequest(w, err.Error())
    case errors.Is(err, errs.ErrImmutable):
        writeErr(w, http.StatusUnprocessableEntity, err.Error(), "immutable")
    case errors.Is(err, errs.ErrUnprocessable):
        writeErr(w, http.StatusUnprocessableEntity, err.Error(), "unprocessable")
    case errors.Is(err, errs.ErrConflict):
        writeErr(w, http.StatusConflict, err.Error(), "conflict")
    case errors.Is(err, errs.ErrConcurrentWrite):
        writeErr(w, http.StatusConflict, "records changed concurrently, retry", "concurrent_write_conflict")
    case errors.Is(err, errs.ErrSuperseded):
        writeErr(w, http.StatusConflict, "a newer load replaced this one", "superseded")
    case errors.Is(err, errs.ErrForbidden):
        writeErr(w, http.StatusForbidden, err.Error(), "forbidden")
    default:
        log.Error("unhandled error", "err", err)
        writeErr(w, http.StatusInternalServerError, "internal_error", "internal_error")
    }
}

func (s *Server) notImplemented(w http.ResponseWriter, r *http.Request) {
    writeErr(w, http.StatusNotImplemented, "export is not available", "not_implemented")
}
