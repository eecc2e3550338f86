package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sandeepkv93/chewy/internal/calsync"
	"github.com/sandeepkv93/chewy/internal/model"
	"github.com/sandeepkv93/chewy/internal/scheduler"
	"github.com/sandeepkv93/chewy/internal/service"
	"github.com/sandeepkv93/chewy/internal/storage"
)

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errBadRequest
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

// fail maps domain errors onto status codes. Unknown errors are logged and
// hidden behind a generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, service.ErrInvalid),
		errors.Is(err, scheduler.ErrRejectedInput),
		errors.Is(err, model.ErrInvalidInterval),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrInvalidClock),
		errors.Is(err, model.ErrInvalidRecurrence),
		errors.Is(err, model.ErrInvalidKind),
		errors.Is(err, calsync.ErrBadTimestamp):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrEventNotManaged):
		writeError(w, http.StatusForbidden, "can only modify managed events")
	case errors.Is(err, service.ErrSyncUnavailable), errors.Is(err, calsync.ErrNoCalendarDir):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
