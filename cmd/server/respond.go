package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"example.com/microblog/internal/common"
	"example.com/microblog/internal/i18n"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logg.Error("http", "Failed to encode response", err)
	}
}

// statusFor maps a service error to its HTTP status and message key.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, i18n.MsgNotFound
	case errors.Is(err, common.ErrInvalidOperation), errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, i18n.MsgBadRequest
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict, i18n.MsgConflict
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, i18n.MsgUnauthorized
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, i18n.MsgInvalidToken
	case errors.Is(err, common.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, i18n.MsgUnavailable
	default:
		return http.StatusInternalServerError, i18n.MsgInternal
	}
}

// writeError responds with the localized message for err. Client errors also
// carry the error text as detail.
func writeError(w http.ResponseWriter, r *http.Request, module string, err error) {
	status, key := statusFor(err)
	writeErrorMessage(w, r, module, status, i18n.T(r.Context(), key), err)
}

func writeErrorMessage(w http.ResponseWriter, r *http.Request, module string, status int, msg string, err error) {
	body := map[string]string{"error": msg}
	if status >= http.StatusInternalServerError {
		logg.Error(module, r.Method+" "+r.URL.Path+" failed", err)
	} else {
		logg.Info(module, r.Method+" "+r.URL.Path+": "+err.Error())
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, module string, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		logg.Info(module, "Invalid request body")
		writeErrorMessage(w, r, module, http.StatusBadRequest, i18n.T(r.Context(), i18n.MsgBadRequest), err)
		return false
	}
	return true
}

// queryInt returns the integer query parameter name, or def when it is
// missing or malformed.
func queryInt(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil {
		return v
	}
	return def
}

func message(r *http.Request, key string, args ...any) string {
	return i18n.T(r.Context(), key, args...)
}
