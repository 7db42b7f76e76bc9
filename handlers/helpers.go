package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"todoapi/models"
	"todoapi/utils"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
)

const (
	MsgInvalidBody    = "Invalid request body"
	MsgTodoNotFound   = "Todo not found"
	MsgNotFound       = "Resource not found"
	MsgInternal       = "Internal server error"
	MsgMethodNotAllow = "Method not allowed"
	MsgRateLimited    = "Rate limit exceeded"

	maxBodyBytes = 1 << 20
)

var errInvalidBody = errors.New("invalid request body")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("encode response", "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":"Internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.Response{Success: false, Error: msg})
}

// writeStoreError maps a gateway error kind to its HTTP status. Storage
// details are logged and never sent to the client.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, utils.ErrValidation):
		writeError(w, http.StatusBadRequest, utils.ValidationMessage(err))
	case errors.Is(err, utils.ErrNotFound):
		writeError(w, http.StatusNotFound, MsgTodoNotFound)
	default:
		log.Error("storage error", "request_id", RequestID(r.Context()), "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, MsgInternal)
	}
}

// todoID reads the {id} path segment. The route only admits digits, so the
// only failures left are zero and overflow, both of which name no todo.
func todoID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// readObject decodes a JSON object body into its raw fields. An empty body is
// an empty object.
func readObject(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errInvalidBody
	}
	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(body)) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, errInvalidBody
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// optionalString decodes a field that may be absent, null or a string.
func optionalString(raw json.RawMessage, present bool) (*string, error) {
	if !present || isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errInvalidBody
	}
	return &s, nil
}
