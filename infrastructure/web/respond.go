package web

import (
	"chat-relay/errors"
	pb "chat-relay/proto/chat"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug("Response not written", "error", err)
	}
}

// writeError maps the error taxonomy to a status code and a JSON body.
func writeError(log *slog.Logger, w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "status", status, "error", err)
	}
	writeJSON(log, w, status, pb.ErrorResponse{Code: http.StatusText(status), Message: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed body: %w", errors.ErrInvalidArgument, err)
	}
	return nil
}
