package api

import (
	"encoding/json"
	"net/http"

	"leave-ledger/internal/apperror"

	"github.com/sirupsen/logrus"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Envelope struct {
	Ok    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Warn("write json failed")
	}
}

func success(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Ok: true, Data: data})
}

func fail(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, Envelope{Error: &ErrorBody{Code: code, Message: message, Details: details}})
}

// writeError renders err through the application error taxonomy. Anything
// unclassified becomes a logged 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	httpErr := apperror.ToHTTP(err)
	if httpErr.Status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		httpErr.Details = nil
	}
	fail(w, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}
