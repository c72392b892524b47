package httpapi

import (
	"encoding/json"
	"net/http"
)

// errMsg is the stable {code, message} error body every failing
// endpoint returns, grounded on handler_serializer.h's ErrMsg.
type errMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errMsg{Code: code, Message: message})
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	writeError(w, http.StatusMethodNotAllowed, "invalidMethod", "Invalid method")
}
