package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrors answers with {"errors": [...]}.
func writeErrors(w http.ResponseWriter, status int, messages ...string) {
	if messages == nil {
		messages = []string{}
	}
	writeJSON(w, status, map[string][]string{"errors": messages})
}

func itoa(i int) string { return strconv.Itoa(i) }

func newRequestID() string { return uuid.NewString() }
