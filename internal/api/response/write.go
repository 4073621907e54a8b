package response

import (
	"net/http"

	"github.com/goccy/go-json"
)

// JSON writes data with the given status. A value that fails to encode is
// reported as a 500 and nothing else is written.
func JSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, `{"success":false,"error":{"code":"INTERNAL_ERROR","message":"An unexpected error occurred"}}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
