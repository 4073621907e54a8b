package handler

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/apierr"
)

const maxBodyBytes = 1 << 20

// decode reads a JSON body into dst, writing a 400 and returning false on
// failure
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return false
	}
	return true
}
