// Package response writes JSON bodies for the HTTP handlers.
package response

import (
	"encoding/json"
	"net/http"
)

type ErrorBody struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Error: msg})
}

// MaxBodyBytes caps request bodies read by Decode. Listings may carry inline images.
const MaxBodyBytes = 16 << 20

// Decode reads a JSON request body of at most MaxBodyBytes into v, rejecting unknown fields.
func Decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return DecodeLimit(w, r, v, MaxBodyBytes)
}

// DecodeLimit is Decode with a caller-chosen body limit. Oversized bodies fail with
// *http.MaxBytesError and the connection is closed after the response.
func DecodeLimit(w http.ResponseWriter, r *http.Request, v interface{}, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
