// Package httpjson writes the console's JSON responses and reads JSON request
// bodies.
//
// Every error body has the shape {"error":{"code","message"}}. Field names the
// offending input of a rejected form; Redirect tells a JSON caller where the
// browser would have been sent.
package httpjson

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ErrExtraData is returned by Decode when the body holds more than one JSON value.
var ErrExtraData = errors.New("extra data after JSON object")

// Error is the body of an error response.
type Error struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// ErrorResponse wraps Error in the "error" envelope.
type ErrorResponse struct {
	Error Error `json:"error"`
}

// Write encodes v with status. Responses are never cached.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a plain error envelope.
func WriteError(w http.ResponseWriter, status int, code, msg string) {
	Write(w, status, ErrorResponse{Error: Error{Code: code, Message: msg}})
}

// WriteErrorBody writes e as the error envelope.
func WriteErrorBody(w http.ResponseWriter, status int, e Error) {
	Write(w, status, ErrorResponse{Error: e})
}

// Decode reads exactly one JSON object of at most maxBytes into dst.
// Unknown fields are rejected.
func Decode(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return ErrExtraData
	}
	return nil
}
