// Package api provides the HTTP transport for the auth backend.
//
// FILES:
//   - client.go: request executor and HTTP helpers
//   - types.go:  response envelope and decoding
//   - errors.go: failure classification
package api

import "encoding/json"

// Response is the generic wrapper the backend puts around every successful
// payload.
type Response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// Decode unmarshals a raw success payload into T. A payload that does not
// match T's shape fails with a decode-classified error.
func Decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, newError(KindDecode, 0, "malformed response payload", err)
	}
	return v, nil
}
