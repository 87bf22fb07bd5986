// Package helpers holds small HTTP utilities shared across internal/api
// handlers: strict JSON decoding, uniform JSON responses, and real-IP
// resolution, grounded on the teacher's internal/api/helpers package.
package helpers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// DecodeJSON decodes a JSON request body, rejecting unknown fields so a
// caller's typo or payload-pollution attempt never silently passes
// through.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
