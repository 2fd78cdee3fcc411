package pocketbase

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/julianstephens/church-latin/internal/shared"
)

// APIError is the error body PocketBase returns for non-2xx responses.
type APIError struct {
	Status  int            `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if len(e.Data) > 0 {
		if details, err := json.Marshal(e.Data); err == nil {
			return fmt.Sprintf("pocketbase API error (status %d): %s %s", e.Status, msg, details)
		}
	}
	return fmt.Sprintf("pocketbase API error (status %d): %s", e.Status, msg)
}

// Unwrap lets callers match on the shared sentinel errors.
func (e *APIError) Unwrap() []error {
	switch e.Status {
	case http.StatusNotFound:
		return []error{shared.ErrAPIRequest, shared.ErrRecordNotFound}
	case http.StatusUnauthorized, http.StatusForbidden:
		return []error{shared.ErrAPIRequest, shared.ErrAuthFailed}
	default:
		return []error{shared.ErrAPIRequest}
	}
}

// newAPIError decodes a PocketBase error body, falling back to the raw status.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = string(body)
	}
	apiErr.Status = status
	return apiErr
}
