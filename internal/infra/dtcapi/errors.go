package dtcapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx answer from the DTC API.
type APIError struct {
	Endpoint string
	Status   int
	Body     string
	detail   string
}

func newAPIError(endpoint string, status int, body []byte) *APIError {
	return &APIError{
		Endpoint: endpoint,
		Status:   status,
		Body:     string(body),
		detail:   extractDetail(body),
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s request error: status=%d body=%s", e.Endpoint, e.Status, e.Body)
}

// Detail is the server supplied explanation, if the body carried one.
func (e *APIError) Detail() string {
	return e.detail
}

type transportError struct {
	endpoint string
	err      error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.endpoint, e.err)
}

func (e *transportError) Unwrap() error { return e.err }

// extractDetail reads {"detail": "..."} (FastAPI) or {"message": "..."}.
// A structured detail, such as a validation error list, yields its first msg.
func extractDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		var list []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &list); err == nil && len(list) > 0 && list[0].Msg != "" {
			return list[0].Msg
		}
	}
	return strings.TrimSpace(payload.Message)
}
