package reelrank

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reelrank: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

func parseAPIError(resp *http.Response) error {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Code: "unknown", Message: resp.Status}
	}
	return &APIError{StatusCode: resp.StatusCode, Code: body.Code, Message: body.Message}
}
