package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// APIError is returned when LNbits answers with a non-2xx status.
// Body is the response body exactly as received.
type APIError struct {
	Operation  string
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	// Detail is the "detail" field of an LNbits error body, if any.
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s %s returned status %d: %s", e.Operation, e.Method, e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: %s %s returned status %d: %s", e.Operation, e.Method, e.Path, e.StatusCode, string(e.Body))
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the HTTP status of an APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func newAPIError(op, method, path string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{
		Operation:  op,
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       body,
	}

	// FastAPI reports errors as {"detail": "..."}; validation errors use a list.
	var errResp struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && len(errResp.Detail) > 0 {
		var s string
		if err := json.Unmarshal(errResp.Detail, &s); err == nil {
			apiErr.Detail = s
		} else {
			apiErr.Detail = string(errResp.Detail)
		}
	}
	return apiErr
}
