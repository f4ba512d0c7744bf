package buzz

import (
	"fmt"
	"mime"
	"net/http"

	json "github.com/goccy/go-json"
)

// HTTPError is returned for any non-2xx response from the API.
type HTTPError struct {
	StatusCode  int
	Status      string
	ContentType string
	Body        []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("buzz: unexpected HTTP status %s", e.Status)
}

// IsJSON reports whether the response carried a JSON body.
func (e *HTTPError) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(e.ContentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

// NotFound reports whether the resource was missing on the server.
func (e *HTTPError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// ErrorResponse is the structured error document returned by Google APIs.
type ErrorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Errors  []ErrorInfo `json:"errors"`
}

// ErrorInfo is a single sub-error of an ErrorResponse.
type ErrorInfo struct {
	Domain       string `json:"domain,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Message      string `json:"message,omitempty"`
	Location     string `json:"location,omitempty"`
	LocationType string `json:"locationType,omitempty"`
}

// ParseError decodes the {"error": {...}} body of a JSON error response.
func (e *HTTPError) ParseError() (*ErrorResponse, error) {
	if !e.IsJSON() {
		return nil, fmt.Errorf("response content type %q is not JSON", e.ContentType)
	}
	var doc struct {
		Error *ErrorResponse `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode error response: %w", err)
	}
	if doc.Error == nil {
		return nil, fmt.Errorf("error response has no error object")
	}
	return doc.Error, nil
}
