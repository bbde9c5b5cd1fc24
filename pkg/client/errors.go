package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// ErrorDetail is one entry of an API error response.
type ErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIError is a non-2xx response from the panel.
type APIError struct {
	StatusCode int

	// Errors holds the entries of an {"errors": [...]} body.
	Errors []ErrorDetail

	// Message holds an {"error": "..."} body, or the raw body when it was
	// not JSON.
	Message string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 && e.Errors[0].Detail != "" {
		return fmt.Sprintf("panel api %d: %s", e.StatusCode, e.Errors[0].Detail)
	}
	if e.Message != "" {
		return fmt.Sprintf("panel api %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("panel api %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var payload struct {
		Errors []ErrorDetail `json:"errors"`
		Error  any           `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = truncate(strings.TrimSpace(string(body)), 200)
		return apiErr
	}
	apiErr.Errors = payload.Errors
	if msg, ok := payload.Error.(string); ok {
		apiErr.Message = msg
	}
	return apiErr
}

// HumanError returns the text shown to a user for err: the first error
// detail of an API response, else its error string, else err.Error().
func HumanError(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if len(apiErr.Errors) > 0 && apiErr.Errors[0].Detail != "" {
			return apiErr.Errors[0].Detail
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return err.Error()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
