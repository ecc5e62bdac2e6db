package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// ValidationError means the backend rejected the payload (HTTP 422).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SessionExpiredError means the anti-forgery token was rejected (HTTP 419).
type SessionExpiredError struct{}

func (e *SessionExpiredError) Error() string {
	return "Session expired. Please refresh the page."
}

// ServerError covers any other non-2xx response, and 2xx responses without data.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// NetworkError means no response reached the client.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("Network error: Unable to reach server: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// errorBody is the shape of a backend error response.
type errorBody struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

// classifyStatus converts a non-2xx response into a typed error.
func classifyStatus(status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	if status == http.StatusUnprocessableEntity && len(eb.Errors) > 0 {
		if field, msg, ok := firstFieldError(eb.Errors); ok {
			return &ValidationError{Field: field, Message: msg}
		}
	}

	if status == 419 {
		return &SessionExpiredError{}
	}

	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}
	if msg == "" {
		msg = fmt.Sprintf("Server error: %d", status)
	}
	return &ServerError{Status: status, Message: msg}
}

// firstFieldError returns the first field listed in an errors object, in
// document order, with its first message.
func firstFieldError(raw json.RawMessage) (string, string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') || !dec.More() {
		return "", "", false
	}

	keyTok, err := dec.Token()
	if err != nil {
		return "", "", false
	}
	field, _ := keyTok.(string)

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", "", false
	}

	switch x := v.(type) {
	case string:
		return field, x, true
	case []any:
		if len(x) == 0 {
			return "", "", false
		}
		if s, ok := x[0].(string); ok {
			return field, s, true
		}
		return field, fmt.Sprint(x[0]), true
	case nil:
		return "", "", false
	default:
		return field, fmt.Sprint(x), true
	}
}

// statusLabel names the outcome of a call for metrics.
func statusLabel(err error) string {
	switch err.(type) {
	case nil:
		return "ok"
	case *ValidationError:
		return "validation"
	case *SessionExpiredError:
		return "session_expired"
	case *NetworkError:
		return "network_error"
	default:
		return "server_error"
	}
}
