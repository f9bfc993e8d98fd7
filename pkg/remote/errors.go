package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx answer from a remote endpoint.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote call failed (%d): %s", e.StatusCode, e.Message)
}

// Message returns the human-readable text to show a viewer for err: the
// remote's own message when it sent one, otherwise the error text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var remoteErr *Error
	if errors.As(err, &remoteErr) && remoteErr.Message != "" {
		return remoteErr.Message
	}
	return err.Error()
}

type messageBody struct {
	Message string `json:"message"`
	Body    *struct {
		Message string `json:"message"`
	} `json:"body"`
}

// parseError accepts {"message":..}, {"body":{"message":..}} and the
// [{"message":..,"errorCode":..}] list shape.
func parseError(status int, body []byte) *Error {
	msg := ""
	trimmed := strings.TrimSpace(string(body))
	switch {
	case strings.HasPrefix(trimmed, "["):
		var list []messageBody
		if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
			msg = list[0].text()
		}
	case strings.HasPrefix(trimmed, "{"):
		var single messageBody
		if err := json.Unmarshal(body, &single); err == nil {
			msg = single.text()
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{StatusCode: status, Message: msg}
}

func (m messageBody) text() string {
	if m.Body != nil && m.Body.Message != "" {
		return m.Body.Message
	}
	return m.Message
}
