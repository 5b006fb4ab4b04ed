package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

var (
	ErrUnauthorized = errors.New("backend: unauthorized")
	ErrForbidden    = errors.New("backend: forbidden")
	ErrNotFound     = errors.New("backend: not found")
	ErrConflict     = errors.New("backend: conflict")
	ErrValidation   = errors.New("backend: validation failed")
	ErrUnavailable  = errors.New("backend: unavailable")
)

const maxMessageLen = 512

// APIError is a non-2xx answer from the backend with its message extracted
// from whatever body shape the backend produced.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return ErrValidation
	case retryableStatus(e.Status):
		return ErrUnavailable
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{Status: status, Message: parseMessage(status, body), Body: body}
}

// IsUnavailable reports whether err means the backend could not serve the
// request at all, which is the only case a mock fallback may answer instead.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// MessageOf returns the user-facing message carried by err.
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

type validationDetail struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parseMessage understands FastAPI's {"detail": "..."} and
// {"detail": [{"loc": [...], "msg": "..."}]} as well as {"message"} and
// {"error"} bodies; anything else is used as plain text.
func parseMessage(status int, body []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err == nil {
		if raw, ok := payload["detail"]; ok {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && s != "" {
				return s
			}
			var details []validationDetail
			if err := json.Unmarshal(raw, &details); err == nil && len(details) > 0 {
				parts := make([]string, 0, len(details))
				for _, d := range details {
					parts = append(parts, formatDetail(d))
				}
				return strings.Join(parts, "; ")
			}
		}
		for _, key := range []string{"message", "error"} {
			var s string
			if err := json.Unmarshal(payload[key], &s); err == nil && s != "" {
				return s
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if text != "" && !strings.HasPrefix(text, "{") {
		return truncate(text, maxMessageLen)
	}
	if s := http.StatusText(status); s != "" {
		return s
	}
	return fmt.Sprintf("status %d", status)
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

func formatDetail(d validationDetail) string {
	field := ""
	for i := len(d.Loc) - 1; i >= 0; i-- {
		if s, ok := d.Loc[i].(string); ok && s != "body" && s != "query" {
			field = s
			break
		}
	}
	if field == "" {
		return d.Msg
	}
	return field + ": " + d.Msg
}
