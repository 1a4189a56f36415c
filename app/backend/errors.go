package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindAuthenticationRequired Kind = "authentication_required"
	KindInvalidCredentials     Kind = "invalid_credentials"
	KindNetwork                Kind = "network_error"
	KindBadRequest             Kind = "bad_request"
	KindForbidden              Kind = "forbidden"
	KindNotFound               Kind = "not_found"
	KindValidation             Kind = "validation_error"
	KindServer                 Kind = "server_error"
	KindUnknownHTTP            Kind = "unknown_http_error"
)

type kindMetadata struct {
	PublicMessage string
	// ServerMessageAllowed means the backend's own message is safe to show.
	ServerMessageAllowed bool
}

var metadataByKind = map[Kind]kindMetadata{
	KindAuthenticationRequired: {PublicMessage: "Your session has expired. Please log in again."},
	KindInvalidCredentials:     {PublicMessage: "The credentials you entered are incorrect.", ServerMessageAllowed: true},
	KindNetwork:                {PublicMessage: "Unable to reach the server. Please check your internet connection and try again."},
	KindBadRequest:             {PublicMessage: "The request could not be processed.", ServerMessageAllowed: true},
	KindForbidden:              {PublicMessage: "You don't have permission to perform this action.", ServerMessageAllowed: true},
	KindNotFound:               {PublicMessage: "The requested item could not be found.", ServerMessageAllowed: true},
	KindValidation:             {PublicMessage: "Some of the information provided is invalid.", ServerMessageAllowed: true},
	KindServer:                 {PublicMessage: "Something went wrong on our end. Please try again later."},
	KindUnknownHTTP:            {PublicMessage: "An unexpected error occurred. Please try again."},
}

// Sentinels for errors.Is; matching is by kind only.
var (
	ErrAuthenticationRequired = &Error{Kind: KindAuthenticationRequired}
	ErrInvalidCredentials     = &Error{Kind: KindInvalidCredentials}
	ErrNetwork                = &Error{Kind: KindNetwork}
	ErrBadRequest             = &Error{Kind: KindBadRequest}
	ErrForbidden              = &Error{Kind: KindForbidden}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrValidation             = &Error{Kind: KindValidation}
	ErrServer                 = &Error{Kind: KindServer}
	ErrUnknownHTTP            = &Error{Kind: KindUnknownHTTP}
)

// Error is the normalized failure of a backend call. Message is always safe
// to display; Status and Body keep the raw response for debugging.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Code    string
	Fields  map[string][]string
	Body    []byte
	cause   error
}

type errorPayload struct {
	Success   *bool           `json:"success"`
	Message   string          `json:"message"`
	Error     string          `json:"error"`
	ErrorCode string          `json:"error_code"`
	Errors    json.RawMessage `json:"errors"`
}

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: PublicMessage(kind), cause: cause}
}

func newHTTPError(status int, body []byte) *Error {
	return newHTTPErrorKind(kindForStatus(status), status, body)
}

func newHTTPErrorKind(kind Kind, status int, body []byte) *Error {
	e := &Error{
		Kind:    kind,
		Status:  status,
		Message: PublicMessage(kind),
		Body:    body,
	}

	var payload errorPayload
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return e
	}

	e.Code = strings.TrimSpace(payload.ErrorCode)
	e.Fields = parseFieldErrors(payload.Errors)

	serverMessage := strings.TrimSpace(payload.Message)
	if serverMessage == "" {
		serverMessage = strings.TrimSpace(payload.Error)
	}
	if serverMessage == "" && kind == KindValidation {
		serverMessage = firstFieldError(e.Fields)
	}
	if serverMessage != "" && metadataByKind[kind].ServerMessageAllowed {
		e.Message = serverMessage
	}

	return e
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindAuthenticationRequired
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusInternalServerError:
		return KindServer
	default:
		return KindUnknownHTTP
	}
}

func parseFieldErrors(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var byField map[string][]string
	if json.Unmarshal(raw, &byField) == nil && len(byField) > 0 {
		return byField
	}

	var single map[string]string
	if json.Unmarshal(raw, &single) == nil && len(single) > 0 {
		fields := make(map[string][]string, len(single))
		for k, v := range single {
			fields[k] = []string{v}
		}
		return fields
	}

	var list []string
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return map[string][]string{"base": list}
	}

	return nil
}

func firstFieldError(fields map[string][]string) string {
	if messages, ok := fields["base"]; ok && len(messages) > 0 {
		return messages[0]
	}
	for field, messages := range fields {
		if len(messages) > 0 {
			return field + " " + messages[0]
		}
	}
	return ""
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s (status=%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// PublicMessage returns the generic display text for kind.
func PublicMessage(kind Kind) string {
	if meta, ok := metadataByKind[kind]; ok {
		return meta.PublicMessage
	}
	return metadataByKind[KindUnknownHTTP].PublicMessage
}

// As extracts the backend error from err's chain.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// KindOf returns the kind of the backend error in err's chain, or "".
func KindOf(err error) Kind {
	if typed := As(err); typed != nil {
		return typed.Kind
	}
	return ""
}
