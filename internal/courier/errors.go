package courier

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidMessageID is returned by Ack before any request is made when an
// id is not a UUID.
var ErrInvalidMessageID = errors.New("invalid message id")

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a response outside the 2xx range.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	switch {
	case e.Code >= 400 && e.Code < 500:
		return fmt.Sprintf("%v client error for url: %v", e.Code, e.URL)
	case e.Code >= 500:
		return fmt.Sprintf("%v server error for url: %v", e.Code, e.URL)
	default:
		return fmt.Sprintf("%v unexpected status for url: %v", e.Code, e.URL)
	}
}

// DecodeError is a 2xx response whose body is not the expected JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the broker.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the broker, returned when a
// topic or subscription with that name already exists.
func IsConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusConflict
}
