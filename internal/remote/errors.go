package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed request.
type Kind int

const (
	KindServerError Kind = iota
	KindNotFound
	KindValidationFailed
	KindNetworkUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidationFailed:
		return "validation_failed"
	case KindNetworkUnavailable:
		return "network_unavailable"
	default:
		return "server_error"
	}
}

var (
	ErrNotFound           = errors.New("remote: not found")
	ErrValidationFailed   = errors.New("remote: validation failed")
	ErrServerError        = errors.New("remote: server error")
	ErrNetworkUnavailable = errors.New("remote: network unavailable")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindValidationFailed:
		return ErrValidationFailed
	case KindNetworkUnavailable:
		return ErrNetworkUnavailable
	default:
		return ErrServerError
	}
}

// KindForStatus maps a non-2xx status onto a Kind.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusNotFound, http.StatusGone:
		return KindNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return KindValidationFailed
	default:
		return KindServerError
	}
}

// RequestError wraps non-2xx responses and transport failures.
type RequestError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int
	Kind       Kind
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: status=%d body=%s", e.Op, e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind, so callers can write
// errors.Is(err, remote.ErrNotFound).
func (e *RequestError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// DecodeError reports a response body that does not match the expected
// record shape.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// KindOf returns the kind of err, KindServerError for anything that is not a
// RequestError.
func KindOf(err error) Kind {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindServerError
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
