package m2m

import (
	"errors"
	"fmt"

	"github.com/airbusgeo/m2m-client/service"
)

// ErrorKind classifies the failure of an API call
type ErrorKind int

const (
	// KindNoResponse: the service could not be reached
	KindNoResponse ErrorKind = iota
	// KindStatus: non-2xx HTTP status
	KindStatus
	// KindApplication: errorCode/errorMessage reported in the response envelope
	KindApplication
	// KindDecode: the response cannot be decoded as expected
	KindDecode
	// KindConfig: the request cannot be built (unresolved endpoint, missing client...)
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoResponse:
		return "NoResponse"
	case KindStatus:
		return "Status"
	case KindApplication:
		return "Application"
	case KindDecode:
		return "Decode"
	case KindConfig:
		return "Config"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

var (
	// ErrConfig is wrapped by every KindConfig error
	ErrConfig = errors.New("configuration error")
	// ErrNotFound is returned by FetchOne when the result is empty
	ErrNotFound = errors.New("no result")
)

// Error is returned by every failed API call.
// It is always wrapped as a fatal error (see service.Fatal).
type Error struct {
	Kind    ErrorKind
	URL     string
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("Url: %s | Code: %s | Returned: %s", e.URL, e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, url, code, message string, err error) error {
	return service.MakeFatal(&Error{Kind: kind, URL: url, Code: code, Message: message, Err: err})
}

func configError(format string, args ...interface{}) error {
	return newError(KindConfig, "", "", fmt.Sprintf(format, args...), ErrConfig)
}

// IsKind returns true if err wraps an *Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
