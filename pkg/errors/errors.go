// checkout-gateway/pkg/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway failure. The HTTP status and the message shown to
// the caller are derived from it.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindProcessor
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindProcessor:
		return "processor"
	default:
		return "unknown"
	}
}

const (
	MsgInvalidAmount  = "Invalid amount"
	MsgInternalServer = "Internal Server Error"
)

type E struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(code, msg string, err error) error {
	return &E{Kind: KindUnknown, Code: code, Message: msg, Err: err}
}

// Validation reports caller input that failed a check. msg is returned to
// the caller verbatim.
func Validation(code, msg string) error {
	return &E{Kind: KindValidation, Code: code, Message: msg}
}

// Processor wraps a failure talking to the payment processor. The cause is
// kept for logs and never shown to the caller.
func Processor(code string, err error) error {
	return &E{Kind: KindProcessor, Code: code, Message: "payment processor call failed", Err: err}
}

func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func HTTPStatus(err error) int {
	if KindOf(err) == KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// PublicMessage is the only text about err that may leave the process.
func PublicMessage(err error) string {
	var e *E
	if stderrors.As(err, &e) && e.Kind == KindValidation {
		return e.Message
	}
	return MsgInternalServer
}
