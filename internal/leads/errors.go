package leads

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingLeadFields is returned when name or phoneNumber is absent
	ErrMissingLeadFields = errors.New("name and phoneNumber are required")

	// ErrMissingTestFields is returned when a test trigger lacks phone, firstName or operatorName
	ErrMissingTestFields = errors.New("phone, firstName and operatorName are required")

	// ErrPhoneWithoutDigits is returned when phoneNumber normalizes to nothing.
	// Such leads are rejected with a 400 instead of being relayed with an empty
	// phone, which Poli could never reach.
	ErrPhoneWithoutDigits = errors.New("phoneNumber contains no digits")

	// ErrAbandoned is returned when the caller went away before the relay started
	ErrAbandoned = errors.New("client disconnected before relay")
)

// ErrorKind separates the ways a relay can fail.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindDownstream
	KindUnexpected
	KindAbandoned
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDownstream:
		return "downstream"
	case KindUnexpected:
		return "unexpected"
	case KindAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// ProcessError is what the service returns for every failed relay. Step is
// set when the downstream sender reported which call failed.
type ProcessError struct {
	Kind ErrorKind
	Step string
	Err  error
}

func (e *ProcessError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("leads: %s error at %s: %v", e.Kind, e.Step, e.Err)
	}
	return fmt.Sprintf("leads: %s error: %v", e.Kind, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// KindOf reports the kind carried by err, or KindUnexpected for foreign errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var perr *ProcessError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnexpected
}
