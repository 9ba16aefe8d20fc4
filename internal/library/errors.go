package library

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"log"
	"net"
	"strings"

	"github.com/lib/pq"
)

// Kind is the closed error taxonomy every public catalog operation reports in.
type Kind int

const (
	KindValidation Kind = iota
	KindDuplicate
	KindInvalidReference
	KindNotFound
	KindUnavailable
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate_entry"
	case KindInvalidReference:
		return "invalid_reference"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "store_unavailable"
	}
	return "internal"
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Classify maps a store-level fault into the taxonomy. Errors already in the
// taxonomy pass through unchanged; unrecognized faults are logged with full
// detail and surfaced as internal.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var le *Error
	if errors.As(err, &le) {
		return le
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Kind: KindNotFound, Message: "record not found", Err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return &Error{Kind: KindDuplicate, Message: "duplicate entry", Err: err}
		case "23503": // foreign_key_violation
			return &Error{Kind: KindInvalidReference, Message: "invalid reference", Err: err}
		}
		if pqErr.Code.Class() == "08" || pqErr.Code.Class() == "57" {
			return &Error{Kind: KindUnavailable, Message: "store unavailable", Err: err}
		}
		log.Printf("library: unclassified store error (code %s): %v", pqErr.Code, err)
		return &Error{Kind: KindInternal, Message: "internal error", Err: err}
	}

	if errors.Is(err, driver.ErrBadConn) {
		return &Error{Kind: KindUnavailable, Message: "store unavailable", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) || strings.Contains(err.Error(), "connection refused") {
		return &Error{Kind: KindUnavailable, Message: "store unavailable", Err: err}
	}

	log.Printf("library: unexpected error: %v", err)
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}
