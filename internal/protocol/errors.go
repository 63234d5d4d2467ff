package protocol

import "errors"

var (
	ErrDuplicateCommand = errors.New("protocol: duplicate top-level command")
	ErrIncompleteShape  = errors.New("protocol: rectangle missing colour attributes")
	ErrMalformedXML     = errors.New("protocol: malformed xml")
)

// IsViolation reports whether err is a fatal protocol-contract violation,
// as opposed to a transient transport condition.
func IsViolation(err error) bool {
	return errors.Is(err, ErrDuplicateCommand) ||
		errors.Is(err, ErrIncompleteShape) ||
		errors.Is(err, ErrMalformedXML)
}
