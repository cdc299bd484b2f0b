package fade

import (
	"errors"
	"strconv"
)

var (
	// ErrValidation is matched by every *ValidationError
	ErrValidation = errors.New("validation error")

	// ErrEncodingInvariant reports an event sequence the encoder cannot accept.
	// Seeing it means the curve generator produced a bad sequence.
	ErrEncodingInvariant = errors.New("encoding invariant violated")
)

// ValidationError describes an invalid scene or generator argument
type ValidationError struct {
	Scene  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Scene != "" {
		return "invalid scene " + quote(e.Scene) + ": " + e.Field + " " + e.Reason
	}
	return "invalid " + e.Field + ": " + e.Reason
}

// Is makes errors.Is(err, ErrValidation) hold for any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func quote(s string) string {
	return strconv.Quote(s)
}
