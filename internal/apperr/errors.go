package apperr

import "errors"

// Sentinels for errors.Is checks against a typed *Error.
var (
	ErrInvalidOperation = errors.New("invalid operation")
	ErrLoad             = errors.New("load failed")
	ErrPersistence      = errors.New("persistence failed")
	ErrNotFound         = errors.New("not found")
)

// Error ties a failed operation to one of the kinds above.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

// Invalid reports an operation rejected before any I/O.
func Invalid(op, msg string) error {
	return &Error{Kind: ErrInvalidOperation, Op: op, Msg: msg}
}

// Load wraps a failed roster or lifecycle fetch.
func Load(op string, err error) error {
	return &Error{Kind: ErrLoad, Op: op, Err: err}
}

// Persistence wraps a failed write. Local state is untouched when it is returned.
func Persistence(op string, err error) error {
	return &Error{Kind: ErrPersistence, Op: op, Err: err}
}

// NotFound reports a missing row.
func NotFound(op, msg string) error {
	return &Error{Kind: ErrNotFound, Op: op, Msg: msg}
}

func IsInvalid(err error) bool     { return errors.Is(err, ErrInvalidOperation) }
func IsLoad(err error) bool        { return errors.Is(err, ErrLoad) }
func IsPersistence(err error) bool { return errors.Is(err, ErrPersistence) }
func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
