package errorsx

import "errors"

// KindedError wraps an error with a failure kind.
type KindedError struct {
	Err  error
	Kind Kind
}

func (e KindedError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e KindedError) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind with msg as its text.
func New(kind Kind, msg string) error {
	return KindedError{Err: errors.New(msg), Kind: kind}
}

// Wrap attaches a kind to an error (no-op if err is nil or already kinded).
func Wrap(err error, kind Kind) error {
	if err == nil {
		return nil
	}
	var ke KindedError
	if errors.As(err, &ke) {
		return err
	}
	return KindedError{Err: err, Kind: kind}
}

// KindOf extracts the kind from an error, if present.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ke KindedError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindNone
}

// KindOr returns the kind of err, or fallback when err carries none.
func KindOr(err error, fallback Kind) Kind {
	if k := KindOf(err); k != KindNone {
		return k
	}
	return fallback
}

// Is returns true if err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
