package errorsx

// Kind is a short machine-readable failure class.
type Kind string

const (
	// KindNone marks the absence of a failure.
	KindNone Kind = ""

	UnsupportedFormat Kind = "unsupported_format"
	Unintelligible    Kind = "unintelligible"
	ServiceError      Kind = "service_error"
	BackendError      Kind = "backend_error"
	SynthesisError    Kind = "synthesis_error"
	EmptyInput        Kind = "empty_input"
)

// CallerFault reports whether the kind is caused by the caller's input
// rather than by an internal or upstream fault.
func (k Kind) CallerFault() bool {
	switch k {
	case UnsupportedFormat, EmptyInput:
		return true
	}
	return false
}
