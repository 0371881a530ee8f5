package envist

import "errors"

// Error kinds returned by this package. Every error produced here wraps one
// of these sentinels, so callers can dispatch with errors.Is regardless of
// the contextual detail added at the failure site.
var (
	// ErrParse indicates a malformed declaration line, unbalanced annotation
	// brackets, an empty value without AcceptEmpty, or a reference cycle.
	ErrParse = errors.New("envist: parse error")

	// ErrType indicates an unrecognized type name or wrong arity in a type
	// annotation or cast expression.
	ErrType = errors.New("envist: invalid type")

	// ErrCast indicates a resolved value that cannot be converted to the
	// annotated or requested type.
	ErrCast = errors.New("envist: cast error")

	// ErrKeyNotFound indicates a missing key on Get/Unset or an unresolved
	// ${...} reference.
	ErrKeyNotFound = errors.New("envist: key not found")

	// ErrFileNotFound indicates the configured env file does not exist.
	ErrFileNotFound = errors.New("envist: env file not found")
)
