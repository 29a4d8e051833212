package source

import "errors"

// Failure classes for a single source. Callers match them with errors.Is and
// record the wrapped message on the crawl log.
var (
	ErrNetwork           = errors.New("network error")
	ErrParse             = errors.New("parse error")
	ErrValidation        = errors.New("validation error")
	ErrUnsupportedFormat = errors.New("unsupported feed format")
)
