package content

import "errors"

// Pipeline errors
var (
	// ErrDecode indicates malformed inline base64 image data
	ErrDecode = errors.New("malformed inline image data")
	// ErrStorage indicates an artifact read or write failure
	ErrStorage = errors.New("image artifact storage failure")
)
